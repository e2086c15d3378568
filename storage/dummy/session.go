package dummydb

import (
	"context"
	"sort"

	"github.com/smartclass/attendance/core/session"
)

type sessionRepository struct {
	db *sessionTable
}

var _ session.Repository = (*sessionRepository)(nil) // interface compliance check

func NewSessionRepository(db *DB) session.Repository {
	return &sessionRepository{db: db.session}
}

// CreateSession checks the (course, classroom) active slot and inserts under
// one lock, giving the same insert-time uniqueness as the partial unique
// index in Mongo.
func (repo *sessionRepository) CreateSession(_ context.Context, sess session.Session) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, s := range repo.db.table {
		if s.Status == session.StatusActive && s.CourseID == sess.CourseID && s.ClassroomID == sess.ClassroomID {
			return session.ErrActiveExists
		}
	}
	repo.db.table[sess.ID] = &sess
	return nil
}

func (repo *sessionRepository) GetSession(_ context.Context, id string) (session.Session, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if sess, ok := repo.db.table[id]; ok {
		return copySession(sess), nil
	}
	return session.Session{}, session.ErrNotFound
}

func (repo *sessionRepository) FilterSessions(_ context.Context, filter session.QueryFilter) ([]session.Session, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	sessions := make([]session.Session, 0)
	for _, sess := range repo.db.table {
		if filter.TeacherID != "" && sess.StartedBy != filter.TeacherID {
			continue
		}
		if filter.ClassroomID != "" && sess.ClassroomID != filter.ClassroomID {
			continue
		}
		if filter.Status != "" && sess.Status != filter.Status {
			continue
		}
		sessions = append(sessions, copySession(sess))
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].StartedAt.After(sessions[j].StartedAt) })
	if filter.Limit > 0 && len(sessions) > filter.Limit {
		sessions = sessions[:filter.Limit]
	}
	return sessions, nil
}

func (repo *sessionRepository) CloseSession(_ context.Context, id string, cl session.Closure) (session.Session, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	sess, ok := repo.db.table[id]
	if !ok {
		return session.Session{}, session.ErrNotFound
	}
	if sess.Status != session.StatusActive {
		return session.Session{}, session.ErrNotActive
	}
	endedAt := cl.EndedAt
	sess.Status = session.StatusCompleted
	sess.EndedAt = &endedAt
	sess.PresentCount = cl.PresentCount
	sess.AbsentCount = cl.AbsentCount
	summary := cl.Summary
	sess.FinalSummary = &summary
	return copySession(sess), nil
}

func (repo *sessionRepository) ApplyUpload(_ context.Context, id string, studentIDs []string) (session.Session, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	sess, ok := repo.db.table[id]
	if !ok {
		return session.Session{}, session.ErrNotFound
	}
	if sess.Status != session.StatusActive {
		return session.Session{}, session.ErrNotActive
	}
	sess.TotalCaptures++
	for _, sid := range studentIDs {
		if !contains(sess.RecognizedStudents, sid) {
			sess.RecognizedStudents = append(sess.RecognizedStudents, sid)
		}
	}
	return copySession(sess), nil
}

func (repo *sessionRepository) AppendRecords(_ context.Context, records []session.Record) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.records = append(repo.db.records, records...)
	return nil
}

func (repo *sessionRepository) RecordsBySession(_ context.Context, sessionID string) ([]session.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	records := make([]session.Record, 0)
	for _, rec := range repo.db.records {
		if rec.SessionID == sessionID {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Timestamp.Before(records[j].Timestamp) })
	return records, nil
}

// copySession deep-copies the slices so callers never alias table state.
func copySession(sess *session.Session) session.Session {
	out := *sess
	out.RecognizedStudents = append([]string(nil), sess.RecognizedStudents...)
	out.EnrolledStudents = append([]string(nil), sess.EnrolledStudents...)
	if sess.FinalSummary != nil {
		summary := *sess.FinalSummary
		summary.Present = append([]string(nil), sess.FinalSummary.Present...)
		summary.Absent = append([]string(nil), sess.FinalSummary.Absent...)
		out.FinalSummary = &summary
	}
	return out
}

func contains(ids []string, id string) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
