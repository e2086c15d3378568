package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/smartclass/attendance/core/session"
	"github.com/smartclass/attendance/core/statistics"
	"github.com/smartclass/attendance/core/user"
)

type statisticsStore struct {
	db *mongo.Database
}

var _ statistics.Store = (*statisticsStore)(nil) // interface compliance check

func NewStatisticsStore(db *mongo.Database) statistics.Store {
	return &statisticsStore{db: db}
}

func (s *statisticsStore) count(ctx context.Context, col string, filter bson.M) (int, error) {
	n, err := s.db.Collection(col).CountDocuments(ctx, filter)
	return int(n), err
}

func (s *statisticsStore) CountStudents(ctx context.Context) (int, error) {
	return s.count(ctx, colStudents, bson.M{})
}

func (s *statisticsStore) CountTeachers(ctx context.Context) (int, error) {
	return s.count(ctx, colUsers, bson.M{"role": user.RoleTeacher, "is_active": true})
}

func (s *statisticsStore) CountCourses(ctx context.Context, teacherID string) (int, error) {
	filter := bson.M{}
	if teacherID != "" {
		filter["teacher_id"] = teacherID
	}
	return s.count(ctx, colCourses, filter)
}

func (s *statisticsStore) CountClassrooms(ctx context.Context) (int, error) {
	return s.count(ctx, colClassrooms, bson.M{})
}

func (s *statisticsStore) CountSessions(ctx context.Context, teacherID string, since time.Time) (int, error) {
	filter := bson.M{"started_at": bson.M{"$gte": since}}
	if teacherID != "" {
		filter["started_by"] = teacherID
	}
	return s.count(ctx, colSessions, filter)
}

func (s *statisticsStore) CountClassroomSessions(ctx context.Context, classroomID string) (int, error) {
	return s.count(ctx, colSessions, bson.M{"classroom_id": classroomID})
}

func (s *statisticsStore) HasActiveSession(ctx context.Context, classroomID string) (bool, error) {
	n, err := s.count(ctx, colSessions, bson.M{"classroom_id": classroomID, "status": session.StatusActive})
	return n > 0, err
}

func (s *statisticsStore) StudentAttendance(ctx context.Context, studentID string) (total, attended int, err error) {
	total, err = s.count(ctx, colSessions, bson.M{
		"enrolled_students": studentID,
		"status":            session.StatusCompleted,
	})
	if err != nil {
		return 0, 0, err
	}
	attended, err = s.count(ctx, colSessions, bson.M{
		"final_summary.present": studentID,
		"status":                session.StatusCompleted,
	})
	if err != nil {
		return 0, 0, err
	}
	return total, attended, nil
}
