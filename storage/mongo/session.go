package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/smartclass/attendance/core/session"
)

type sessionRepository struct {
	sessions *mongo.Collection
	records  *mongo.Collection
}

var _ session.Repository = (*sessionRepository)(nil) // interface compliance check

func NewSessionRepository(db *mongo.Database) session.Repository {
	return &sessionRepository{
		sessions: db.Collection(colSessions),
		records:  db.Collection(colRecords),
	}
}

func (repo *sessionRepository) CreateSession(ctx context.Context, sess session.Session) error {
	_, err := repo.sessions.InsertOne(ctx, sess)
	if mongo.IsDuplicateKeyError(err) {
		// the partial unique index on (course_id, classroom_id) with
		// status=active fired; the slot is taken
		return session.ErrActiveExists
	}
	return err
}

func (repo *sessionRepository) GetSession(ctx context.Context, id string) (session.Session, error) {
	var sess session.Session
	err := repo.sessions.FindOne(ctx, bson.M{"session_id": id}).Decode(&sess)
	if err == mongo.ErrNoDocuments {
		return session.Session{}, session.ErrNotFound
	}
	return sess, err
}

func (repo *sessionRepository) FilterSessions(ctx context.Context, filter session.QueryFilter) ([]session.Session, error) {
	query := bson.M{}
	if filter.TeacherID != "" {
		query["started_by"] = filter.TeacherID
	}
	if filter.ClassroomID != "" {
		query["classroom_id"] = filter.ClassroomID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}

	opts := options.Find().SetSort(bson.D{{Key: "started_at", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	cur, err := repo.sessions.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	sessions := make([]session.Session, 0)
	if err = cur.All(ctx, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// CloseSession flips an active session to completed and stamps the final
// summary, all in one conditional update. A session that raced to completed
// first is left untouched.
func (repo *sessionRepository) CloseSession(ctx context.Context, id string, cl session.Closure) (session.Session, error) {
	filter := bson.M{"session_id": id, "status": session.StatusActive}
	update := bson.M{"$set": bson.M{
		"status":        session.StatusCompleted,
		"ended_at":      cl.EndedAt,
		"present_count": cl.PresentCount,
		"absent_count":  cl.AbsentCount,
		"final_summary": cl.Summary,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var sess session.Session
	err := repo.sessions.FindOneAndUpdate(ctx, filter, update, opts).Decode(&sess)
	if err == mongo.ErrNoDocuments {
		return session.Session{}, repo.notActiveOrNotFound(ctx, id)
	}
	return sess, err
}

// ApplyUpload unions the batch's student IDs into the recognized set and
// bumps the capture counter in a single atomic update, so concurrent
// uploads never clobber each other.
func (repo *sessionRepository) ApplyUpload(ctx context.Context, id string, studentIDs []string) (session.Session, error) {
	filter := bson.M{"session_id": id, "status": session.StatusActive}
	update := bson.M{"$inc": bson.M{"total_captures": 1}}
	if len(studentIDs) > 0 {
		update["$addToSet"] = bson.M{"recognized_students": bson.M{"$each": studentIDs}}
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var sess session.Session
	err := repo.sessions.FindOneAndUpdate(ctx, filter, update, opts).Decode(&sess)
	if err == mongo.ErrNoDocuments {
		return session.Session{}, repo.notActiveOrNotFound(ctx, id)
	}
	return sess, err
}

// notActiveOrNotFound disambiguates a failed conditional update: the
// session either never existed or is no longer active.
func (repo *sessionRepository) notActiveOrNotFound(ctx context.Context, id string) error {
	if _, err := repo.GetSession(ctx, id); err != nil {
		return err
	}
	return session.ErrNotActive
}

func (repo *sessionRepository) AppendRecords(ctx context.Context, records []session.Record) error {
	if len(records) == 0 {
		return nil
	}
	docs := make([]interface{}, len(records))
	for i, rec := range records {
		docs[i] = rec
	}
	_, err := repo.records.InsertMany(ctx, docs)
	return err
}

func (repo *sessionRepository) RecordsBySession(ctx context.Context, sessionID string) ([]session.Record, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	cur, err := repo.records.Find(ctx, bson.M{"session_id": sessionID}, opts)
	if err != nil {
		return nil, err
	}
	records := make([]session.Record, 0)
	if err = cur.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}
