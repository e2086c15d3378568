// Package mongodb implements the repositories on MongoDB. Atomic update
// operators ($addToSet, $inc, conditional filters) carry the concurrency
// guarantees the services rely on; none of the repositories do
// read-modify-write.
package mongodb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/smartclass/attendance/core"
)

// Collection names
const (
	colUsers       = "users"
	colStudents    = "students"
	colClassrooms  = "classrooms"
	colCourses     = "courses"
	colEnrollments = "enrollments"
	colSessions    = "attendance_sessions"
	colRecords     = "attendance_records"
)

func Open(conf *core.Config) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), conf.Database.Timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(conf.Database.URL))
	if err != nil {
		return nil, errors.Wrap(err, "mongo.Connect")
	}
	if err = ping(client, conf.Database.Timeout); err != nil {
		return nil, err
	}
	return client.Database(conf.Database.Name), nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(client *mongo.Client, timeout time.Duration) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		err = client.Ping(ctx, nil)
		cancel()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

func Close(db *mongo.Database, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return db.Client().Disconnect(ctx)
}

// EnsureIndexes creates all indexes the repositories depend on. The partial
// unique index on active sessions is what makes "one active session per
// (course, classroom)" an insert-time guarantee rather than a racy check.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	unique := options.Index().SetUnique(true)

	specs := map[string][]mongo.IndexModel{
		colUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
		},
		colStudents: {
			{Keys: bson.D{{Key: "student_id", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "batch", Value: 1}}},
		},
		colClassrooms: {
			{Keys: bson.D{{Key: "classroom_id", Value: 1}}, Options: unique},
		},
		colCourses: {
			{Keys: bson.D{{Key: "course_code", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "teacher_id", Value: 1}}},
		},
		colEnrollments: {
			{
				Keys:    bson.D{{Key: "course_id", Value: 1}, {Key: "student_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "student_id", Value: 1}}},
		},
		colSessions: {
			{Keys: bson.D{{Key: "session_id", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "classroom_id", Value: 1}}},
			{Keys: bson.D{{Key: "started_by", Value: 1}}},
			{Keys: bson.D{{Key: "started_at", Value: -1}}},
			{
				Keys: bson.D{{Key: "course_id", Value: 1}, {Key: "classroom_id", Value: 1}},
				Options: options.Index().
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"status": "active"}),
			},
		},
		colRecords: {
			{Keys: bson.D{{Key: "session_id", Value: 1}}},
			{Keys: bson.D{{Key: "student_id", Value: 1}}},
			{Keys: bson.D{{Key: "timestamp", Value: -1}}},
			{Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "student_id", Value: 1}}},
		},
	}

	for col, models := range specs {
		if _, err := db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return errors.Wrapf(err, "creating indexes on %s", col)
		}
	}
	return nil
}
