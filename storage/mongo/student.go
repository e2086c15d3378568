package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/smartclass/attendance/core/student"
)

type studentRepository struct {
	students *mongo.Collection
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *mongo.Database) student.Repository {
	return &studentRepository{students: db.Collection(colStudents)}
}

func (repo *studentRepository) CreateStudent(ctx context.Context, st student.Student) (student.Student, error) {
	_, err := repo.students.InsertOne(ctx, st)
	if mongo.IsDuplicateKeyError(err) {
		return student.Student{}, student.ErrExists
	}
	if err != nil {
		return student.Student{}, err
	}
	return st, nil
}

func (repo *studentRepository) GetStudent(ctx context.Context, studentID string) (student.Student, error) {
	var st student.Student
	err := repo.students.FindOne(ctx, bson.M{"student_id": studentID}).Decode(&st)
	if err == mongo.ErrNoDocuments {
		return student.Student{}, student.ErrNotFound
	}
	return st, err
}

func (repo *studentRepository) QueryAllStudents(ctx context.Context) ([]student.Student, error) {
	opts := options.Find().SetSort(bson.D{{Key: "student_id", Value: 1}})
	cur, err := repo.students.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	students := make([]student.Student, 0)
	if err = cur.All(ctx, &students); err != nil {
		return nil, err
	}
	return students, nil
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, st student.Student) (student.Student, error) {
	update := bson.M{"$set": bson.M{
		"name":       st.Name,
		"email":      st.Email,
		"phone":      st.Phone,
		"batch":      st.Batch,
		"department": st.Department,
		"updated_at": st.UpdatedAt,
	}}
	res, err := repo.students.UpdateOne(ctx, bson.M{"student_id": st.StudentID}, update)
	if err != nil {
		return student.Student{}, err
	}
	if res.MatchedCount == 0 {
		return student.Student{}, student.ErrNotFound
	}
	return st, nil
}

func (repo *studentRepository) DeleteStudent(ctx context.Context, studentID string) error {
	res, err := repo.students.DeleteOne(ctx, bson.M{"student_id": studentID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return student.ErrNotFound
	}
	return nil
}
