package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/smartclass/attendance/core/course"
)

type courseRepository struct {
	courses     *mongo.Collection
	enrollments *mongo.Collection
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *mongo.Database) course.Repository {
	return &courseRepository{
		courses:     db.Collection(colCourses),
		enrollments: db.Collection(colEnrollments),
	}
}

// courseDoc mirrors course.Course with a native ObjectID primary key.
type courseDoc struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	course.Course `bson:",inline"`
}

func (d courseDoc) export() course.Course {
	crs := d.Course
	crs.ID = d.ID.Hex()
	return crs
}

type enrollmentDoc struct {
	ID                primitive.ObjectID `bson:"_id,omitempty"`
	course.Enrollment `bson:",inline"`
}

func (d enrollmentDoc) export() course.Enrollment {
	enr := d.Enrollment
	enr.ID = d.ID.Hex()
	return enr
}

// refFilter resolves ref as a document ID when it parses as one, otherwise
// as the human-facing course code.
func refFilter(ref string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(ref); err == nil {
		return bson.M{"_id": oid}
	}
	return bson.M{"course_code": ref}
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	crs.ID = ""
	if crs.ClassroomIDs == nil {
		crs.ClassroomIDs = []string{}
	}
	doc := courseDoc{Course: crs}
	res, err := repo.courses.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return course.Course{}, course.ErrCodeExists
	}
	if err != nil {
		return course.Course{}, err
	}
	crs.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return crs, nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, ref string) (course.Course, error) {
	var doc courseDoc
	err := repo.courses.FindOne(ctx, refFilter(ref)).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return course.Course{}, course.ErrNotFound
	}
	if err != nil {
		return course.Course{}, err
	}
	return doc.export(), nil
}

func (repo *courseRepository) QueryAllCourses(ctx context.Context) ([]course.Course, error) {
	cur, err := repo.courses.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "course_code", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []courseDoc
	if err = cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	courses := make([]course.Course, len(docs))
	for i, doc := range docs {
		courses[i] = doc.export()
	}
	return courses, nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	oid, err := primitive.ObjectIDFromHex(crs.ID)
	if err != nil {
		return course.Course{}, course.ErrNotFound
	}
	update := bson.M{"$set": bson.M{
		"title":        crs.Title,
		"year":         crs.Year,
		"class_code":   crs.ClassCode,
		"department":   crs.Department,
		"description":  crs.Description,
		"teacher_id":   crs.TeacherID,
		"teacher_name": crs.TeacherName,
		"updated_at":   crs.UpdatedAt,
	}}
	res, err := repo.courses.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return course.Course{}, err
	}
	if res.MatchedCount == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return crs, nil
}

func (repo *courseRepository) DeleteCourse(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return course.ErrNotFound
	}
	res, err := repo.courses.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return course.ErrNotFound
	}
	_, err = repo.enrollments.DeleteMany(ctx, bson.M{"course_id": id})
	return err
}

func (repo *courseRepository) AssignClassroom(ctx context.Context, courseID, classroomID string) (course.Course, error) {
	return repo.updateClassroomSet(ctx, courseID, bson.M{"$addToSet": bson.M{"classroom_ids": classroomID}})
}

func (repo *courseRepository) RemoveClassroom(ctx context.Context, courseID, classroomID string) (course.Course, error) {
	return repo.updateClassroomSet(ctx, courseID, bson.M{"$pull": bson.M{"classroom_ids": classroomID}})
}

func (repo *courseRepository) updateClassroomSet(ctx context.Context, courseID string, update bson.M) (course.Course, error) {
	oid, err := primitive.ObjectIDFromHex(courseID)
	if err != nil {
		return course.Course{}, course.ErrNotFound
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc courseDoc
	err = repo.courses.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return course.Course{}, course.ErrNotFound
	}
	if err != nil {
		return course.Course{}, err
	}
	return doc.export(), nil
}

func (repo *courseRepository) CreateEnrollment(ctx context.Context, enr course.Enrollment) (course.Enrollment, error) {
	enr.ID = ""
	doc := enrollmentDoc{Enrollment: enr}
	res, err := repo.enrollments.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return course.Enrollment{}, course.ErrAlreadyEnrolled
	}
	if err != nil {
		return course.Enrollment{}, err
	}
	enr.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return enr, nil
}

func (repo *courseRepository) DeleteEnrollment(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return course.ErrEnrollmentNotFound
	}
	res, err := repo.enrollments.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return course.ErrEnrollmentNotFound
	}
	return nil
}

func (repo *courseRepository) FilterEnrollments(ctx context.Context, filter course.EnrollmentFilter) ([]course.Enrollment, error) {
	query := bson.M{}
	if filter.CourseID != "" {
		query["course_id"] = filter.CourseID
	}
	if filter.StudentID != "" {
		query["student_id"] = filter.StudentID
	}
	cur, err := repo.enrollments.Find(ctx, query)
	if err != nil {
		return nil, err
	}
	var docs []enrollmentDoc
	if err = cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	enrollments := make([]course.Enrollment, len(docs))
	for i, doc := range docs {
		enrollments[i] = doc.export()
	}
	return enrollments, nil
}
