package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/smartclass/attendance/core/classroom"
)

type classroomRepository struct {
	classrooms *mongo.Collection
}

var _ classroom.Repository = (*classroomRepository)(nil) // interface compliance check

func NewClassroomRepository(db *mongo.Database) classroom.Repository {
	return &classroomRepository{classrooms: db.Collection(colClassrooms)}
}

func (repo *classroomRepository) CreateClassroom(ctx context.Context, cls classroom.Classroom) (classroom.Classroom, error) {
	_, err := repo.classrooms.InsertOne(ctx, cls)
	if mongo.IsDuplicateKeyError(err) {
		return classroom.Classroom{}, classroom.ErrExists
	}
	if err != nil {
		return classroom.Classroom{}, err
	}
	return cls, nil
}

func (repo *classroomRepository) GetClassroom(ctx context.Context, classroomID string) (classroom.Classroom, error) {
	var cls classroom.Classroom
	err := repo.classrooms.FindOne(ctx, bson.M{"classroom_id": classroomID}).Decode(&cls)
	if err == mongo.ErrNoDocuments {
		return classroom.Classroom{}, classroom.ErrNotFound
	}
	return cls, err
}

func (repo *classroomRepository) QueryAllClassrooms(ctx context.Context) ([]classroom.Classroom, error) {
	opts := options.Find().SetSort(bson.D{{Key: "classroom_id", Value: 1}})
	cur, err := repo.classrooms.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	classrooms := make([]classroom.Classroom, 0)
	if err = cur.All(ctx, &classrooms); err != nil {
		return nil, err
	}
	return classrooms, nil
}

func (repo *classroomRepository) UpdateClassroom(ctx context.Context, cls classroom.Classroom) (classroom.Classroom, error) {
	update := bson.M{"$set": bson.M{
		"name":       cls.Name,
		"building":   cls.Building,
		"floor":      cls.Floor,
		"capacity":   cls.Capacity,
		"location":   cls.Location,
		"device_ip":  cls.DeviceIP,
		"updated_at": cls.UpdatedAt,
	}}
	res, err := repo.classrooms.UpdateOne(ctx, bson.M{"classroom_id": cls.ClassroomID}, update)
	if err != nil {
		return classroom.Classroom{}, err
	}
	if res.MatchedCount == 0 {
		return classroom.Classroom{}, classroom.ErrNotFound
	}
	return cls, nil
}

func (repo *classroomRepository) DeleteClassroom(ctx context.Context, classroomID string) error {
	res, err := repo.classrooms.DeleteOne(ctx, bson.M{"classroom_id": classroomID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return classroom.ErrNotFound
	}
	return nil
}

func (repo *classroomRepository) SetDeviceStatus(
	ctx context.Context,
	classroomID string,
	report classroom.StatusReport,
	seenAt time.Time,
) (classroom.Classroom, error) {
	set := bson.M{
		"last_seen":  seenAt,
		"updated_at": seenAt,
	}
	if report.Status != "" {
		set["status"] = report.Status
	}
	if report.MQTTConnected != nil {
		set["mqtt_connected"] = *report.MQTTConnected
	}
	if report.CameraStatus != "" {
		set["camera_status"] = report.CameraStatus
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var cls classroom.Classroom
	err := repo.classrooms.FindOneAndUpdate(ctx, bson.M{"classroom_id": classroomID}, bson.M{"$set": set}, opts).Decode(&cls)
	if err == mongo.ErrNoDocuments {
		return classroom.Classroom{}, classroom.ErrNotFound
	}
	return cls, err
}
