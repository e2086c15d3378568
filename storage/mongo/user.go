package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/smartclass/attendance/core/user"
)

type userRepository struct {
	users *mongo.Collection
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *mongo.Database) user.Repository {
	return &userRepository{users: db.Collection(colUsers)}
}

type userDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	user.User `bson:",inline"`
}

func (d userDoc) export() user.User {
	usr := d.User
	usr.ID = d.ID.Hex()
	return usr
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = ""
	doc := userDoc{User: usr}
	res, err := repo.users.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return user.User{}, user.ErrEmailExists
	}
	if err != nil {
		return user.User{}, err
	}
	usr.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return usr, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return user.User{}, user.ErrNotFound
	}
	return repo.get(ctx, bson.M{"_id": oid})
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.get(ctx, bson.M{"email": email})
}

func (repo *userRepository) get(ctx context.Context, filter bson.M) (user.User, error) {
	var doc userDoc
	err := repo.users.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return user.User{}, user.ErrNotFound
	}
	if err != nil {
		return user.User{}, err
	}
	return doc.export(), nil
}

// UpdateOrCreateUser upserts on email; used by the admin CLI so rerunning
// adduser with the same email refreshes the account instead of failing.
func (repo *userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User) (user.User, error) {
	update := bson.M{
		"$set": bson.M{
			"name":          usr.Name,
			"role":          usr.Role,
			"teacher_id":    usr.TeacherID,
			"password_hash": usr.PasswordHash,
			"is_active":     usr.IsActive,
			"updated_at":    usr.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"email":      usr.Email,
			"created_at": usr.CreatedAt,
			"last_login": usr.LastLogin,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc userDoc
	err := repo.users.FindOneAndUpdate(ctx, bson.M{"email": usr.Email}, update, opts).Decode(&doc)
	if err != nil {
		return user.User{}, err
	}
	return doc.export(), nil
}

func (repo *userRepository) SetLastLogin(ctx context.Context, usr user.User) (user.User, error) {
	oid, err := primitive.ObjectIDFromHex(usr.ID)
	if err != nil {
		return user.User{}, user.ErrNotFound
	}
	now := time.Now().UTC()
	res, err := repo.users.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"last_login": now}})
	if err != nil {
		return user.User{}, err
	}
	if res.MatchedCount == 0 {
		return user.User{}, user.ErrNotFound
	}
	usr.LastLogin = now
	return usr, nil
}

func (repo *userRepository) CountByRole(ctx context.Context, role string) (int64, error) {
	return repo.users.CountDocuments(ctx, bson.M{"role": role, "is_active": true})
}
