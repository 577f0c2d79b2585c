package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wuwenbin0122/vishai/internal/models"
)

type MongoUsers struct {
	coll *mongo.Collection
}

func NewMongoUsers(coll *mongo.Collection) *MongoUsers {
	return &MongoUsers{coll: coll}
}

func (s *MongoUsers) Create(ctx context.Context, user models.User) error {
	user.Email = NormalizeEmail(user.Email)

	if _, err := s.coll.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("mongo insert user: %w", err)
	}
	return nil
}

func (s *MongoUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": NormalizeEmail(email)})
}

func (s *MongoUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *MongoUsers) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	if err := s.coll.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("mongo query user: %w", err)
	}
	return &user, nil
}

// MongoChats stores one document per user with an embedded message array.
// Appends are a single upsert with $push, so concurrent writers never lose
// each other's messages.
type MongoChats struct {
	coll *mongo.Collection
}

func NewMongoChats(coll *mongo.Collection) *MongoChats {
	return &MongoChats{coll: coll}
}

func (s *MongoChats) Append(ctx context.Context, userID string, msgs ...models.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	if err := validateMessages(msgs); err != nil {
		return err
	}

	err := s.upsertPush(ctx, userID, msgs)
	if mongo.IsDuplicateKeyError(err) {
		// Lost the insert race on the unique user_id index; the document now
		// exists so the second attempt is a plain update.
		err = s.upsertPush(ctx, userID, msgs)
	}
	if err != nil {
		return fmt.Errorf("mongo append messages: %w", err)
	}
	return nil
}

func (s *MongoChats) upsertPush(ctx context.Context, userID string, msgs []models.Message) error {
	now := time.Now().UTC()
	update := bson.M{
		"$push":        bson.M{"messages": bson.M{"$each": msgs}},
		"$set":         bson.M{"updated_at": now},
		"$setOnInsert": bson.M{"_id": uuid.NewString(), "created_at": now},
	}

	_, err := s.coll.UpdateOne(ctx, bson.M{"user_id": userID}, update, options.Update().SetUpsert(true))
	return err
}

func (s *MongoChats) History(ctx context.Context, userID string) ([]models.Message, error) {
	var conv models.Conversation
	opts := options.FindOne().SetProjection(bson.M{"messages": 1})
	if err := s.coll.FindOne(ctx, bson.M{"user_id": userID}, opts).Decode(&conv); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return []models.Message{}, nil
		}
		return nil, fmt.Errorf("mongo query conversation: %w", err)
	}

	if conv.Messages == nil {
		return []models.Message{}, nil
	}
	return conv.Messages, nil
}
