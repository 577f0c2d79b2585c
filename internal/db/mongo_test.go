package db_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/wuwenbin0122/vishai/internal/db"
	"github.com/wuwenbin0122/vishai/internal/utils"
)

func TestMongoEnsureCollectionsEnforcesUniqueness(t *testing.T) {
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set; skipping mongo integration test")
	}

	database := "vishai_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	store, err := db.NewMongo(context.Background(), utils.MongoConfig{
		URI:            uri,
		Database:       database,
		ConnectTimeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("failed to connect to mongo: %v", err)
	}
	defer func() {
		ctx := context.Background()
		store.Database.Drop(ctx)
		store.Close(ctx)
	}()

	ctx := context.Background()
	if err := store.EnsureCollections(ctx); err != nil {
		t.Fatalf("ensure collections failed: %v", err)
	}

	if state := store.State(ctx); state != db.StateConnected {
		t.Fatalf("expected state %q, got %q", db.StateConnected, state)
	}

	if _, err := store.Users.InsertOne(ctx, bson.M{"_id": uuid.NewString(), "email": "a@x.com"}); err != nil {
		t.Fatalf("failed to insert user: %v", err)
	}
	_, err = store.Users.InsertOne(ctx, bson.M{"_id": uuid.NewString(), "email": "a@x.com"})
	if !mongo.IsDuplicateKeyError(err) {
		t.Fatalf("expected duplicate key error for email, got %v", err)
	}

	userID := uuid.NewString()
	if _, err := store.Conversations.InsertOne(ctx, bson.M{"_id": uuid.NewString(), "user_id": userID}); err != nil {
		t.Fatalf("failed to insert conversation: %v", err)
	}
	_, err = store.Conversations.InsertOne(ctx, bson.M{"_id": uuid.NewString(), "user_id": userID})
	if !mongo.IsDuplicateKeyError(err) {
		t.Fatalf("expected duplicate key error for user_id, got %v", err)
	}
}

func TestMongoStateWithoutClient(t *testing.T) {
	var store *db.Mongo
	if state := store.State(context.Background()); state != db.StateUnknown {
		t.Fatalf("expected %q for nil store, got %q", db.StateUnknown, state)
	}
}
