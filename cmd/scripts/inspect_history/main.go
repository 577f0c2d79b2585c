package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/wuwenbin0122/vishai/internal/db"
	"github.com/wuwenbin0122/vishai/internal/store"
	"github.com/wuwenbin0122/vishai/internal/utils"
)

func main() {
	email := flag.String("email", "", "account email whose conversation is printed")
	flag.Parse()

	if *email == "" {
		log.Fatal("usage: inspect_history -email user@example.com")
	}

	_ = godotenv.Load()

	ctx := context.Background()
	mongoStore, err := db.NewMongo(ctx, utils.LoadMongoConfig())
	if err != nil {
		log.Fatalf("connect mongo: %v", err)
	}
	defer mongoStore.Close(ctx)

	user, err := store.NewMongoUsers(mongoStore.Users).FindByEmail(ctx, store.NormalizeEmail(*email))
	if err != nil {
		log.Fatalf("find user %s: %v", *email, err)
	}

	messages, err := store.NewMongoChats(mongoStore.Conversations).History(ctx, user.ID)
	if err != nil {
		log.Fatalf("load history: %v", err)
	}

	fmt.Printf("user %s (%s): %d messages\n", user.Username, user.ID, len(messages))
	for _, msg := range messages {
		fmt.Printf("[%s] %-4s %s\n", msg.CreatedAt.Format("2006-01-02 15:04:05"), msg.Sender, msg.Text)
	}
}
