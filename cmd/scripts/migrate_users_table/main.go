package main

import (
	"context"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/wuwenbin0122/vishai/internal/db"
	"github.com/wuwenbin0122/vishai/internal/utils"
)

func main() {
	_ = godotenv.Load()
	cfg, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx := context.Background()
	postgres, err := db.NewPostgres(ctx, cfg.Postgres)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer postgres.Close()

	if err := postgres.EnsureSchema(ctx); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}

	const verify = `SELECT column_name, data_type FROM information_schema.columns WHERE table_schema = 'public' AND table_name = 'users' ORDER BY ordinal_position`
	rows, err := postgres.Pool.Query(ctx, verify)
	if err != nil {
		log.Fatalf("verify columns: %v", err)
	}
	defer rows.Close()

	fmt.Println("users columns:")
	for rows.Next() {
		var name, dataType string
		if err := rows.Scan(&name, &dataType); err != nil {
			log.Fatalf("scan column: %v", err)
		}
		fmt.Printf("- %s (%s)\n", name, dataType)
	}
	if err := rows.Err(); err != nil {
		log.Fatalf("iterate columns: %v", err)
	}
}
