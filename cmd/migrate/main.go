package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/locojk/GNG-5300-Group-Backend/internal/database"
	"github.com/spf13/viper"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	v := viper.New()
	v.SetDefault("MONGO_DB_NAME", "fitness")
	v.AutomaticEnv()

	mongoURI := v.GetString("MONGO_URI")
	if mongoURI == "" {
		log.Fatal("MONGO_URI environment variable is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client, err := database.Connect(ctx, mongoURI)
	if err != nil {
		log.Fatal(err)
	}
	defer database.Close(context.Background(), client)

	db := client.Database(v.GetString("MONGO_DB_NAME"))

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "down":
		if err := database.DropIndexes(ctx, db); err != nil {
			log.Fatal(err)
		}
		log.Println("Index drop successful")
	case "up":
		if err := database.EnsureIndexes(ctx, db); err != nil {
			log.Fatal(err)
		}
		log.Println("Index creation successful")
	default:
		log.Fatalf("unknown command %q, expected up or down", cmd)
	}
}
