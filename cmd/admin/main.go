package main

import (
	"fmt"
	"log"
	"os"

	"anonchat/backend/internal/config"
	"anonchat/backend/internal/storage"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	svc := storage.NewService(db, rdb)

	if len(os.Args) < 2 {
		fmt.Println("Usage: admin <command> [args]")
		fmt.Println("Commands: saved <owner_id> | transcript <chat_id> | active | searching | purge <chat_id>")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "saved":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin saved <owner_id>")
			os.Exit(1)
		}
		chats, err := svc.ListSavedChats(os.Args[2])
		if err != nil {
			log.Fatalf("Error listing saved chats: %v", err)
		}
		for chatID, title := range chats {
			fmt.Printf("%s\t%s\n", chatID, title)
		}
	case "transcript":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin transcript <chat_id>")
			os.Exit(1)
		}
		msgs, err := svc.LoadMessages(os.Args[2])
		if err != nil {
			log.Fatalf("Error loading transcript: %v", err)
		}
		for _, m := range msgs {
			fmt.Printf("%d\t%s\t%s\n", m.MessageID, m.SenderID, m.Text)
		}
	case "active":
		ids, err := svc.ActiveSessionIDs()
		if err != nil {
			log.Fatalf("Error listing active sessions: %v", err)
		}
		for _, id := range ids {
			fmt.Println(id)
		}
	case "searching":
		ids, err := svc.SearchingUsers()
		if err != nil {
			log.Fatalf("Error listing searching users: %v", err)
		}
		for _, id := range ids {
			fmt.Println(id)
		}
	case "purge":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin purge <chat_id>")
			os.Exit(1)
		}
		if err := svc.PurgeChat(os.Args[2]); err != nil {
			log.Fatalf("Error purging chat: %v", err)
		}
		fmt.Printf("Chat %s has been purged.\n", os.Args[2])
	default:
		fmt.Println("Unknown command")
		os.Exit(1)
	}
}
