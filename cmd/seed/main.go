package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/oggyb/elk-messaging/internal/config"
	"github.com/oggyb/elk-messaging/internal/db/gormdb"
	"github.com/oggyb/elk-messaging/internal/logger"
	mesgRepo "github.com/oggyb/elk-messaging/internal/repository/gorm/message"
	"github.com/oggyb/elk-messaging/internal/service"
)

func main() {
	count := flag.Int("count", 50, "number of PENDING messages to insert")
	flag.Parse()

	ctx := context.Background()

	// Load application configuration (DB, sender, etc.) from env/.env.
	cfg := config.New()
	log := logger.Component(logger.New(cfg.Log.Level, cfg.Log.Format, os.Stdout), "seed")

	gormAdapter, err := gormdb.New(cfg.PostgresDSN(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	log.Info().Str("db", cfg.DB.Name).Msg("connected to database")

	if err := gormAdapter.Migrate(&mesgRepo.MessageModel{}); err != nil {
		log.Fatal().Err(err).Msg("AutoMigrate failed")
	}

	sender := cfg.SMS.Sender
	if sender == "" {
		sender = "ElkSeed"
	}

	// Enqueue goes through the domain constructor, so seeded rows obey the
	// same rules as API traffic. No gateway calls are made here.
	svc := service.NewMessageService(
		mesgRepo.NewRepository(gormAdapter),
		nil,
		nil,
		nil,
		service.Options{DefaultSender: sender},
		log,
	)

	for i := 0; i < *count; i++ {
		in := service.EnqueueInput{
			To:      randomPhone(),
			Content: randomContent(i + 1),
		}
		// Every fifth message goes to two recipients.
		if i%5 == 4 {
			in.To += "," + randomPhone()
		}

		if _, err := svc.Enqueue(ctx, in); err != nil {
			log.Fatal().Err(err).Int("n", i+1).Msg("failed to save message")
		}
	}

	log.Info().Int("count", *count).Msg("seeding done")
}

// randomPhone generates a fake Swedish mobile number in E.164 format.
// Example output: +46701234567
func randomPhone() string {
	n := rand.Intn(90000000) + 10000000 // 8 digits
	return fmt.Sprintf("+467%d", n)
}

// randomContent generates a simple SMS body for seeding.
func randomContent(i int) string {
	now := time.Now().Format("15:04:05")
	return fmt.Sprintf("Seed message #%d queued at %s", i, now)
}
