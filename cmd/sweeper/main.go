package main

import (
	"context"
	"log"
	"time"

	"github.com/bonlog/bonlog/internal/pkg/billing"
	"github.com/bonlog/bonlog/internal/pkg/database"
	"github.com/bonlog/bonlog/internal/pkg/env"
)

// Drops the premium flag of users whose paid period has lapsed. Covers
// webhooks that never arrived; run hourly from cron.
func main() {
	env.SetupEnvFile()
	database.SetupDatabase()

	db := database.GetDB()
	if db == nil {
		log.Fatal("[Sweeper] database connection not available")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	svc := billing.NewServiceFromDB(db)

	demoted, err := svc.SweepExpired(ctx)
	if err != nil {
		log.Fatalf("[Sweeper] sweep failed: %v", err)
	}

	log.Printf("[Sweeper] done: demoted=%d", demoted)
}
