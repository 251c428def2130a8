package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/bonlog/bonlog/internal/pkg/billing"
	"github.com/bonlog/bonlog/internal/pkg/database"
	"github.com/bonlog/bonlog/internal/pkg/env"
)

// Batch reconciliation of every user holding a subscription reference
// against the billing provider. Run from cron, typically daily.
func main() {
	env.SetupEnvFile()
	database.SetupDatabase()

	db := database.GetDB()
	if db == nil {
		log.Fatal("[Reconcile] database connection not available")
	}

	timeout := time.Duration(env.GetEnvInt("RECONCILE_TIMEOUT_MINUTES", 30)) * time.Minute
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	svc := billing.NewServiceFromDB(db)

	start := time.Now()
	summary, err := svc.ReconcileAll(ctx)
	if err != nil {
		log.Printf("[Reconcile] run aborted after %s: %v", time.Since(start).Round(time.Second), err)
		os.Exit(1)
	}

	log.Printf("[Reconcile] done in %s: scanned=%d synced=%d errors=%d",
		time.Since(start).Round(time.Second), summary.Scanned, summary.Synced, summary.Errors)

	// Per-user provider errors are logged inside the run; they are retried
	// on the next run and must not fail the whole batch.
	if summary.Errors > 0 {
		os.Exit(1)
	}
}
