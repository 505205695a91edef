package main

import (
	"context"
	"flag"
	"log"

	"go.uber.org/zap"

	"field-dispatch/internal/repositories"
	"field-dispatch/pkg/config"
	"field-dispatch/pkg/database/postgresql"
	applogger "field-dispatch/pkg/logger"
	"field-dispatch/seeders"
)

func main() {
	runAdmin := flag.Bool("admin", false, "create the initial admin from SEED_ADMIN_* settings")
	runDemo := flag.Bool("demo", false, "create demo technicians")
	runAll := flag.Bool("all", false, "run every seeder")
	flag.Parse()

	if !*runAdmin && !*runDemo && !*runAll {
		log.Println("no seeder selected, available flags:")
		flag.PrintDefaults()
		return
	}

	cfg := config.New()
	logger := applogger.NewLogger(cfg.Log.Level, "")
	defer logger.Sync()

	ctx := context.Background()
	dbPool, err := postgresql.ConnectDB(ctx, cfg.Postgres.DSN, logger)
	if err != nil {
		logger.Fatal("failed to connect to PostgreSQL", zap.Error(err))
	}
	defer dbPool.Close()

	if err := postgresql.Migrate(ctx, dbPool, logger); err != nil {
		logger.Fatal("failed to apply migrations", zap.Error(err))
	}

	seeder := seeders.New(repositories.NewUserRepository(dbPool, logger), logger)

	var accounts []seeders.Account
	if *runAll || *runAdmin {
		accounts = append(accounts, seeders.AdminAccount(cfg.Seed))
	}
	if *runAll || *runDemo {
		accounts = append(accounts, seeders.DemoTechnicians(cfg.Seed.DemoPassword)...)
	}

	created, err := seeder.Ensure(ctx, accounts...)
	if err != nil {
		logger.Fatal("seeding failed", zap.Error(err), zap.Int("created", created))
	}
	logger.Info("seeding finished", zap.Int("created", created), zap.Int("requested", len(accounts)))
}
