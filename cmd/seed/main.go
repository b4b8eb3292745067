package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/angelmondragon/maillot-backend/pkg/config"
	"github.com/angelmondragon/maillot-backend/pkg/db"
	"github.com/angelmondragon/maillot-backend/pkg/logger"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "seed"})

	_ = godotenv.Load()

	staffEmail := flag.String("staff-email", os.Getenv("MAILLOT_SEED_STAFF_EMAIL"), "email of the staff account to create")
	staffPassword := flag.String("staff-password", os.Getenv("MAILLOT_SEED_STAFF_PASSWORD"), "password of the staff account")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "seed",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithField(context.Background(), "env", cfg.App.Env)

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	var (
		out          summary
		staffCreated bool
	)
	err = dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		if out, err = seedCatalog(ctx, tx); err != nil {
			return err
		}
		staffCreated, err = seedStaff(ctx, tx, *staffEmail, *staffPassword, cfg.Password)
		return err
	})
	if err != nil {
		logg.Error(ctx, "seed failed", err)
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}

	logg.Info(logg.WithFields(ctx, map[string]any{
		"categories":     out.Categories,
		"teams":          out.Teams,
		"products_added": out.Products,
		"customizations": out.Customizations,
		"staff_created":  staffCreated,
	}), "seed complete")
}
