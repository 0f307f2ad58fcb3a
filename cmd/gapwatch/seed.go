package main

import (
	"fmt"

	"github.com/andresuchdata/gapwatch/internal/config"
	"github.com/andresuchdata/gapwatch/internal/repository/postgres"
	"github.com/andresuchdata/gapwatch/pkg/logger"
	"github.com/urfave/cli/v2"
)

func seedCommand(cfg *config.Config) *cli.Command {
	flags := append(sourceFlags(cfg),
		&cli.BoolFlag{
			Name:  "replace-sales",
			Usage: "Truncate the sales table before inserting",
			Value: true,
		},
	)

	return &cli.Command{
		Name:  "seed",
		Usage: "Load a csv or xlsx dataset into Postgres so cycles can run with --source postgres",
		Flags: flags,
		Action: func(c *cli.Context) error {
			if c.String("source") == "postgres" {
				return fmt.Errorf("seed reads from csv or xlsx, got source postgres")
			}

			ds, err := loadDataset(c.Context, c, cfg)
			if err != nil {
				return fmt.Errorf("load dataset: %w", err)
			}

			db, err := postgres.NewDB(&cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close()

			logger.Log.Info().Str("db", cfg.Database.DBName).Msg("starting database seeding")
			if err := postgres.NewDatasetRepository(db).Seed(c.Context, ds, c.Bool("replace-sales")); err != nil {
				return fmt.Errorf("seed failed: %w", err)
			}
			logger.Log.Info().Msg("database seeding completed")
			return nil
		},
	}
}
