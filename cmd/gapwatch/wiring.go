package main

import (
	"context"
	"fmt"

	"github.com/andresuchdata/gapwatch/internal/config"
	"github.com/andresuchdata/gapwatch/internal/domain"
	"github.com/andresuchdata/gapwatch/internal/repository/postgres"
	"github.com/andresuchdata/gapwatch/internal/source"
	"github.com/urfave/cli/v2"
)

func sourceFlags(cfg *config.Config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "source",
			Usage:   "Input source: csv, xlsx or postgres",
			Value:   cfg.Source.Kind,
			EnvVars: []string{"SOURCE_KIND"},
		},
		&cli.StringFlag{
			Name:    "products",
			Usage:   "Product catalog CSV",
			Value:   cfg.Source.ProductsPath,
			EnvVars: []string{"SOURCE_PRODUCTS_PATH"},
		},
		&cli.StringFlag{
			Name:    "transactions",
			Usage:   "Sales transactions CSV",
			Value:   cfg.Source.TransactionsPath,
			EnvVars: []string{"SOURCE_TRANSACTIONS_PATH"},
		},
		&cli.StringFlag{
			Name:    "territories",
			Usage:   "Territory lookup CSV (optional)",
			Value:   cfg.Source.TerritoriesPath,
			EnvVars: []string{"SOURCE_TERRITORIES_PATH"},
		},
		&cli.StringFlag{
			Name:    "workbook",
			Usage:   "Workbook holding products, sales and territories sheets",
			Value:   cfg.Source.WorkbookPath,
			EnvVars: []string{"SOURCE_WORKBOOK_PATH"},
		},
	}
}

func dimensionFlag(cfg *config.Config) cli.Flag {
	return &cli.StringFlag{
		Name:    "dimension",
		Aliases: []string{"d"},
		Usage:   "Grouping: category, subcategory, territory or subcategory_territory",
		Value:   cfg.App.Dimension,
		EnvVars: []string{"APP_DIMENSION"},
	}
}

func resolveDimension(c *cli.Context) (domain.Dimension, error) {
	dim, ok := domain.LookupDimension(c.String("dimension"))
	if !ok {
		return domain.Dimension{}, fmt.Errorf("unknown dimension %q", c.String("dimension"))
	}
	return dim, nil
}

// loadDataset builds the configured loader and reads the cycle's input.
func loadDataset(ctx context.Context, c *cli.Context, cfg *config.Config) (domain.Dataset, error) {
	var loader source.Loader
	switch kind := c.String("source"); kind {
	case "csv":
		loader = source.CSVLoader{
			ProductsPath:     c.String("products"),
			TransactionsPath: c.String("transactions"),
			TerritoriesPath:  c.String("territories"),
		}
	case "xlsx":
		loader = source.XLSXLoader{
			Path:             c.String("workbook"),
			ProductsSheet:    cfg.Source.ProductsSheet,
			SalesSheet:       cfg.Source.SalesSheet,
			TerritoriesSheet: cfg.Source.TerritoriesSheet,
		}
	case "postgres":
		db, err := postgres.NewDB(&cfg.Database)
		if err != nil {
			return domain.Dataset{}, err
		}
		defer db.Close()
		loader = postgres.NewDatasetRepository(db)
	default:
		return domain.Dataset{}, fmt.Errorf("unknown source %q", kind)
	}

	return loader.Load(ctx)
}
