package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/andresuchdata/gapwatch/internal/domain"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

// Schema creates the source tables read by DatasetRepository.
const Schema = `
CREATE TABLE IF NOT EXISTS products (
	product_key TEXT PRIMARY KEY,
	category    TEXT NOT NULL DEFAULT '',
	subcategory TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS territories (
	territory_key TEXT PRIMARY KEY,
	region        TEXT NOT NULL DEFAULT '',
	country       TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS sales (
	id            BIGSERIAL PRIMARY KEY,
	order_number  TEXT NOT NULL,
	product_key   TEXT NOT NULL,
	category      TEXT NOT NULL DEFAULT '',
	subcategory   TEXT NOT NULL DEFAULT '',
	quantity      INTEGER NOT NULL DEFAULT 0,
	customer_key  TEXT NOT NULL DEFAULT '',
	order_date    TEXT NOT NULL DEFAULT '',
	territory_key TEXT NOT NULL DEFAULT ''
);
`

const (
	selectProducts = `SELECT product_key, category, subcategory FROM products ORDER BY product_key`

	selectTransactions = `
		SELECT order_number, product_key, category, subcategory, quantity,
		       customer_key, order_date, territory_key
		FROM sales
		ORDER BY id`

	selectTerritories = `SELECT territory_key, region, country FROM territories ORDER BY territory_key`

	upsertProduct = `
		INSERT INTO products (product_key, category, subcategory)
		VALUES (:product_key, :category, :subcategory)
		ON CONFLICT (product_key)
		DO UPDATE SET category = EXCLUDED.category, subcategory = EXCLUDED.subcategory`

	upsertTerritory = `
		INSERT INTO territories (territory_key, region, country)
		VALUES (:territory_key, :region, :country)
		ON CONFLICT (territory_key)
		DO UPDATE SET region = EXCLUDED.region, country = EXCLUDED.country`

	insertTransaction = `
		INSERT INTO sales (order_number, product_key, category, subcategory, quantity,
		                   customer_key, order_date, territory_key)
		VALUES (:order_number, :product_key, :category, :subcategory, :quantity,
		        :customer_key, :order_date, :territory_key)`
)

const seedBatchSize = 500

// DatasetRepository reads and seeds the catalog, sales and territory tables.
type DatasetRepository struct {
	db *DB
}

func NewDatasetRepository(db *DB) *DatasetRepository {
	return &DatasetRepository{db: db}
}

// Load reads a consistent Dataset inside one read-only transaction.
func (r *DatasetRepository) Load(ctx context.Context) (domain.Dataset, error) {
	var ds domain.Dataset

	err := r.db.WithTx(ctx, &sql.TxOptions{ReadOnly: true, Isolation: sql.LevelRepeatableRead}, func(tx *sqlx.Tx) error {
		if err := tx.SelectContext(ctx, &ds.Products, selectProducts); err != nil {
			return fmt.Errorf("failed to load products: %w", err)
		}
		if err := tx.SelectContext(ctx, &ds.Transactions, selectTransactions); err != nil {
			return fmt.Errorf("failed to load sales: %w", err)
		}
		if err := tx.SelectContext(ctx, &ds.Territories, selectTerritories); err != nil {
			return fmt.Errorf("failed to load territories: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Dataset{}, err
	}

	log.Info().
		Int("products", len(ds.Products)).
		Int("transactions", len(ds.Transactions)).
		Int("territories", len(ds.Territories)).
		Msg("source: postgres dataset loaded")
	return ds, nil
}

// Seed creates the schema and writes ds. When replaceSales is set the sales table is
// truncated first, otherwise rows are appended.
func (r *DatasetRepository) Seed(ctx context.Context, ds domain.Dataset, replaceSales bool) error {
	return r.db.WithTx(ctx, nil, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, Schema); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
		if replaceSales {
			if _, err := tx.ExecContext(ctx, `TRUNCATE sales`); err != nil {
				return fmt.Errorf("failed to truncate sales: %w", err)
			}
		}

		if err := execNamedEach(ctx, tx, upsertProduct, ds.Products); err != nil {
			return fmt.Errorf("failed to upsert products: %w", err)
		}
		if err := execNamedEach(ctx, tx, upsertTerritory, ds.Territories); err != nil {
			return fmt.Errorf("failed to upsert territories: %w", err)
		}
		if err := execNamedEach(ctx, tx, insertTransaction, ds.Transactions); err != nil {
			return fmt.Errorf("failed to insert sales: %w", err)
		}

		log.Info().
			Int("products", len(ds.Products)).
			Int("transactions", len(ds.Transactions)).
			Int("territories", len(ds.Territories)).
			Msg("seed: dataset written")
		return nil
	})
}

// execNamedEach runs the prepared query once per row, checking ctx every seedBatchSize rows.
func execNamedEach[T any](ctx context.Context, tx *sqlx.Tx, query string, rows []T) error {
	stmt, err := tx.PrepareNamedContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, row := range rows {
		if _, err := stmt.ExecContext(ctx, row); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		if (i+1)%seedBatchSize == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
	}
	return nil
}
