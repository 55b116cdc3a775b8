package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"storefront-bot/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// GetProduct → fetch one product by id
func (d *DB) GetProduct(ctx context.Context, productID int64) (*models.Product, error) {
	var p models.Product
	err := d.Bun.NewSelect().
		Model(&p).
		Where("id = ?", productID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %d: %w", productID, ErrProductNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListCities → distinct cities that have at least one product
func (d *DB) ListCities(ctx context.Context) ([]string, error) {
	var cities []string
	err := d.Bun.NewSelect().
		Model((*models.Product)(nil)).
		ColumnExpr("DISTINCT city").
		OrderExpr("city ASC").
		Scan(ctx, &cities)
	if err != nil {
		return nil, err
	}
	return cities, nil
}

// ListProducts → products of one city ordered by name, then price
func (d *DB) ListProducts(ctx context.Context, city string) ([]models.Product, error) {
	products := []models.Product{}
	err := d.Bun.NewSelect().
		Model(&products).
		Where("city = ?", city).
		OrderExpr("name ASC, price ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (d *DB) InsertProduct(ctx context.Context, p *models.Product) error {
	_, err := d.Bun.NewInsert().Model(p).Returning("id").Exec(ctx)
	return err
}

func (d *DB) InsertProducts(ctx context.Context, products []models.Product) error {
	if len(products) == 0 {
		return nil
	}
	_, err := d.Bun.NewInsert().Model(&products).Exec(ctx)
	return err
}

func (d *DB) CountProducts(ctx context.Context) (int, error) {
	return d.Bun.NewSelect().Model((*models.Product)(nil)).Count(ctx)
}
