// Package catalog is the product read path plus the admin insertion command.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"storefront-bot/internal/logger"
	"storefront-bot/internal/models"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrValidation      = errors.New("validation error")
)

type DBLayer interface {
	GetProduct(ctx context.Context, productID int64) (*models.Product, error)
	ListCities(ctx context.Context) ([]string, error)
	ListProducts(ctx context.Context, city string) ([]models.Product, error)
	InsertProduct(ctx context.Context, p *models.Product) error
	InsertProducts(ctx context.Context, products []models.Product) error
	CountProducts(ctx context.Context) (int, error)
}

type CatalogService struct {
	DB     DBLayer
	Logger *logger.Logger
}

func NewCatalogService(db DBLayer, log *logger.Logger) *CatalogService {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &CatalogService{DB: db, Logger: log}
}

// DemoProducts is the starter catalog inserted into an empty database.
func DemoProducts() []models.Product {
	return []models.Product{
		{City: "KRYVYI RIH", Name: "Coffee beans", Variant: "250 g", Price: 280, Description: "Fresh roast"},
		{City: "KRYVYI RIH", Name: "Coffee beans", Variant: "500 g", Price: 560, Description: "Fresh roast"},
		{City: "KRYVYI RIH", Name: "Loose leaf tea", Variant: "100 g", Price: 220, Description: "Rich taste"},
	}
}

// SeedDemo fills an empty catalog and reports how many rows it inserted.
func (s *CatalogService) SeedDemo(ctx context.Context) (int, error) {
	count, err := s.DB.CountProducts(ctx)
	if err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	if count > 0 {
		return 0, nil
	}
	demo := DemoProducts()
	if err := s.DB.InsertProducts(ctx, demo); err != nil {
		return 0, fmt.Errorf("seed products: %w", err)
	}
	s.Logger.LogDatabase("SEED", "products", fmt.Sprintf("inserted %d demo products", len(demo)))
	return len(demo), nil
}

func (s *CatalogService) GetProduct(ctx context.Context, productID int64) (*models.Product, error) {
	return s.DB.GetProduct(ctx, productID)
}

func (s *CatalogService) ListCities(ctx context.Context) ([]string, error) {
	return s.DB.ListCities(ctx)
}

func (s *CatalogService) ListProducts(ctx context.Context, city string) ([]models.Product, error) {
	return s.DB.ListProducts(ctx, city)
}

// AddProduct parses an admin line and stores the product.
func (s *CatalogService) AddProduct(ctx context.Context, line string) (*models.Product, error) {
	p, err := ParseProductLine(line)
	if err != nil {
		return nil, err
	}
	if err := s.DB.InsertProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("insert product: %w", err)
	}
	s.Logger.LogDatabase("INSERT", "products", fmt.Sprintf("#%d %s • %s (%s)", p.ID, p.Name, p.Variant, p.City))
	return p, nil
}

// ParseProductLine reads "city|name|variant|price|description". The
// description may be omitted; the city is upper-cased like the seed data.
func ParseProductLine(line string) (*models.Product, error) {
	parts := strings.Split(line, "|")
	if len(parts) < 4 || len(parts) > 5 {
		return nil, fmt.Errorf("%w: expected city|name|variant|price|description", ErrValidation)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	city, name, variant := strings.ToUpper(parts[0]), parts[1], parts[2]
	if city == "" || name == "" || variant == "" {
		return nil, fmt.Errorf("%w: city, name and variant are required", ErrValidation)
	}

	price, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: price %q is not a number", ErrValidation, parts[3])
	}
	if price <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", ErrValidation)
	}

	p := &models.Product{City: city, Name: name, Variant: variant, Price: price}
	if len(parts) == 5 {
		p.Description = parts[4]
	}
	return p, nil
}
