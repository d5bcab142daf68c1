package integration

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/rakib/go-commerce-store/internal/models"
	"github.com/rakib/go-commerce-store/internal/store"
)

func setupTestDB(t *testing.T) (*sql.DB, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:14-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	postgres, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}

	host, err := postgres.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := postgres.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://testuser:testpass@%s:%s/testdb?sslmode=disable", host, port.Port())

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Fatalf("Failed to ping database: %v", err)
	}

	if err := runMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			t.Logf("Failed to close database: %v", err)
		}
		if err := postgres.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}

	return db, cleanup
}

func runMigrations(db *sql.DB) error {
	migrationDir := "../../migrations"
	files, err := os.ReadDir(migrationDir)
	if err != nil {
		return fmt.Errorf("read migration directory: %w", err)
	}

	var migrationFiles []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), ".up.sql") {
			migrationFiles = append(migrationFiles, file.Name())
		}
	}

	sort.Strings(migrationFiles)

	for _, filename := range migrationFiles {
		filePath := filepath.Join(migrationDir, filename)
		content, err := os.ReadFile(filePath)
		if err != nil {
			return fmt.Errorf("read migration file %s: %w", filename, err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("execute migration %s: %w", filename, err)
		}
	}

	return nil
}

// seedProduct creates a product with a size primary variant: M at stock,
// L at stock+10. Prices are 100/90 and 120/110.
func seedProduct(t *testing.T, db *sql.DB, slug string, stock int) *models.Product {
	t.Helper()

	product, err := store.CreateProduct(context.Background(), db, store.CreateProductRequest{
		Name:               "Test Shirt " + slug,
		Slug:               slug,
		Description:        "Test",
		Category:           "apparel",
		Tags:               []string{"test"},
		Images:             []string{"https://example.com/shirt.jpg"},
		PrimaryVariantType: models.VariantTypeSize,
		PrimaryVariants: []models.PrimaryVariantItem{
			{Value: "M", Price: decimal.NewFromInt(100), SellingPrice: decimal.NewFromInt(90), Stock: stock},
			{Value: "L", Price: decimal.NewFromInt(120), SellingPrice: decimal.NewFromInt(110), Stock: stock + 10},
		},
	})
	if err != nil {
		t.Fatalf("Seed product: %v", err)
	}

	return product
}

// orderFor builds a one-item create request against the product's M variant.
func orderFor(product *models.Product, quantity int) store.CreateOrderRequest {
	lineTotal := decimal.NewFromInt(90).Mul(decimal.NewFromInt(int64(quantity)))
	return store.CreateOrderRequest{
		CustomerInfo: models.CustomerInfo{
			FullName:    "Test Customer",
			Phone:       "+8801700000000",
			FullAddress: "House 1, Road 1",
			Country:     "Bangladesh",
		},
		ShippingOption: models.ShippingDomesticCapital,
		ShippingCost:   decimal.NewFromInt(60),
		Items: []store.OrderItemRequest{
			{
				ProductID:        product.ID,
				Quantity:         quantity,
				PrimaryType:      models.VariantTypeSize,
				PrimaryValue:     "M",
				UnitPrice:        decimal.NewFromInt(100),
				UnitSellingPrice: decimal.NewFromInt(90),
				LineTotal:        lineTotal,
			},
		},
		Subtotal: lineTotal,
		Total:    lineTotal.Add(decimal.NewFromInt(60)),
		PaymentDetails: models.PaymentDetails{
			Method:        models.PaymentMethodBkash,
			Phone:         "+8801700000000",
			TransactionID: "TX123456",
		},
	}
}

// variantStock returns the stock of the product's variant with that value.
func variantStock(t *testing.T, db *sql.DB, productID int64, value string) int {
	t.Helper()

	product, err := store.GetProduct(context.Background(), db, productID)
	if err != nil {
		t.Fatalf("Get product: %v", err)
	}
	for _, item := range product.PrimaryVariants {
		if item.Value == value {
			return item.Stock
		}
	}
	t.Fatalf("Variant %q not found on product %d", value, productID)
	return 0
}

func salesCount(t *testing.T, db *sql.DB, productID int64) int {
	t.Helper()

	product, err := store.GetProduct(context.Background(), db, productID)
	if err != nil {
		t.Fatalf("Get product: %v", err)
	}
	return product.SalesCount
}
