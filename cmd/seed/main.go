// Command seed fills the storefront catalog with categories, subcategories
// and a deterministic set of products. Re-running it skips what exists.
//
// Run: go run ./cmd/seed -products 500
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository/postgres"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/migrations"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/logger"
)

var catalog = []struct {
	name          string
	subcategories []string
}{
	{"Home & Kitchen", []string{"Lighting", "Cookware", "Storage"}},
	{"Electronics", []string{"Audio", "Accessories"}},
	{"Sports & Outdoors", []string{"Camping", "Cycling"}},
	{"Books", []string{"Fiction", "Cooking"}},
}

var (
	adjectives = []string{"Classic", "Compact", "Deluxe", "Rustic", "Modern", "Vintage", "Travel", "Pro"}
	nouns      = []string{"Lamp", "Kettle", "Speaker", "Tent", "Bottle", "Backpack", "Novel", "Skillet", "Cable", "Basket"}
)

func main() {
	products := flag.Int("products", 200, "number of products to create")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New("storefront-seed", cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := run(ctx, cfg, log, *products); err != nil {
		log.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger, n int) error {
	pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), log)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	uow := postgres.NewUnitOfWork(pool)
	categories := service.NewCategoryService(uow, log)
	productSvc := service.NewProductService(uow, log)

	subIDs, err := seedCategories(ctx, categories)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(42))
	created, skipped := 0, 0
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("%s %s %03d", adjectives[rng.Intn(len(adjectives))], nouns[rng.Intn(len(nouns))], i+1)
		_, err := productSvc.CreateProduct(ctx, domain.CreateProductInput{
			Name:          name,
			Description:   "Seeded product " + name,
			Price:         int64(500 + rng.Intn(20000)),
			Stock:         rng.Intn(50),
			SubcategoryID: subIDs[rng.Intn(len(subIDs))],
		})
		switch {
		case err == nil:
			created++
		case apperrors.CodeOf(err) == domain.CodeDuplicateName:
			skipped++
		default:
			return fmt.Errorf("create product %q: %w", name, err)
		}
	}

	log.Info("seed completed",
		slog.Int("products_created", created),
		slog.Int("products_skipped", skipped),
		slog.Int("subcategories", len(subIDs)),
	)
	return nil
}

// seedCategories creates the missing categories and subcategories and returns
// every subcategory id.
func seedCategories(ctx context.Context, svc *service.CategoryService) ([]string, error) {
	existing, err := svc.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]domain.Category, len(existing))
	for _, c := range existing {
		byName[c.Name] = c
	}

	var subIDs []string
	for _, def := range catalog {
		catName := def.name
		cat, ok := byName[catName]
		if !ok {
			created, err := svc.CreateCategory(ctx, domain.CategoryInput{Name: &catName})
			if err != nil {
				return nil, fmt.Errorf("create category %q: %w", catName, err)
			}
			cat = *created
		}

		have := make(map[string]string, len(cat.Subcategories))
		for _, s := range cat.Subcategories {
			have[s.Name] = s.ID
		}
		for _, subName := range def.subcategories {
			if id, ok := have[subName]; ok {
				subIDs = append(subIDs, id)
				continue
			}
			sub, err := svc.CreateSubcategory(ctx, cat.ID, domain.CategoryInput{Name: &subName})
			if err != nil {
				return nil, fmt.Errorf("create subcategory %q: %w", subName, err)
			}
			subIDs = append(subIDs, sub.ID)
		}
	}
	return subIDs, nil
}
