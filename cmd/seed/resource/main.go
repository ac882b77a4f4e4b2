package main

import (
	"context"
	"log"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"resource-ledger/pkg/config"
	"resource-ledger/pkg/db"
	"resource-ledger/pkg/gen"
	"resource-ledger/pkg/logger"
	"resource-ledger/services/ledger"
	"resource-ledger/services/points"
	"resource-ledger/services/resource"
)

const seedActor = "seed"

func ptr[T any](v T) *T { return &v }

// catalog is demonstration data. Resources whose name already exists are
// left untouched, so the seeder can run repeatedly.
var catalog = []resource.CreateParams{
	{Name: "Wood", Category: resource.CategoryRaw, QuantityHagga: 1250, TargetQuantity: ptr(int64(1125))},
	{Name: "Stone", Category: resource.CategoryRaw, QuantityHagga: 850, TargetQuantity: ptr(int64(1275))},
	{Name: "Iron Ore", Category: resource.CategoryRaw, QuantityHagga: 450, TargetQuantity: ptr(int64(1350)), IsPriority: true},
	{Name: "Cotton", Category: resource.CategoryRaw, QuantityHagga: 2100, TargetQuantity: ptr(int64(1890))},
	{Name: "Water", Category: resource.CategoryRaw, QuantityHagga: 5000, TargetQuantity: ptr(int64(4500))},
	{Name: "Clay", Category: resource.CategoryRaw, QuantityHagga: 120, TargetQuantity: ptr(int64(360))},
	{Name: "Spice Melange", Category: resource.CategoryRaw, QuantityHagga: 300, QuantityDeepDesert: 900, TargetQuantity: ptr(int64(2000)), Multiplier: ptr(2.0), IsPriority: true},
	{Name: "Plastanium Ingot", Category: resource.CategoryRefined, QuantityHagga: 40, TargetQuantity: ptr(int64(200)), Multiplier: ptr(1.5)},
	{Name: "Steel Ingot", Category: resource.CategoryRefined, QuantityHagga: 600, TargetQuantity: ptr(int64(500))},
	{Name: "Solari", Category: resource.CategoryOther, QuantityHagga: 10000},
}

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		gen.Module,
		fx.Provide(
			ledger.NewService,
			resource.NewService,
		),
		fx.Invoke(seed),
		fx.NopLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)
	if err := app.Err(); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
}

func seed(conn *gorm.DB, svc *resource.Service) error {
	if err := db.Migrate(conn, &resource.Resource{}, &ledger.Entry{}, &points.Entry{}); err != nil {
		return err
	}

	ctx := context.Background()
	var created int
	for _, p := range catalog {
		var count int64
		if err := conn.WithContext(ctx).Model(&resource.Resource{}).Where("name = ?", p.Name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			zap.L().Info("resource exists, skipping", zap.String("name", p.Name))
			continue
		}

		res, err := svc.Create(ctx, p, seedActor)
		if err != nil {
			return err
		}
		created++
		zap.L().Info("resource seeded", zap.String("name", res.Name), zap.String("id", res.ID))
	}

	zap.L().Info("seeding finished", zap.Int("created", created), zap.Int("total", len(catalog)))
	return nil
}
