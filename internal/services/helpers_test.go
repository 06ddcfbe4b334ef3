package services

import (
	"context"
	"path/filepath"
	"testing"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-printshop-assistant/internal/dialogue"
	"github.com/tbourn/go-printshop-assistant/internal/repo"
	"github.com/tbourn/go-printshop-assistant/internal/session"
)

type responderFunc func(ctx context.Context, text string) (string, error)

func (f responderFunc) Respond(ctx context.Context, text string) (string, error) { return f(ctx, text) }

func echoResponder() dialogue.Responder {
	return responderFunc(func(_ context.Context, text string) (string, error) {
		return "You said: " + text, nil
	})
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "services_test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	db.Logger = logger.Default.LogMode(logger.Silent)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	return db
}

func seedCatalog(t *testing.T, db *gorm.DB) {
	t.Helper()
	seed := repo.CatalogSeed{
		Attributes: []repo.AttributeSeed{
			{Name: "Paper", Options: []string{"Matte", "Gloss"}},
			{Name: "Quantity", Options: []string{"100", "500"}},
		},
		Categories: []repo.CategorySeed{
			{Name: "Business Cards", SubCategories: []repo.SubCategorySeed{
				{Name: "Standard", Products: []repo.ProductSeed{
					{Name: "Classic Card", Attributes: map[string]string{"Paper": "Matte", "Quantity": "100"}},
					{Name: "Glossy Card", Attributes: map[string]string{"Paper": "Gloss", "Quantity": "500"}},
				}},
			}},
			{Name: "Banners"},
		},
	}
	if _, err := repo.SeedCatalog(context.Background(), db, seed); err != nil {
		t.Fatalf("SeedCatalog: %v", err)
	}
}

func newAssistant(t *testing.T, db *gorm.DB, r dialogue.Responder) *AssistantService {
	t.Helper()
	return NewAssistantService(db, dialogue.NewEngine(r), session.NewMemoryStore(), session.NewKeyedMutex())
}
