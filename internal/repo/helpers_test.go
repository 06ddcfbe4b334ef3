package repo

import (
	"context"
	"path/filepath"
	"testing"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newRepoDB opens a migrated SQLite file under t.TempDir.
func newRepoDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "repo_test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	db.Logger = logger.Default.LogMode(logger.Silent)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	return db
}

// printSeed is a small catalog shared by the catalog tests.
func printSeed() CatalogSeed {
	return CatalogSeed{
		Attributes: []AttributeSeed{
			{Name: "Paper", Options: []string{"Matte", "Gloss"}},
			{Name: "Quantity", Options: []string{"100", "500"}},
		},
		Categories: []CategorySeed{
			{Name: "Stationery", SubCategories: []SubCategorySeed{
				{Name: "Letterheads"},
			}},
			{Name: "Business Cards", SubCategories: []SubCategorySeed{
				{Name: "Standard", Products: []ProductSeed{
					{Name: "Classic Card", Attributes: map[string]string{"Paper": "Matte", "Quantity": "100"}},
					{Name: "Glossy Card", Attributes: map[string]string{"Paper": "Gloss", "Quantity": "500"}},
					{Name: "Retired Card", Inactive: true, Attributes: map[string]string{"Paper": "Matte"}},
				}},
				{Name: "Premium"},
				{Name: "Archived", Inactive: true},
			}},
			{Name: "Old Stuff", Inactive: true},
		},
	}
}

func seedPrint(t *testing.T, db *gorm.DB) {
	t.Helper()
	if _, err := SeedCatalog(context.Background(), db, printSeed()); err != nil {
		t.Fatalf("SeedCatalog: %v", err)
	}
}
