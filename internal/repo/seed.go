package repo

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/go-printshop-assistant/internal/domain"
)

// CatalogSeed describes a catalog to load, typically decoded from YAML.
type CatalogSeed struct {
	Attributes []AttributeSeed `yaml:"attributes"`
	Categories []CategorySeed  `yaml:"categories"`
}

type AttributeSeed struct {
	Name    string   `yaml:"name"`
	Options []string `yaml:"options"`
}

type CategorySeed struct {
	Name          string            `yaml:"name"`
	Inactive      bool              `yaml:"inactive"`
	SubCategories []SubCategorySeed `yaml:"sub_categories"`
}

type SubCategorySeed struct {
	Name     string        `yaml:"name"`
	Inactive bool          `yaml:"inactive"`
	Products []ProductSeed `yaml:"products"`
}

// ProductSeed maps attribute names to the value the product offers.
type ProductSeed struct {
	Name       string            `yaml:"name"`
	Inactive   bool              `yaml:"inactive"`
	Attributes map[string]string `yaml:"attributes"`
}

// SeedStats reports how many rows a seed run created.
type SeedStats struct {
	Categories    int
	SubCategories int
	Products      int
	Attributes    int
	Links         int
}

// SeedCatalog upserts the catalog by name inside one transaction. Existing
// rows keep their ids; their activity flag and attribute options are
// refreshed. Running the same seed twice creates nothing the second time.
func SeedCatalog(ctx context.Context, db *gorm.DB, seed CatalogSeed) (SeedStats, error) {
	var st SeedStats
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		attrs := make(map[string]domain.Attribute, len(seed.Attributes))
		for _, as := range seed.Attributes {
			name := strings.TrimSpace(as.Name)
			if name == "" {
				return fmt.Errorf("attribute with empty name")
			}
			a := domain.Attribute{Name: name}
			res := tx.Where(domain.Attribute{Name: name}).FirstOrCreate(&a)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected > 0 {
				st.Attributes++
			}
			opts := strings.Join(as.Options, ",")
			if a.Options != opts {
				if err := tx.Model(&a).Update("options", opts).Error; err != nil {
					return err
				}
				a.Options = opts
			}
			attrs[strings.ToLower(name)] = a
		}

		for _, cs := range seed.Categories {
			cat := domain.Category{Name: strings.TrimSpace(cs.Name)}
			created, err := upsertActive(tx, &cat, domain.Category{Name: cat.Name}, !cs.Inactive)
			if err != nil {
				return err
			}
			if created {
				st.Categories++
			}

			for _, ss := range cs.SubCategories {
				sub := domain.SubCategory{CategoryID: cat.ID, Name: strings.TrimSpace(ss.Name)}
				created, err := upsertActive(tx, &sub, domain.SubCategory{CategoryID: cat.ID, Name: sub.Name}, !ss.Inactive)
				if err != nil {
					return err
				}
				if created {
					st.SubCategories++
				}

				for _, ps := range ss.Products {
					p := domain.Product{CategoryID: cat.ID, SubCategoryID: sub.ID, Name: strings.TrimSpace(ps.Name)}
					created, err := upsertActive(tx, &p, domain.Product{CategoryID: cat.ID, SubCategoryID: sub.ID, Name: p.Name}, !ps.Inactive)
					if err != nil {
						return err
					}
					if created {
						st.Products++
					}

					for attrName, value := range ps.Attributes {
						a, ok := attrs[strings.ToLower(strings.TrimSpace(attrName))]
						if !ok {
							return fmt.Errorf("product %q references unknown attribute %q", p.Name, attrName)
						}
						link := domain.ProductAttribute{ProductID: p.ID, AttributeID: a.ID, Value: strings.TrimSpace(value)}
						res := tx.Where(domain.ProductAttribute{ProductID: p.ID, AttributeID: a.ID, Value: link.Value}).FirstOrCreate(&link)
						if res.Error != nil {
							return res.Error
						}
						if res.RowsAffected > 0 {
							st.Links++
						}
					}
				}
			}
		}
		return nil
	})
	return st, err
}

// upsertActive finds-or-creates dst by the where template and makes sure its
// is_active column equals active. It reports whether a row was created.
func upsertActive[T any](tx *gorm.DB, dst *T, where T, active bool) (bool, error) {
	res := tx.Where(where).FirstOrCreate(dst)
	if res.Error != nil {
		return false, res.Error
	}
	if err := tx.Model(dst).Update("is_active", active).Error; err != nil {
		return false, err
	}
	return res.RowsAffected > 0, nil
}
