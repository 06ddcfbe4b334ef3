package domain

import (
	"strings"
	"time"
)

// Category is a top-level catalog grouping ("Business Cards", "Banners").
type Category struct {
	ID        uint      `json:"id"        gorm:"primaryKey"`
	Name      string    `json:"name"      gorm:"type:varchar(128);not null;uniqueIndex"`
	IsActive  bool      `json:"is_active" gorm:"not null;default:true;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Category) TableName() string { return "categories" }

// SubCategory belongs to one Category. Names are unique within a category.
type SubCategory struct {
	ID         uint      `json:"id"          gorm:"primaryKey"`
	CategoryID uint      `json:"category_id" gorm:"not null;uniqueIndex:ux_sub_categories_name,priority:1"`
	Name       string    `json:"name"        gorm:"type:varchar(128);not null;uniqueIndex:ux_sub_categories_name,priority:2"`
	IsActive   bool      `json:"is_active"   gorm:"not null;default:true;index"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Category Category `json:"-" gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE"`
}

func (SubCategory) TableName() string { return "sub_categories" }

// Product is a printable item listed under a category and sub-category.
type Product struct {
	ID            uint      `json:"id"              gorm:"primaryKey"`
	Name          string    `json:"name"            gorm:"type:varchar(255);not null"`
	CategoryID    uint      `json:"category_id"     gorm:"not null;index:idx_products_pair,priority:1"`
	SubCategoryID uint      `json:"sub_category_id" gorm:"not null;index:idx_products_pair,priority:2"`
	IsActive      bool      `json:"is_active"       gorm:"not null;default:true"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Product) TableName() string { return "products" }

// Attribute is a configurable product property such as "Paper" or "Finish".
// Options holds the allowed values as a comma separated list.
type Attribute struct {
	ID        uint      `json:"id"      gorm:"primaryKey"`
	Name      string    `json:"name"    gorm:"type:varchar(128);not null"`
	Options   string    `json:"options" gorm:"type:text;not null;default:''"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Attribute) TableName() string { return "attributes" }

// OptionList parses Options: entries are trimmed, blanks dropped and
// duplicates (case-insensitive) removed, keeping the first spelling.
func (a Attribute) OptionList() []string {
	if strings.TrimSpace(a.Options) == "" {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, raw := range strings.Split(a.Options, ",") {
		v := strings.TrimSpace(raw)
		if v == "" {
			continue
		}
		k := strings.ToLower(v)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out
}

// ProductAttribute links a product to the value it offers for an attribute.
type ProductAttribute struct {
	ID          uint      `json:"id"           gorm:"primaryKey"`
	ProductID   uint      `json:"product_id"   gorm:"not null;index"`
	AttributeID uint      `json:"attribute_id" gorm:"not null;index:idx_product_attributes_value,priority:1"`
	Value       string    `json:"value"        gorm:"type:varchar(255);not null;index:idx_product_attributes_value,priority:2"`
	IsActive    bool      `json:"is_active"    gorm:"not null;default:true"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Product   Product   `json:"-" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Attribute Attribute `json:"-" gorm:"foreignKey:AttributeID;constraint:OnDelete:CASCADE"`
}

func (ProductAttribute) TableName() string { return "product_attributes" }

// AttributeValue is one answered attribute, used to match product links.
type AttributeValue struct {
	AttributeID uint
	Value       string
}
