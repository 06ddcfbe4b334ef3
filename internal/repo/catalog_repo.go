package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/go-printshop-assistant/internal/domain"
)

// Catalog answers the read-only catalog questions asked during a dialogue.
// Bind it to a transaction with NewCatalog(tx) so all reads of one turn see
// the same snapshot.
type Catalog struct {
	db *gorm.DB
}

// NewCatalog returns a Catalog reading through db.
func NewCatalog(db *gorm.DB) *Catalog { return &Catalog{db: db} }

// ActiveCategories lists active categories by name ascending.
func (c *Catalog) ActiveCategories(ctx context.Context) ([]domain.Category, error) {
	var out []domain.Category
	err := c.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&out).Error
	return out, err
}

// CategoryByName finds an active category by exact name. A miss is
// reported with found == false and a nil error.
func (c *Catalog) CategoryByName(ctx context.Context, name string) (domain.Category, bool, error) {
	var cat domain.Category
	err := c.db.WithContext(ctx).
		Where("name = ? AND is_active = ?", name, true).
		First(&cat).Error
	return found(cat, err)
}

// ActiveSubCategories lists the active sub-categories of a category by name ascending.
func (c *Catalog) ActiveSubCategories(ctx context.Context, categoryID uint) ([]domain.SubCategory, error) {
	var out []domain.SubCategory
	err := c.db.WithContext(ctx).
		Where("category_id = ? AND is_active = ?", categoryID, true).
		Order("name ASC").
		Find(&out).Error
	return out, err
}

// SubCategoryByName finds an active sub-category of a category by exact name.
func (c *Catalog) SubCategoryByName(ctx context.Context, categoryID uint, name string) (domain.SubCategory, bool, error) {
	var sub domain.SubCategory
	err := c.db.WithContext(ctx).
		Where("category_id = ? AND name = ? AND is_active = ?", categoryID, name, true).
		First(&sub).Error
	return found(sub, err)
}

func found[T any](v T, err error) (T, bool, error) {
	switch {
	case err == nil:
		return v, true, nil
	case errors.Is(err, ErrNotFound):
		var zero T
		return zero, false, nil
	default:
		var zero T
		return zero, false, err
	}
}

// ProductsIn lists the active products of a (category, sub-category) pair.
func (c *Catalog) ProductsIn(ctx context.Context, categoryID, subCategoryID uint) ([]domain.Product, error) {
	var out []domain.Product
	err := c.db.WithContext(ctx).
		Where("category_id = ? AND sub_category_id = ? AND is_active = ?", categoryID, subCategoryID, true).
		Order("name ASC, id ASC").
		Find(&out).Error
	return out, err
}

// ProductAttributeLinks lists the active attribute links of the given products.
func (c *Catalog) ProductAttributeLinks(ctx context.Context, productIDs []uint) ([]domain.ProductAttribute, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	var out []domain.ProductAttribute
	err := c.db.WithContext(ctx).
		Where("product_id IN ? AND is_active = ?", productIDs, true).
		Order("attribute_id ASC, id ASC").
		Find(&out).Error
	return out, err
}

// AttributesByIDs loads attributes ordered by id.
func (c *Catalog) AttributesByIDs(ctx context.Context, ids []uint) ([]domain.Attribute, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []domain.Attribute
	err := c.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

// LinksMatchingAny lists active links whose (attribute_id, value) equals any
// of pairs. Values compare case-insensitively.
func (c *Catalog) LinksMatchingAny(ctx context.Context, pairs []domain.AttributeValue) ([]domain.ProductAttribute, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	clauses := make([]string, 0, len(pairs))
	args := make([]any, 0, 2*len(pairs))
	for _, p := range pairs {
		clauses = append(clauses, "(attribute_id = ? AND LOWER(value) = ?)")
		args = append(args, p.AttributeID, strings.ToLower(p.Value))
	}
	var out []domain.ProductAttribute
	err := c.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("("+strings.Join(clauses, " OR ")+")", args...).
		Order("product_id ASC, id ASC").
		Find(&out).Error
	return out, err
}

// ProductsByIDsIn keeps the products among ids that are active and belong to
// the given pair, ordered by name and capped at limit.
func (c *Catalog) ProductsByIDsIn(ctx context.Context, ids []uint, categoryID, subCategoryID uint, limit int) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := c.db.WithContext(ctx).
		Where("id IN ? AND category_id = ? AND sub_category_id = ? AND is_active = ?", ids, categoryID, subCategoryID, true).
		Order("name ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []domain.Product
	err := q.Find(&out).Error
	return out, err
}
