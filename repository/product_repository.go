package repository

import (
	"context"

	"commerce-api/apperr"
	"commerce-api/models"

	"gorm.io/gorm"
)

// productFields and productSorts allow-list what a QuerySpec may touch on
// the products table.
var productFields = map[string]bool{
	"name":           true,
	"brand":          true,
	"category_id":    true,
	"price":          true,
	"stock":          true,
	"average_rating": true,
}

var productSorts = map[string]bool{
	"name":           true,
	"price":          true,
	"stock":          true,
	"average_rating": true,
	"created_at":     true,
}

// ProductRepository is the persistence layer for the catalog. Writes go
// through here; the search and analytics read paths keep their own queries.
type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// List runs a QuerySpec over the active catalog and returns the page plus
// the total match count.
func (r *ProductRepository) List(ctx context.Context, spec QuerySpec) ([]models.Product, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.Product{}).Where("is_active = ?", true)

	filtered, err := spec.Apply(base, productFields, productSorts)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := filtered.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, apperr.Wrap(apperr.ErrInternalServer, err)
	}

	page, limit := spec.Window()
	var products []models.Product
	if err := filtered.Session(&gorm.Session{}).
		Preload("Category").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&products).Error; err != nil {
		return nil, 0, apperr.Wrap(apperr.ErrInternalServer, err)
	}
	return products, total, nil
}

func (r *ProductRepository) FindByID(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Category").
		Where("is_active = ?", true).
		First(&product, id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDInternal skips the is_active filter, for admin reads.
func (r *ProductRepository) FindByIDInternal(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Preload("Category").First(&product, id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *ProductRepository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *ProductRepository) Update(ctx context.Context, id uint, updates map[string]interface{}) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(updates)
	return res.RowsAffected, res.Error
}

// Delete deactivates the product. Order history keeps its frozen copies, so
// rows are never physically removed.
func (r *ProductRepository) Delete(ctx context.Context, id uint) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND is_active = ?", id, true).
		Update("is_active", false)
	return res.RowsAffected, res.Error
}
