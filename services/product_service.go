package services

import (
	"context"
	"errors"
	"strconv"

	"commerce-api/apperr"
	"commerce-api/models"
	"commerce-api/repository"
	"commerce-api/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ProductRequest struct {
	Name        string  `json:"name" binding:"required,max=100"`
	Description string  `json:"description" binding:"required"`
	Price       float64 `json:"price" binding:"required,gt=0"`
	CategoryID  uint    `json:"category_id" binding:"required"`
	Brand       string  `json:"brand" binding:"omitempty,max=50"`
	Stock       int     `json:"stock" binding:"gte=0"`
	Images      string  `json:"images"`
}

// ProductListParams is the raw query-string view of a catalog listing; the
// service converts it into a typed spec before it touches the repository.
type ProductListParams struct {
	Category  string `form:"category"`
	Brand     string `form:"brand"`
	MinPrice  string `form:"min_price"`
	MaxPrice  string `form:"max_price"`
	MinRating string `form:"min_rating"`
	SortBy    string `form:"sort_by"`
	SortDir   string `form:"sort_dir"`
	Page      int    `form:"page"`
	Limit     int    `form:"limit"`
}

// ProductService fronts the catalog repository and owns admin mutations.
type ProductService struct {
	db     *gorm.DB
	repo   *repository.ProductRepository
	logger *zap.Logger
}

func NewProductService(db *gorm.DB, repo *repository.ProductRepository, logger *zap.Logger) *ProductService {
	return &ProductService{db: db, repo: repo, logger: logger}
}

// List translates the request parameters into a typed query spec and runs it.
func (s *ProductService) List(ctx context.Context, params ProductListParams) ([]models.Product, utils.Pagination, error) {
	spec := repository.QuerySpec{
		SortBy:  params.SortBy,
		SortDir: params.SortDir,
		Page:    params.Page,
		Limit:   params.Limit,
	}
	if spec.SortBy == "" {
		spec.SortBy = "created_at"
		spec.SortDir = "desc"
	}

	if params.Category != "" {
		id, err := strconv.ParseUint(params.Category, 10, 32)
		if err != nil {
			return nil, utils.Pagination{}, apperr.WithMessage(apperr.ErrBadRequest, "Invalid category id")
		}
		spec.Filters = append(spec.Filters, repository.Filter{Field: "category_id", Op: "eq", Value: uint(id)})
	}
	if params.Brand != "" {
		spec.Filters = append(spec.Filters, repository.Filter{Field: "brand", Op: "like", Value: params.Brand})
	}
	for _, rangeFilter := range []struct {
		raw   string
		field string
		op    string
	}{
		{params.MinPrice, "price", "gte"},
		{params.MaxPrice, "price", "lte"},
		{params.MinRating, "average_rating", "gte"},
	} {
		if rangeFilter.raw == "" {
			continue
		}
		value, err := strconv.ParseFloat(rangeFilter.raw, 64)
		if err != nil {
			return nil, utils.Pagination{}, apperr.WithMessage(apperr.ErrBadRequest,
				"Invalid numeric filter: "+rangeFilter.field)
		}
		spec.Filters = append(spec.Filters, repository.Filter{Field: rangeFilter.field, Op: rangeFilter.op, Value: value})
	}

	products, total, err := s.repo.List(ctx, spec)
	if err != nil {
		return nil, utils.Pagination{}, apperr.From(err)
	}
	page, limit := spec.Window()
	return products, utils.NewPagination(page, limit, total), nil
}

func (s *ProductService) Get(ctx context.Context, id uint, includeInactive bool) (*models.Product, error) {
	find := s.repo.FindByID
	if includeInactive {
		find = s.repo.FindByIDInternal
	}
	product, err := find(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.WithMessage(apperr.ErrNotFound, "Product not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrInternalServer, err)
	}
	return product, nil
}

func (s *ProductService) Create(ctx context.Context, req ProductRequest) (*models.Product, error) {
	if err := s.categoryExists(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	product := models.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		CategoryID:  req.CategoryID,
		Brand:       req.Brand,
		Stock:       req.Stock,
		Images:      req.Images,
		IsActive:    true,
	}
	if err := s.repo.Create(ctx, &product); err != nil {
		return nil, apperr.Wrap(apperr.ErrInternalServer, err)
	}
	s.logger.Info("Product created", zap.Uint("product_id", product.ID), zap.String("name", product.Name))
	return &product, nil
}

func (s *ProductService) Update(ctx context.Context, id uint, req ProductRequest) (*models.Product, error) {
	if err := s.categoryExists(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"name":        req.Name,
		"description": req.Description,
		"price":       req.Price,
		"category_id": req.CategoryID,
		"brand":       req.Brand,
		"stock":       req.Stock,
		"images":      req.Images,
	}
	affected, err := s.repo.Update(ctx, id, updates)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrInternalServer, err)
	}
	if affected == 0 {
		return nil, apperr.WithMessage(apperr.ErrNotFound, "Product not found")
	}
	return s.Get(ctx, id, true)
}

func (s *ProductService) Delete(ctx context.Context, id uint) error {
	affected, err := s.repo.Delete(ctx, id)
	if err != nil {
		return apperr.Wrap(apperr.ErrInternalServer, err)
	}
	if affected == 0 {
		return apperr.WithMessage(apperr.ErrNotFound, "Product not found")
	}
	s.logger.Info("Product deactivated", zap.Uint("product_id", id))
	return nil
}

func (s *ProductService) categoryExists(ctx context.Context, categoryID uint) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Category{}).
		Where("id = ? AND is_active = ?", categoryID, true).
		Count(&count).Error; err != nil {
		return apperr.Wrap(apperr.ErrInternalServer, err)
	}
	if count == 0 {
		return apperr.WithMessage(apperr.ErrBadRequest, "Category does not exist")
	}
	return nil
}
