package services

import (
	"context"
	"errors"

	"commerce-api/apperr"
	"commerce-api/models"

	"gorm.io/gorm"
)

type CategoryRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description"`
}

type CategoryService struct {
	db *gorm.DB
}

func NewCategoryService(db *gorm.DB) *CategoryService {
	return &CategoryService{db: db}
}

func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name").
		Find(&categories).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrInternalServer, err)
	}
	return categories, nil
}

func (s *CategoryService) Create(ctx context.Context, req CategoryRequest) (*models.Category, error) {
	category := models.Category{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    true,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Category{}).Where("name = ?", req.Name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperr.WithMessage(apperr.ErrConflict, "Category already exists")
		}
		return tx.Create(&category).Error
	})
	if err != nil {
		return nil, apperr.From(err)
	}
	return &category, nil
}

func (s *CategoryService) Update(ctx context.Context, id uint, req CategoryRequest) (*models.Category, error) {
	var category models.Category
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("is_active = ?", true).First(&category, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.WithMessage(apperr.ErrNotFound, "Category not found")
			}
			return err
		}
		return tx.Model(&category).Updates(map[string]interface{}{
			"name":        req.Name,
			"description": req.Description,
		}).Error
	})
	if err != nil {
		return nil, apperr.From(err)
	}
	return &category, nil
}

// Delete deactivates an empty category; one still holding active products is
// rejected.
func (s *CategoryService) Delete(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var products int64
		if err := tx.Model(&models.Product{}).
			Where("category_id = ? AND is_active = ?", id, true).
			Count(&products).Error; err != nil {
			return err
		}
		if products > 0 {
			return apperr.WithMessage(apperr.ErrConflict, "Category still has active products")
		}

		res := tx.Model(&models.Category{}).
			Where("id = ? AND is_active = ?", id, true).
			Update("is_active", false)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.WithMessage(apperr.ErrNotFound, "Category not found")
		}
		return nil
	})
	return wrapNil(err)
}
