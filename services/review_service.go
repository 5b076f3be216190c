package services

import (
	"context"
	"errors"

	"commerce-api/apperr"
	"commerce-api/models"
	"commerce-api/utils"

	"gorm.io/gorm"
)

type ReviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Title   string `json:"title" binding:"required,max=255"`
	Comment string `json:"comment" binding:"required"`
}

// ReviewService manages product reviews and keeps the denormalized rating
// aggregate on the product row in sync, inside the same transaction as the
// review write.
type ReviewService struct {
	db *gorm.DB
}

func NewReviewService(db *gorm.DB) *ReviewService {
	return &ReviewService{db: db}
}

func (s *ReviewService) ListForProduct(ctx context.Context, productID uint, page, limit int) ([]models.Review, utils.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	base := s.db.WithContext(ctx).Model(&models.Review{}).
		Where("product_id = ? AND is_active = ?", productID, true)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, utils.Pagination{}, apperr.Wrap(apperr.ErrInternalServer, err)
	}

	var reviews []models.Review
	if err := base.Session(&gorm.Session{}).
		Preload("User").
		Order("created_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&reviews).Error; err != nil {
		return nil, utils.Pagination{}, apperr.Wrap(apperr.ErrInternalServer, err)
	}
	return reviews, utils.NewPagination(page, limit, total), nil
}

// Create inserts the review and recomputes the product's rating aggregate.
// One review per user per product; a completed purchase marks it verified.
func (s *ReviewService) Create(ctx context.Context, userID, productID uint, req ReviewRequest) (*models.Review, error) {
	var review models.Review

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.First(&product, productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.WithMessage(apperr.ErrNotFound, "Product not found")
			}
			return err
		}
		if !product.IsActive {
			return apperr.WithMessage(apperr.ErrNotFound, "Product not found")
		}

		var count int64
		if err := tx.Model(&models.Review{}).
			Where("user_id = ? AND product_id = ?", userID, productID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperr.WithMessage(apperr.ErrConflict, "You have already reviewed this product")
		}

		verified, err := s.hasPurchased(tx, userID, productID)
		if err != nil {
			return err
		}

		review = models.Review{
			UserID:             userID,
			ProductID:          productID,
			Rating:             req.Rating,
			Title:              req.Title,
			Comment:            req.Comment,
			IsVerifiedPurchase: verified,
			IsActive:           true,
		}
		if err := tx.Create(&review).Error; err != nil {
			return err
		}
		return s.recomputeRating(tx, productID)
	})
	if err != nil {
		return nil, apperr.From(err)
	}
	return &review, nil
}

// Delete removes the caller's review and recomputes the aggregate. An admin
// may delete any review.
func (s *ReviewService) Delete(ctx context.Context, userID, reviewID uint, isAdmin bool) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var review models.Review
		if err := tx.First(&review, reviewID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.WithMessage(apperr.ErrNotFound, "Review not found")
			}
			return err
		}
		if review.UserID != userID && !isAdmin {
			return apperr.WithMessage(apperr.ErrForbidden, "Not authorized")
		}

		if err := tx.Delete(&review).Error; err != nil {
			return err
		}
		return s.recomputeRating(tx, review.ProductID)
	})
	return wrapNil(err)
}

func (s *ReviewService) hasPurchased(tx *gorm.DB, userID, productID uint) (bool, error) {
	var count int64
	err := tx.Table("order_items oi").
		Joins("JOIN orders o ON o.id = oi.order_id").
		Where("o.user_id = ? AND oi.product_id = ?", userID, productID).
		Where("o.payment_status = ?", models.PaymentStatusCompleted).
		Count(&count).Error
	return count > 0, err
}

// recomputeRating derives average_rating and rating_count from the active
// review rows.
func (s *ReviewService) recomputeRating(tx *gorm.DB, productID uint) error {
	var agg struct {
		Avg   float64
		Count int64
	}
	if err := tx.Model(&models.Review{}).
		Select("COALESCE(AVG(rating), 0) AS avg, COUNT(*) AS count").
		Where("product_id = ? AND is_active = ?", productID, true).
		Scan(&agg).Error; err != nil {
		return err
	}
	return tx.Model(&models.Product{}).
		Where("id = ?", productID).
		Updates(map[string]interface{}{
			"average_rating": agg.Avg,
			"rating_count":   agg.Count,
		}).Error
}
