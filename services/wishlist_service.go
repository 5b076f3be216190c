package services

import (
	"context"
	"errors"

	"commerce-api/apperr"
	"commerce-api/models"

	"gorm.io/gorm"
)

// WishlistService manages the per-user wishlist and the move-to-cart flow.
type WishlistService struct {
	db   *gorm.DB
	cart *CartService
}

func NewWishlistService(db *gorm.DB, cart *CartService) *WishlistService {
	return &WishlistService{db: db, cart: cart}
}

func (s *WishlistService) List(ctx context.Context, userID uint) ([]models.Wishlist, error) {
	var items []models.Wishlist
	err := s.db.WithContext(ctx).
		Preload("Product.Category").
		Where("user_id = ?", userID).
		Order("added_at DESC").
		Find(&items).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrInternalServer, err)
	}
	return items, nil
}

// Add inserts a wishlist row for an active product; a duplicate is a client
// error, not a silent no-op.
func (s *WishlistService) Add(ctx context.Context, userID, productID uint) (*models.Wishlist, error) {
	var entry models.Wishlist

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
		if err := tx.Model(&models.Wishlist{}).
			Where("user_id = ? AND product_id = ?", userID, productID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperr.WithMessage(apperr.ErrBadRequest, "Product already in wishlist")
		}

		entry = models.Wishlist{UserID: userID, ProductID: productID}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		return tx.Preload("Product").First(&entry, entry.ID).Error
	})
	if err != nil {
		return nil, apperr.From(err)
	}
	return &entry, nil
}

func (s *WishlistService) Remove(ctx context.Context, userID, productID uint) error {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.Wishlist{})
	if res.Error != nil {
		return apperr.Wrap(apperr.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.WithMessage(apperr.ErrNotFound, "Product not in wishlist")
	}
	return nil
}

// MoveToCart removes the wishlist row and adds one unit to the cart in a
// single transaction; a failed cart add (stock, inactive product) rolls the
// wishlist row back into place.
func (s *WishlistService) MoveToCart(ctx context.Context, userID, productID uint) (*models.Cart, error) {
	var cartID uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND product_id = ?", userID, productID).
			Delete(&models.Wishlist{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.WithMessage(apperr.ErrNotFound, "Product not in wishlist")
		}

		id, err := s.cart.addItemTx(tx, userID, productID, 1)
		cartID = id
		return err
	})
	if err != nil {
		return nil, apperr.From(err)
	}

	var cart models.Cart
	if err := s.db.WithContext(ctx).
		Preload("Items.Product").
		First(&cart, cartID).Error; err != nil {
		return nil, apperr.Wrap(apperr.ErrInternalServer, err)
	}
	return &cart, nil
}
