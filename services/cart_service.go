package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"commerce-api/apperr"
	"commerce-api/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const cartLifetime = 7 * 24 * time.Hour

// CartService owns the per-user cart and its denormalized totals. Totals are
// always recomputed from the authoritative cart_items rows inside the same
// transaction as the triggering write, never trusted across requests.
type CartService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewCartService(db *gorm.DB, logger *zap.Logger) *CartService {
	return &CartService{db: db, logger: logger}
}

// GetCart returns the user's cart with items, healing drifted totals. A user
// without a cart gets an empty placeholder rather than a 404.
func (s *CartService) GetCart(ctx context.Context, userID uint) (*models.Cart, error) {
	var cart models.Cart
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("added_at DESC") }).
		Preload("Items.Product").
		Where("user_id = ?", userID).
		First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.Cart{UserID: userID, Items: []models.CartItem{}}, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrInternalServer, err)
	}

	// Heal totals if an external stock/price change drifted them.
	total, count := totalsOf(cart.Items)
	if total != cart.TotalAmount || count != cart.ItemCount {
		cart.TotalAmount = total
		cart.ItemCount = count
		if err := s.db.WithContext(ctx).Model(&models.Cart{}).
			Where("id = ?", cart.ID).
			Updates(map[string]interface{}{"total_amount": total, "item_count": count}).Error; err != nil {
			s.logger.Warn("Failed to heal cart totals", zap.Uint("cart_id", cart.ID), zap.Error(err))
		}
	}
	return &cart, nil
}

// AddToCart validates the product and stock, merges into an existing line if
// present, and recomputes totals, all in one transaction.
func (s *CartService) AddToCart(ctx context.Context, userID, productID uint, quantity int) (*models.Cart, error) {
	if quantity < 1 {
		return nil, apperr.WithMessage(apperr.ErrBadRequest, "Quantity must be at least 1")
	}

	var cartID uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		id, err := s.addItemTx(tx, userID, productID, quantity)
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

// UpdateItem changes a line's quantity; zero deletes the line.
func (s *CartService) UpdateItem(ctx context.Context, userID, itemID uint, quantity int) error {
	if quantity < 0 {
		return apperr.WithMessage(apperr.ErrBadRequest, "Quantity must not be negative")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := s.findCart(tx, userID)
		if err != nil {
			return err
		}

		var item models.CartItem
		if err := tx.Preload("Product").
			Where("id = ? AND cart_id = ?", itemID, cart.ID).
			First(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.WithMessage(apperr.ErrNotFound, "Cart item not found")
			}
			return err
		}

		if quantity == 0 {
			if err := tx.Delete(&item).Error; err != nil {
				return err
			}
		} else {
			if item.Product != nil && item.Product.Stock < quantity {
				return insufficientStock(item.Product.Stock)
			}
			if err := tx.Model(&item).Update("quantity", quantity).Error; err != nil {
				return err
			}
		}

		return s.recomputeTotals(tx, cart.ID)
	})
	return wrapNil(err)
}

// RemoveItem deletes a line and recomputes totals.
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := s.findCart(tx, userID)
		if err != nil {
			return err
		}

		res := tx.Where("id = ? AND cart_id = ?", itemID, cart.ID).Delete(&models.CartItem{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.WithMessage(apperr.ErrNotFound, "Cart item not found")
		}

		return s.recomputeTotals(tx, cart.ID)
	})
	return wrapNil(err)
}

// Clear removes every line and zeroes the totals.
func (s *CartService) Clear(ctx context.Context, userID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := s.findCart(tx, userID)
		if err != nil {
			return err
		}
		if err := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		return s.recomputeTotals(tx, cart.ID)
	})
	return wrapNil(err)
}

// MoveToWishlist atomically inserts the wishlist row and deletes the cart
// line, then recomputes totals.
func (s *CartService) MoveToWishlist(ctx context.Context, userID, itemID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := s.findCart(tx, userID)
		if err != nil {
			return err
		}

		var item models.CartItem
		if err := tx.Where("id = ? AND cart_id = ?", itemID, cart.ID).First(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.WithMessage(apperr.ErrNotFound, "Cart item not found")
			}
			return err
		}

		var existing int64
		if err := tx.Model(&models.Wishlist{}).
			Where("user_id = ? AND product_id = ?", userID, item.ProductID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing == 0 {
			if err := tx.Create(&models.Wishlist{UserID: userID, ProductID: item.ProductID}).Error; err != nil {
				return err
			}
		}

		if err := tx.Delete(&item).Error; err != nil {
			return err
		}
		return s.recomputeTotals(tx, cart.ID)
	})
	return wrapNil(err)
}

// addItemTx is the shared add-to-cart step, run inside the caller's
// transaction so wishlist moves commit or roll back with it. Returns the
// cart ID for post-commit reloads.
func (s *CartService) addItemTx(tx *gorm.DB, userID, productID uint, quantity int) (uint, error) {
	cart, err := s.findOrCreateCart(tx, userID)
	if err != nil {
		return 0, err
	}

	var product models.Product
	if err := tx.First(&product, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperr.WithMessage(apperr.ErrNotFound, "Product not found")
		}
		return 0, err
	}
	if !product.IsActive {
		return 0, apperr.WithMessage(apperr.ErrNotFound, "Product not found")
	}
	if product.Stock < quantity {
		return 0, insufficientStock(product.Stock)
	}

	var existing models.CartItem
	err = tx.Where("cart_id = ? AND product_id = ?", cart.ID, productID).First(&existing).Error
	switch {
	case err == nil:
		newQuantity := existing.Quantity + quantity
		if product.Stock < newQuantity {
			return 0, insufficientStock(product.Stock)
		}
		if err := tx.Model(&existing).
			Updates(map[string]interface{}{"quantity": newQuantity, "price": product.Price}).Error; err != nil {
			return 0, err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		item := models.CartItem{
			CartID:    cart.ID,
			ProductID: productID,
			Quantity:  quantity,
			Price:     product.Price,
		}
		if err := tx.Create(&item).Error; err != nil {
			return 0, err
		}
	default:
		return 0, err
	}

	if err := s.recomputeTotals(tx, cart.ID); err != nil {
		return 0, err
	}
	return cart.ID, nil
}

func (s *CartService) findCart(tx *gorm.DB, userID uint) (*models.Cart, error) {
	var cart models.Cart
	if err := tx.Where("user_id = ?", userID).First(&cart).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.WithMessage(apperr.ErrNotFound, "Cart not found")
		}
		return nil, err
	}
	return &cart, nil
}

func (s *CartService) findOrCreateCart(tx *gorm.DB, userID uint) (*models.Cart, error) {
	var cart models.Cart
	err := tx.Where("user_id = ?", userID).First(&cart).Error
	if err == nil {
		return &cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	expires := time.Now().Add(cartLifetime)
	cart = models.Cart{UserID: userID, ExpiresAt: &expires}
	if err := tx.Create(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// recomputeTotals derives total_amount and item_count from the remaining
// cart_items rows.
func (s *CartService) recomputeTotals(tx *gorm.DB, cartID uint) error {
	var items []models.CartItem
	if err := tx.Where("cart_id = ?", cartID).Find(&items).Error; err != nil {
		return err
	}
	total, count := totalsOf(items)
	return tx.Model(&models.Cart{}).
		Where("id = ?", cartID).
		Updates(map[string]interface{}{"total_amount": total, "item_count": count}).Error
}

func totalsOf(items []models.CartItem) (float64, int) {
	var total float64
	for _, item := range items {
		total += item.Price * float64(item.Quantity)
	}
	return total, len(items)
}

func insufficientStock(current int) error {
	return apperr.WithMessage(apperr.ErrInsufficientStock,
		fmt.Sprintf("Insufficient stock: only %d available", current))
}

// wrapNil normalizes transaction errors to *apperr.Error, passing nil through.
func wrapNil(err error) error {
	if err == nil {
		return nil
	}
	return apperr.From(err)
}
