package jobs

import (
	"context"
	"fmt"
	"time"

	"commerce-api/models"
	"commerce-api/services"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	lowStockThreshold = 10

	lowStockSuppression      = 24 * time.Hour
	abandonedCartSuppression = 72 * time.Hour
	abandonedCartIdle        = 24 * time.Hour
	stalePaymentAge          = 30 * time.Minute
	searchHistoryCap         = 100
)

// MaintenanceNotifier is the notification slice the sweeps need.
type MaintenanceNotifier interface {
	SendLowStockAlert(ctx context.Context, product *models.Product)
	SendAbandonedCartReminder(ctx context.Context, userID uint)
}

// InventoryAlerter pushes live low-stock events to connected dashboards.
type InventoryAlerter interface {
	PublishInventoryAlert(data interface{})
}

// Maintenance holds the periodic sweeps. Every sweep is fault-tolerant per
// record: one failing row is logged and skipped, the batch continues.
type Maintenance struct {
	db       *gorm.DB
	cache    *redis.Client
	notifier MaintenanceNotifier
	alerts   InventoryAlerter
	payments *services.PaymentService
	search   *services.SearchService
	logger   *zap.Logger
}

func NewMaintenance(
	db *gorm.DB,
	cache *redis.Client,
	notifier MaintenanceNotifier,
	alerts InventoryAlerter,
	payments *services.PaymentService,
	search *services.SearchService,
	logger *zap.Logger,
) *Maintenance {
	return &Maintenance{
		db:       db,
		cache:    cache,
		notifier: notifier,
		alerts:   alerts,
		payments: payments,
		search:   search,
		logger:   logger,
	}
}

// CheckLowStock alerts on products at or below the threshold, at most once
// per product per suppression window.
func (m *Maintenance) CheckLowStock(ctx context.Context) {
	var products []models.Product
	if err := m.db.WithContext(ctx).
		Where("stock <= ? AND is_active = ?", lowStockThreshold, true).
		Find(&products).Error; err != nil {
		m.logger.Error("Low stock query failed", zap.Error(err))
		return
	}

	for i := range products {
		product := &products[i]
		key := fmt.Sprintf("low_stock_alert:%d", product.ID)
		if m.suppressed(ctx, key) {
			continue
		}

		if m.notifier != nil {
			m.notifier.SendLowStockAlert(ctx, product)
		}
		if m.alerts != nil {
			m.alerts.PublishInventoryAlert(map[string]interface{}{
				"product_id":   product.ID,
				"product_name": product.Name,
				"stock":        product.Stock,
			})
		}
		m.suppress(ctx, key, lowStockSuppression)
	}
}

// SendAbandonedCartReminders emails users whose non-empty cart has been idle
// past the threshold, at most once per user per suppression window.
func (m *Maintenance) SendAbandonedCartReminders(ctx context.Context) {
	cutoff := time.Now().Add(-abandonedCartIdle)

	var carts []models.Cart
	if err := m.db.WithContext(ctx).
		Joins("JOIN users ON users.id = carts.user_id AND users.is_active = ?", true).
		Where("carts.updated_at <= ? AND carts.item_count > 0", cutoff).
		Find(&carts).Error; err != nil {
		m.logger.Error("Abandoned cart query failed", zap.Error(err))
		return
	}

	for _, cart := range carts {
		key := fmt.Sprintf("abandoned_cart:%d", cart.UserID)
		if m.suppressed(ctx, key) {
			continue
		}
		if m.notifier != nil {
			m.notifier.SendAbandonedCartReminder(ctx, cart.UserID)
		}
		m.suppress(ctx, key, abandonedCartSuppression)
	}
}

// CleanupExpiredCarts restores the reserved stock of carts past expires_at
// and resets them to empty. Each cart is its own transaction so one bad cart
// does not block the rest.
func (m *Maintenance) CleanupExpiredCarts(ctx context.Context) int {
	var carts []models.Cart
	if err := m.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ? AND item_count > 0", time.Now()).
		Find(&carts).Error; err != nil {
		m.logger.Error("Expired cart query failed", zap.Error(err))
		return 0
	}

	cleaned := 0
	for _, cart := range carts {
		err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var items []models.CartItem
			if err := tx.Where("cart_id = ?", cart.ID).Find(&items).Error; err != nil {
				return err
			}
			for _, item := range items {
				if err := tx.Model(&models.Product{}).
					Where("id = ?", item.ProductID).
					Update("stock", gorm.Expr("stock + ?", item.Quantity)).Error; err != nil {
					return err
				}
			}
			if err := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
				return err
			}
			return tx.Model(&models.Cart{}).
				Where("id = ?", cart.ID).
				Updates(map[string]interface{}{"total_amount": 0, "item_count": 0}).Error
		})
		if err != nil {
			m.logger.Error("Expired cart cleanup failed", zap.Uint("cart_id", cart.ID), zap.Error(err))
			continue
		}
		cleaned++
	}

	if cleaned > 0 {
		m.logger.Info("Cleaned up expired carts", zap.Int("count", cleaned))
	}
	return cleaned
}

// ReconcileStalePayments fails payments stuck pending past the age limit.
func (m *Maintenance) ReconcileStalePayments(ctx context.Context) {
	count, err := m.payments.ReconcileStalePayments(ctx, stalePaymentAge)
	if err != nil {
		m.logger.Error("Stale payment reconciliation failed", zap.Error(err))
		return
	}
	if count > 0 {
		m.logger.Info("Reconciled stale payments", zap.Int("count", count))
	}
}

// EvictSearchHistory bounds the popularity table to the top entries.
func (m *Maintenance) EvictSearchHistory(ctx context.Context) {
	evicted, err := m.search.EvictBeyondTop(ctx, searchHistoryCap)
	if err != nil {
		m.logger.Error("Search history eviction failed", zap.Error(err))
		return
	}
	if evicted > 0 {
		m.logger.Info("Evicted search history entries", zap.Int64("count", evicted))
	}
}

// WeeklyReport logs a summary of the last seven days.
func (m *Maintenance) WeeklyReport(ctx context.Context) {
	since := time.Now().Add(-7 * 24 * time.Hour)
	db := m.db.WithContext(ctx)

	var revenue float64
	if err := db.Model(&models.Order{}).
		Where("created_at >= ? AND payment_status = ?", since, models.PaymentStatusCompleted).
		Select("COALESCE(SUM(total_amount), 0)").
		Scan(&revenue).Error; err != nil {
		m.logger.Error("Weekly report revenue query failed", zap.Error(err))
		return
	}

	var orders, newUsers int64
	if err := db.Model(&models.Order{}).Where("created_at >= ?", since).Count(&orders).Error; err != nil {
		m.logger.Error("Weekly report order count failed", zap.Error(err))
		return
	}
	if err := db.Model(&models.User{}).Where("created_at >= ?", since).Count(&newUsers).Error; err != nil {
		m.logger.Error("Weekly report user count failed", zap.Error(err))
		return
	}

	m.logger.Info("Weekly analytics report",
		zap.Time("since", since),
		zap.Float64("total_revenue", revenue),
		zap.Int64("total_orders", orders),
		zap.Int64("new_users", newUsers),
	)
}

// suppressed reports whether a marker key is still live. A cache failure
// counts as not suppressed; a duplicate alert beats a missed one.
func (m *Maintenance) suppressed(ctx context.Context, key string) bool {
	if m.cache == nil {
		return false
	}
	_, err := m.cache.Get(ctx, key).Result()
	return err == nil
}

func (m *Maintenance) suppress(ctx context.Context, key string, ttl time.Duration) {
	if m.cache == nil {
		return
	}
	if err := m.cache.Set(ctx, key, "sent", ttl).Err(); err != nil {
		m.logger.Warn("Failed to set suppression marker", zap.String("key", key), zap.Error(err))
	}
}
