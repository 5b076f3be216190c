package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"commerce-api/apperr"
	"commerce-api/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderNotifier is the slice of the notification service the order flow
// needs. Sends are best-effort and must never fail the request.
type OrderNotifier interface {
	SendOrderConfirmation(ctx context.Context, orderID uint)
	SendOrderStatusUpdate(ctx context.Context, order *models.Order, status string)
}

// EventPublisher pushes advisory live events to connected dashboards.
type EventPublisher interface {
	PublishOrderUpdate(data interface{})
	PublishInventoryAlert(data interface{})
}

type OrderItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,min=1"`
}

type ShippingAddress struct {
	Street  string `json:"street" binding:"required"`
	City    string `json:"city" binding:"required"`
	State   string `json:"state" binding:"required"`
	ZipCode string `json:"zip_code" binding:"required"`
	Country string `json:"country" binding:"required"`
}

type CreateOrderRequest struct {
	Items           []OrderItemRequest `json:"items" binding:"required,dive"`
	ShippingAddress ShippingAddress    `json:"shipping_address" binding:"required"`
	PaymentMethod   string             `json:"payment_method" binding:"required"`
	OrderNotes      string             `json:"order_notes"`
}

// OrderService converts item lists into immutable order snapshots. Stock is
// the only concurrency-sensitive resource: every product row is read under a
// write lock before its stock is checked and decremented, so two orders
// competing for the last units serialize and the loser fails deterministically.
type OrderService struct {
	db       *gorm.DB
	notifier OrderNotifier
	events   EventPublisher
	logger   *zap.Logger
}

func NewOrderService(db *gorm.DB, notifier OrderNotifier, events EventPublisher, logger *zap.Logger) *OrderService {
	return &OrderService{db: db, notifier: notifier, events: events, logger: logger}
}

// lockForUpdate adds a row-level write lock on dialects that support it.
// sqlite (used by the test suite) serializes writers on its own and rejects
// FOR UPDATE syntax.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// CreateOrder runs the whole stock-reservation sequence in one transaction:
// lock each product row, verify stock, snapshot the price, decrement stock,
// insert the order and its items. Any failure rolls everything back; partial
// orders are never created. Side effects (email, live events) run only after
// a successful commit and never undo it.
func (s *OrderService) CreateOrder(ctx context.Context, userID uint, req *CreateOrderRequest) (*models.Order, error) {
	if len(req.Items) == 0 {
		return nil, apperr.WithMessage(apperr.ErrBadRequest, "At least one item is required")
	}

	var orderID uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		id, err := s.createOrderTx(tx, userID, req, nil)
		orderID = id
		return err
	})
	if err != nil {
		return nil, apperr.From(err)
	}

	return s.finishCreate(ctx, orderID)
}

// CheckoutCart builds the order from the user's current cart rows and clears
// the cart inside the same transaction.
func (s *OrderService) CheckoutCart(ctx context.Context, userID uint, shipping ShippingAddress, paymentMethod, notes string) (*models.Order, error) {
	var orderID uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cart models.Cart
		if err := tx.Preload("Items").Where("user_id = ?", userID).First(&cart).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.WithMessage(apperr.ErrNotFound, "Cart not found")
			}
			return err
		}
		if len(cart.Items) == 0 {
			return apperr.WithMessage(apperr.ErrBadRequest, "Cart is empty")
		}

		items := make([]OrderItemRequest, 0, len(cart.Items))
		for _, ci := range cart.Items {
			items = append(items, OrderItemRequest{ProductID: ci.ProductID, Quantity: ci.Quantity})
		}
		req := &CreateOrderRequest{
			Items:           items,
			ShippingAddress: shipping,
			PaymentMethod:   paymentMethod,
			OrderNotes:      notes,
		}

		id, err := s.createOrderTx(tx, userID, req, &cart)
		orderID = id
		return err
	})
	if err != nil {
		return nil, apperr.From(err)
	}

	return s.finishCreate(ctx, orderID)
}

// createOrderTx is the transactional body shared by CreateOrder and
// CheckoutCart. When clearCart is non-nil the cart is emptied in the same
// transaction.
func (s *OrderService) createOrderTx(tx *gorm.DB, userID uint, req *CreateOrderRequest, clearCart *models.Cart) (uint, error) {
	var totalAmount float64
	orderItems := make([]models.OrderItem, 0, len(req.Items))

	for _, item := range req.Items {
		var product models.Product
		if err := lockForUpdate(tx).First(&product, item.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return 0, apperr.WithMessage(apperr.ErrNotFound,
					fmt.Sprintf("Product %d not found", item.ProductID))
			}
			return 0, err
		}
		if !product.IsActive {
			return 0, apperr.WithMessage(apperr.ErrNotFound,
				fmt.Sprintf("Product %d not found", item.ProductID))
		}
		if product.Stock < item.Quantity {
			return 0, apperr.WithMessage(apperr.ErrInsufficientStock,
				fmt.Sprintf("Insufficient stock for %s: only %d available", product.Name, product.Stock))
		}

		totalAmount += product.Price * float64(item.Quantity)
		orderItems = append(orderItems, models.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     product.Price,
		})

		if err := tx.Model(&models.Product{}).
			Where("id = ?", product.ID).
			Update("stock", gorm.Expr("stock - ?", item.Quantity)).Error; err != nil {
			return 0, err
		}
	}

	order := models.Order{
		OrderNumber:     newOrderNumber(),
		UserID:          userID,
		TotalAmount:     totalAmount,
		Status:          models.OrderStatusPending,
		PaymentStatus:   models.PaymentStatusPending,
		PaymentMethod:   req.PaymentMethod,
		OrderNotes:      req.OrderNotes,
		ShippingStreet:  req.ShippingAddress.Street,
		ShippingCity:    req.ShippingAddress.City,
		ShippingState:   req.ShippingAddress.State,
		ShippingZipCode: req.ShippingAddress.ZipCode,
		ShippingCountry: req.ShippingAddress.Country,
	}
	if err := tx.Create(&order).Error; err != nil {
		return 0, err
	}

	for i := range orderItems {
		orderItems[i].OrderID = order.ID
	}
	if err := tx.Create(&orderItems).Error; err != nil {
		return 0, err
	}

	if clearCart != nil {
		if err := tx.Where("cart_id = ?", clearCart.ID).Delete(&models.CartItem{}).Error; err != nil {
			return 0, err
		}
		if err := tx.Model(&models.Cart{}).
			Where("id = ?", clearCart.ID).
			Updates(map[string]interface{}{"total_amount": 0, "item_count": 0}).Error; err != nil {
			return 0, err
		}
	}

	return order.ID, nil
}

// finishCreate reloads the committed order and fires post-commit side effects.
func (s *OrderService) finishCreate(ctx context.Context, orderID uint) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).
		Preload("Items.Product").
		First(&order, orderID).Error; err != nil {
		return nil, apperr.Wrap(apperr.ErrInternalServer, err)
	}

	if s.notifier != nil {
		s.notifier.SendOrderConfirmation(ctx, order.ID)
	}
	if s.events != nil {
		s.events.PublishOrderUpdate(map[string]interface{}{
			"order_number": order.OrderNumber,
			"status":       order.Status,
			"total_amount": order.TotalAmount,
		})
	}

	s.logger.Info("Order created",
		zap.Uint("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Uint("user_id", order.UserID),
		zap.Float64("total", order.TotalAmount),
	)
	return &order, nil
}

// GetMyOrders returns the caller's orders, newest first.
func (s *OrderService) GetMyOrders(ctx context.Context, userID uint, page, limit int) ([]models.Order, int64, error) {
	var orders []models.Order
	var total int64

	query := s.db.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperr.Wrap(apperr.ErrInternalServer, err)
	}

	if err := query.
		Preload("Items.Product").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&orders).Error; err != nil {
		return nil, 0, apperr.Wrap(apperr.ErrInternalServer, err)
	}
	return orders, total, nil
}

// GetOrder enforces ownership: non-owners who are not admins get Forbidden,
// not NotFound, so callers can tell the two failure kinds apart.
func (s *OrderService) GetOrder(ctx context.Context, orderID, userID uint, isAdmin bool) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).
		Preload("User").
		Preload("Items.Product").
		First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.WithMessage(apperr.ErrNotFound, "Order not found")
		}
		return nil, apperr.Wrap(apperr.ErrInternalServer, err)
	}

	if order.UserID != userID && !isAdmin {
		return nil, apperr.WithMessage(apperr.ErrForbidden, "Not authorized to view this order")
	}
	return &order, nil
}

// ListOrders is the admin view with optional status filter.
func (s *OrderService) ListOrders(ctx context.Context, page, limit int, status string) ([]models.Order, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Order{})
	if status != "" {
		if !models.ValidOrderStatuses[status] {
			return nil, 0, apperr.WithMessage(apperr.ErrBadRequest, "Invalid order status")
		}
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperr.Wrap(apperr.ErrInternalServer, err)
	}

	var orders []models.Order
	if err := query.
		Preload("User").
		Preload("Items.Product").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&orders).Error; err != nil {
		return nil, 0, apperr.Wrap(apperr.ErrInternalServer, err)
	}
	return orders, total, nil
}

// UpdateStatus is the only mutation an order accepts after creation.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uint, status string) (*models.Order, error) {
	if !models.ValidOrderStatuses[status] {
		return nil, apperr.WithMessage(apperr.ErrBadRequest, "Invalid order status")
	}

	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("status", status)
	if res.Error != nil {
		return nil, apperr.Wrap(apperr.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperr.WithMessage(apperr.ErrNotFound, "Order not found")
	}

	var order models.Order
	if err := s.db.WithContext(ctx).Preload("User").First(&order, orderID).Error; err != nil {
		return nil, apperr.Wrap(apperr.ErrInternalServer, err)
	}

	if s.notifier != nil {
		s.notifier.SendOrderStatusUpdate(ctx, &order, status)
	}
	if s.events != nil {
		s.events.PublishOrderUpdate(map[string]interface{}{
			"order_number": order.OrderNumber,
			"status":       status,
		})
	}
	return &order, nil
}

func newOrderNumber() string {
	return "ORD-" + strings.ToUpper(uuid.NewString()[:8]) + "-" + strings.ToUpper(uuid.NewString()[24:])
}
