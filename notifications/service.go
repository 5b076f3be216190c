package notifications

import (
	"context"
	"fmt"
	"html/template"

	"commerce-api/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NotificationService sends lifecycle emails. Every send is best-effort:
// failures are logged and never propagated to the caller's transaction.
type NotificationService struct {
	db     *gorm.DB
	sender EmailSender
	logger *zap.Logger
}

func NewNotificationService(db *gorm.DB, sender EmailSender, logger *zap.Logger) *NotificationService {
	return &NotificationService{db: db, sender: sender, logger: logger}
}

func (n *NotificationService) send(ctx context.Context, to, subject, text, body string) {
	if n.sender == nil {
		return
	}
	html, err := renderEmail(subject, body)
	if err != nil {
		n.logger.Error("Failed to render email template", zap.Error(err), zap.String("subject", subject))
		return
	}
	if _, err := n.sender.SendEmail(ctx, to, subject, text, html); err != nil {
		n.logger.Warn("Failed to send email",
			zap.String("to", to),
			zap.String("subject", subject),
			zap.Error(err),
		)
	}
}

func (n *NotificationService) SendWelcome(ctx context.Context, user *models.User) {
	body := fmt.Sprintf(`<h2>Hello %s,</h2>
<p>Your account has been successfully created and you're ready to start shopping.</p>
<ul>
  <li>Browse our latest collections</li>
  <li>Save your favorite items to your wishlist</li>
  <li>Track your orders easily</li>
</ul>`, template.HTMLEscapeString(user.Name))

	n.send(ctx, user.Email, "Welcome!",
		fmt.Sprintf("Welcome %s! Your account has been successfully created.", user.Name),
		body)
}

func (n *NotificationService) SendOrderConfirmation(ctx context.Context, orderID uint) {
	var order models.Order
	if err := n.db.WithContext(ctx).
		Preload("Items.Product").
		Preload("User").
		First(&order, orderID).Error; err != nil {
		n.logger.Warn("Order not found for confirmation email", zap.Uint("order_id", orderID), zap.Error(err))
		return
	}
	if order.User == nil {
		return
	}

	lines := make([]orderLine, 0, len(order.Items))
	for _, item := range order.Items {
		name := fmt.Sprintf("Product #%d", item.ProductID)
		if item.Product != nil {
			name = item.Product.Name
		}
		lines = append(lines, orderLine{
			Name:     name,
			Quantity: item.Quantity,
			Subtotal: item.Price * float64(item.Quantity),
		})
	}

	body := fmt.Sprintf(`<h2>Thank you for your order, %s!</h2>
<p>We've received order %s and are getting it ready.</p>%s`,
		template.HTMLEscapeString(order.User.Name),
		template.HTMLEscapeString(order.OrderNumber),
		orderItemsHTML(lines, order.TotalAmount))

	n.send(ctx, order.User.Email, "Order Confirmation",
		fmt.Sprintf("Your order %s has been placed successfully. Total: $%.2f", order.OrderNumber, order.TotalAmount),
		body)
}

func (n *NotificationService) SendOrderStatusUpdate(ctx context.Context, order *models.Order, status string) {
	if order.User == nil {
		var user models.User
		if err := n.db.WithContext(ctx).First(&user, order.UserID).Error; err != nil {
			n.logger.Warn("User not found for status email", zap.Uint("order_id", order.ID), zap.Error(err))
			return
		}
		order.User = &user
	}

	body := fmt.Sprintf(`<h2>Order Status Update</h2>
<p>Your order %s status has been updated to: <strong>%s</strong></p>`,
		template.HTMLEscapeString(order.OrderNumber),
		template.HTMLEscapeString(status))

	n.send(ctx, order.User.Email, "Order Status Update",
		fmt.Sprintf("Your order %s status has been updated to: %s", order.OrderNumber, status),
		body)
}

func (n *NotificationService) SendPaymentConfirmation(ctx context.Context, order *models.Order) {
	if order.User == nil {
		var user models.User
		if err := n.db.WithContext(ctx).First(&user, order.UserID).Error; err != nil {
			return
		}
		order.User = &user
	}

	body := fmt.Sprintf(`<h2>Payment Confirmed</h2>
<p>Your payment of $%.2f for order %s has been processed successfully.</p>`,
		order.TotalAmount, template.HTMLEscapeString(order.OrderNumber))

	n.send(ctx, order.User.Email, "Payment Confirmation",
		fmt.Sprintf("Your payment for order %s has been confirmed.", order.OrderNumber),
		body)
}

// SendLowStockAlert notifies every admin account about a product running low.
func (n *NotificationService) SendLowStockAlert(ctx context.Context, product *models.Product) {
	var admins []models.User
	if err := n.db.WithContext(ctx).
		Where("role = ? AND is_active = ?", models.RoleAdmin, true).
		Find(&admins).Error; err != nil {
		n.logger.Warn("Failed to load admins for low stock alert", zap.Error(err))
		return
	}

	body := fmt.Sprintf(`<h2>Low Stock Alert</h2>
<p><strong>%s</strong> is down to %d units. Consider restocking.</p>`,
		template.HTMLEscapeString(product.Name), product.Stock)

	for _, admin := range admins {
		n.send(ctx, admin.Email, "Low Stock Alert",
			fmt.Sprintf("%s is down to %d units.", product.Name, product.Stock),
			body)
	}
}

func (n *NotificationService) SendAbandonedCartReminder(ctx context.Context, userID uint) {
	var user models.User
	if err := n.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		n.logger.Warn("User not found for abandoned cart reminder", zap.Uint("user_id", userID), zap.Error(err))
		return
	}

	body := fmt.Sprintf(`<h2>You left something behind, %s</h2>
<p>Your cart is still waiting. Complete your purchase before the items sell out.</p>`,
		template.HTMLEscapeString(user.Name))

	n.send(ctx, user.Email, "Your cart misses you",
		"Your cart is still waiting. Complete your purchase before the items sell out.",
		body)
}
