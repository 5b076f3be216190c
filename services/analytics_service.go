package services

import (
	"context"
	"time"

	"commerce-api/apperr"
	"commerce-api/models"
	"commerce-api/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Revenue-bearing orders are paid and not unwound. Every aggregate in this
// file uses the same filter so the numbers agree across endpoints.
const revenueFilter = "payment_status = 'completed' AND status NOT IN ('cancelled', 'refunded')"

// orderRevenueFilter is revenueFilter with columns qualified for queries that
// join orders under the alias o.
const orderRevenueFilter = "o.payment_status = 'completed' AND o.status NOT IN ('cancelled', 'refunded')"

const lowStockThreshold = 10

// analyticsPeriods maps the period query parameter to a lookback window.
var analyticsPeriods = map[string]time.Duration{
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
	"90d": 90 * 24 * time.Hour,
	"1y":  365 * 24 * time.Hour,
}

// userSorts and productSorts allow-list the ORDER BY expressions for the
// admin listing endpoints. Caller input never reaches SQL directly.
var userSorts = map[string]string{
	"total_spent":     "total_spent DESC",
	"total_orders":    "total_orders DESC",
	"avg_order_value": "avg_order_value DESC",
	"newest":          "u.created_at DESC",
}

var productSorts = map[string]string{
	"total_revenue": "total_revenue DESC",
	"total_sold":    "total_sold DESC",
	"rating":        "avg_rating DESC",
	"stock":         "p.stock ASC",
}

type DashboardOverview struct {
	TotalUsers    int64   `json:"total_users"`
	TotalOrders   int64   `json:"total_orders"`
	TotalProducts int64   `json:"total_products"`
	TotalRevenue  float64 `json:"total_revenue"`
	PendingOrders int64   `json:"pending_orders"`
}

type TopSeller struct {
	ID        uint    `json:"id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	TotalSold int64   `json:"total_sold"`
}

type DashboardStats struct {
	Overview     DashboardOverview `json:"overview"`
	RecentOrders []models.Order    `json:"recent_orders"`
	LowStock     []models.Product  `json:"low_stock_products"`
	TopSellers   []TopSeller       `json:"top_selling_products"`
}

type SalesTrendPoint struct {
	Date       string  `json:"date"`
	OrderCount int64   `json:"order_count"`
	Revenue    float64 `json:"revenue"`
}

type CategoryPerformance struct {
	Category   string  `json:"category"`
	OrderCount int64   `json:"order_count"`
	ItemsSold  int64   `json:"items_sold"`
	Revenue    float64 `json:"revenue"`
}

type PaymentMethodStat struct {
	PaymentMethod string  `json:"payment_method"`
	UsageCount    int64   `json:"usage_count"`
	TotalAmount   float64 `json:"total_amount"`
}

type CustomerSegment struct {
	CustomerType  string  `json:"customer_type"`
	CustomerCount int64   `json:"customer_count"`
	AvgSpent      float64 `json:"avg_spent"`
}

type SalesAnalytics struct {
	SalesTrend          []SalesTrendPoint     `json:"sales_trend"`
	CategoryPerformance []CategoryPerformance `json:"category_performance"`
	PaymentMethodStats  []PaymentMethodStat   `json:"payment_method_stats"`
	CustomerStats       []CustomerSegment     `json:"customer_stats"`
}

type UserAnalyticsRow struct {
	ID            uint       `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	CreatedAt     time.Time  `json:"created_at"`
	TotalOrders   int64      `json:"total_orders"`
	TotalSpent    float64    `json:"total_spent"`
	AvgOrderValue float64    `json:"avg_order_value"`
	LastOrderDate *time.Time `json:"last_order_date"`
}

type ProductAnalyticsRow struct {
	ID           uint    `json:"id"`
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	Stock        int     `json:"stock"`
	Category     string  `json:"category"`
	TotalSold    int64   `json:"total_sold"`
	TotalRevenue float64 `json:"total_revenue"`
	AvgRating    float64 `json:"avg_rating"`
	ReviewCount  int64   `json:"review_count"`
}

type SalesExportRow struct {
	OrderNumber   string    `json:"order_number"`
	CustomerName  string    `json:"customer_name"`
	TotalAmount   float64   `json:"total_amount"`
	OrderStatus   string    `json:"order_status"`
	PaymentStatus string    `json:"payment_status"`
	PaymentMethod string    `json:"payment_method"`
	OrderDate     time.Time `json:"order_date"`
}

// AnalyticsService runs the admin read-side aggregates. Pure queries, no
// writes, no locking.
type AnalyticsService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewAnalyticsService(db *gorm.DB, logger *zap.Logger) *AnalyticsService {
	return &AnalyticsService{db: db, logger: logger}
}

func (s *AnalyticsService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	db := s.db.WithContext(ctx)
	var stats DashboardStats

	if err := db.Model(&models.User{}).Count(&stats.Overview.TotalUsers).Error; err != nil {
		return nil, apperr.Wrap(apperr.ErrInternalServer, err)
	}
	if err := db.Model(&models.Order{}).Count(&stats.Overview.TotalOrders).Error; err != nil {
		return nil, apperr.Wrap(apperr.ErrInternalServer, err)
	}
	if err := db.Model(&models.Product{}).Where("is_active = ?", true).
		Count(&stats.Overview.TotalProducts).Error; err != nil {
		return nil, apperr.Wrap(apperr.ErrInternalServer, err)
	}
	if err := db.Model(&models.Order{}).Where(revenueFilter).
		Select("COALESCE(SUM(total_amount), 0)").
		Scan(&stats.Overview.TotalRevenue).Error; err != nil {
		return nil, apperr.Wrap(apperr.ErrInternalServer, err)
	}
	if err := db.Model(&models.Order{}).
		Where("status IN ?", []string{models.OrderStatusPending, models.OrderStatusProcessing}).
		Count(&stats.Overview.PendingOrders).Error; err != nil {
		return nil, apperr.Wrap(apperr.ErrInternalServer, err)
	}

	weekAgo := time.Now().Add(-7 * 24 * time.Hour)
	if err := db.Preload("User").
		Where("created_at >= ?", weekAgo).
		Order("created_at DESC").
		Limit(10).
		Find(&stats.RecentOrders).Error; err != nil {
		return nil, apperr.Wrap(apperr.ErrInternalServer, err)
	}

	if err := db.Where("stock <= ? AND is_active = ?", lowStockThreshold, true).
		Order("stock ASC").
		Limit(10).
		Find(&stats.LowStock).Error; err != nil {
		return nil, apperr.Wrap(apperr.ErrInternalServer, err)
	}

	if err := s.topSellers(ctx, 10, &stats.TopSellers); err != nil {
		return nil, apperr.Wrap(apperr.ErrInternalServer, err)
	}
	return &stats, nil
}

func (s *AnalyticsService) topSellers(ctx context.Context, limit int, out *[]TopSeller) error {
	return s.db.WithContext(ctx).
		Table("products p").
		Select("p.id, p.name, p.price, SUM(oi.quantity) AS total_sold").
		Joins("JOIN order_items oi ON oi.product_id = p.id").
		Joins("JOIN orders o ON o.id = oi.order_id").
		Where(orderRevenueFilter).
		Where("p.is_active = ?", true).
		Group("p.id, p.name, p.price").
		Order("total_sold DESC").
		Limit(limit).
		Scan(out).Error
}

func (s *AnalyticsService) Sales(ctx context.Context, period string) (*SalesAnalytics, error) {
	window, ok := analyticsPeriods[period]
	if !ok {
		window = analyticsPeriods["7d"]
	}
	since := time.Now().Add(-window)
	db := s.db.WithContext(ctx)

	var out SalesAnalytics

	if err := db.Model(&models.Order{}).
		Select("DATE(created_at) AS date, COUNT(*) AS order_count, SUM(total_amount) AS revenue").
		Where("created_at >= ?", since).
		Where(revenueFilter).
		Group("DATE(created_at)").
		Order("date").
		Scan(&out.SalesTrend).Error; err != nil {
		return nil, apperr.Wrap(apperr.ErrInternalServer, err)
	}

	if err := db.Table("categories c").
		Select("c.name AS category, COUNT(DISTINCT o.id) AS order_count, SUM(oi.quantity) AS items_sold, SUM(oi.price * oi.quantity) AS revenue").
		Joins("JOIN products p ON p.category_id = c.id").
		Joins("JOIN order_items oi ON oi.product_id = p.id").
		Joins("JOIN orders o ON o.id = oi.order_id").
		Where("o.created_at >= ?", since).
		Where(orderRevenueFilter).
		Group("c.id, c.name").
		Order("revenue DESC").
		Scan(&out.CategoryPerformance).Error; err != nil {
		return nil, apperr.Wrap(apperr.ErrInternalServer, err)
	}

	if err := db.Model(&models.Order{}).
		Select("payment_method, COUNT(*) AS usage_count, SUM(total_amount) AS total_amount").
		Where("created_at >= ?", since).
		Where(revenueFilter).
		Group("payment_method").
		Order("usage_count DESC").
		Scan(&out.PaymentMethodStats).Error; err != nil {
		return nil, apperr.Wrap(apperr.ErrInternalServer, err)
	}

	if err := db.Raw(`
		SELECT
		  CASE
		    WHEN order_count = 1 THEN 'new'
		    WHEN order_count BETWEEN 2 AND 5 THEN 'returning'
		    ELSE 'loyal'
		  END AS customer_type,
		  COUNT(*) AS customer_count,
		  AVG(total_spent) AS avg_spent
		FROM (
		  SELECT user_id, COUNT(*) AS order_count, SUM(total_amount) AS total_spent
		  FROM orders
		  WHERE created_at >= ? AND `+revenueFilter+`
		  GROUP BY user_id
		) user_orders
		GROUP BY customer_type`, since).
		Scan(&out.CustomerStats).Error; err != nil {
		return nil, apperr.Wrap(apperr.ErrInternalServer, err)
	}

	return &out, nil
}

func (s *AnalyticsService) Users(ctx context.Context, page, limit int, sortBy string) ([]UserAnalyticsRow, utils.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	order, ok := userSorts[sortBy]
	if !ok {
		order = userSorts["total_spent"]
	}

	var rows []UserAnalyticsRow
	err := s.db.WithContext(ctx).
		Table("users u").
		Select(`u.id, u.name, u.email, u.created_at,
			COUNT(o.id) AS total_orders,
			COALESCE(SUM(o.total_amount), 0) AS total_spent,
			COALESCE(AVG(o.total_amount), 0) AS avg_order_value,
			MAX(o.created_at) AS last_order_date`).
		Joins("LEFT JOIN orders o ON o.user_id = u.id AND " + orderRevenueFilter).
		Group("u.id, u.name, u.email, u.created_at").
		Order(order).
		Limit(limit).
		Offset((page - 1) * limit).
		Scan(&rows).Error
	if err != nil {
		return nil, utils.Pagination{}, apperr.Wrap(apperr.ErrInternalServer, err)
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, utils.Pagination{}, apperr.Wrap(apperr.ErrInternalServer, err)
	}
	return rows, utils.NewPagination(page, limit, total), nil
}

func (s *AnalyticsService) Products(ctx context.Context, page, limit int, sortBy string) ([]ProductAnalyticsRow, utils.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	order, ok := productSorts[sortBy]
	if !ok {
		order = productSorts["total_revenue"]
	}

	var rows []ProductAnalyticsRow
	err := s.db.WithContext(ctx).
		Table("products p").
		Select(`p.id, p.name, p.price, p.stock,
			COALESCE(c.name, '') AS category,
			COALESCE(SUM(oi.quantity), 0) AS total_sold,
			COALESCE(SUM(oi.price * oi.quantity), 0) AS total_revenue,
			p.average_rating AS avg_rating,
			p.rating_count AS review_count`).
		Joins("LEFT JOIN categories c ON c.id = p.category_id").
		Joins("LEFT JOIN order_items oi ON oi.product_id = p.id").
		Joins("LEFT JOIN orders o ON o.id = oi.order_id AND "+orderRevenueFilter).
		Where("p.is_active = ?", true).
		Group("p.id, p.name, p.price, p.stock, c.name, p.average_rating, p.rating_count").
		Order(order).
		Limit(limit).
		Offset((page - 1) * limit).
		Scan(&rows).Error
	if err != nil {
		return nil, utils.Pagination{}, apperr.Wrap(apperr.ErrInternalServer, err)
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("is_active = ?", true).Count(&total).Error; err != nil {
		return nil, utils.Pagination{}, apperr.Wrap(apperr.ErrInternalServer, err)
	}
	return rows, utils.NewPagination(page, limit, total), nil
}

// SalesExport returns the flat per-order rows used by the export endpoint.
func (s *AnalyticsService) SalesExport(ctx context.Context) ([]SalesExportRow, error) {
	var rows []SalesExportRow
	err := s.db.WithContext(ctx).
		Table("orders o").
		Select(`o.order_number, u.name AS customer_name, o.total_amount,
			o.status AS order_status, o.payment_status, o.payment_method,
			o.created_at AS order_date`).
		Joins("JOIN users u ON u.id = o.user_id").
		Where(orderRevenueFilter).
		Order("o.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrInternalServer, err)
	}
	return rows, nil
}

// UsersExport returns the unpaginated user aggregate rows for export.
func (s *AnalyticsService) UsersExport(ctx context.Context) ([]UserAnalyticsRow, error) {
	var rows []UserAnalyticsRow
	err := s.db.WithContext(ctx).
		Table("users u").
		Select(`u.id, u.name, u.email, u.created_at,
			COUNT(o.id) AS total_orders,
			COALESCE(SUM(o.total_amount), 0) AS total_spent,
			COALESCE(AVG(o.total_amount), 0) AS avg_order_value,
			MAX(o.created_at) AS last_order_date`).
		Joins("LEFT JOIN orders o ON o.user_id = u.id AND " + orderRevenueFilter).
		Group("u.id, u.name, u.email, u.created_at").
		Order("total_spent DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrInternalServer, err)
	}
	return rows, nil
}

// ProductsExport returns the unpaginated product aggregate rows for export.
func (s *AnalyticsService) ProductsExport(ctx context.Context) ([]ProductAnalyticsRow, error) {
	var rows []ProductAnalyticsRow
	err := s.db.WithContext(ctx).
		Table("products p").
		Select(`p.id, p.name, p.price, p.stock,
			COALESCE(c.name, '') AS category,
			COALESCE(SUM(oi.quantity), 0) AS total_sold,
			COALESCE(SUM(oi.price * oi.quantity), 0) AS total_revenue,
			p.average_rating AS avg_rating,
			p.rating_count AS review_count`).
		Joins("LEFT JOIN categories c ON c.id = p.category_id").
		Joins("LEFT JOIN order_items oi ON oi.product_id = p.id").
		Joins("LEFT JOIN orders o ON o.id = oi.order_id AND "+orderRevenueFilter).
		Where("p.is_active = ?", true).
		Group("p.id, p.name, p.price, p.stock, c.name, p.average_rating, p.rating_count").
		Order("total_revenue DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrInternalServer, err)
	}
	return rows, nil
}

// DashboardSnapshot is the condensed aggregate pushed over the websocket.
func (s *AnalyticsService) DashboardSnapshot(ctx context.Context) (interface{}, error) {
	db := s.db.WithContext(ctx)

	var revenue float64
	if err := db.Model(&models.Order{}).Where(revenueFilter).
		Select("COALESCE(SUM(total_amount), 0)").Scan(&revenue).Error; err != nil {
		return nil, err
	}
	var orders, users int64
	if err := db.Model(&models.Order{}).Count(&orders).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.User{}).Count(&users).Error; err != nil {
		return nil, err
	}

	var recent []models.Order
	if err := db.Preload("User").Order("created_at DESC").Limit(5).Find(&recent).Error; err != nil {
		return nil, err
	}

	var top []TopSeller
	if err := s.topSellers(ctx, 5, &top); err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"total_revenue": revenue,
		"total_orders":  orders,
		"total_users":   users,
		"recent_orders": recent,
		"top_products":  top,
	}, nil
}

// ProductSnapshot is the per-product aggregate pushed to product rooms.
func (s *AnalyticsService) ProductSnapshot(ctx context.Context, productID uint) (interface{}, error) {
	db := s.db.WithContext(ctx)

	var product models.Product
	if err := db.First(&product, productID).Error; err != nil {
		return nil, err
	}

	since := time.Now().Add(-30 * 24 * time.Hour)
	var sales []SalesTrendPoint
	if err := db.Table("order_items oi").
		Select("DATE(o.created_at) AS date, SUM(oi.quantity) AS order_count, SUM(oi.price * oi.quantity) AS revenue").
		Joins("JOIN orders o ON o.id = oi.order_id").
		Where("oi.product_id = ?", productID).
		Where("o.created_at >= ?", since).
		Where(orderRevenueFilter).
		Group("DATE(o.created_at)").
		Order("date").
		Scan(&sales).Error; err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"product_name":  product.Name,
		"sales_data":    sales,
		"avg_rating":    product.AverageRating,
		"review_count":  product.RatingCount,
		"current_stock": product.Stock,
	}, nil
}
