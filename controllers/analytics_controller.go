package controllers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"commerce-api/services"
	"commerce-api/utils"

	"github.com/gin-gonic/gin"
)

type AnalyticsController struct {
	analytics *services.AnalyticsService
}

func NewAnalyticsController(analytics *services.AnalyticsService) *AnalyticsController {
	return &AnalyticsController{analytics: analytics}
}

func (ac *AnalyticsController) Dashboard(c *gin.Context) {
	stats, err := ac.analytics.Dashboard(c.Request.Context())
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.OK(c, stats)
}

func (ac *AnalyticsController) Sales(c *gin.Context) {
	result, err := ac.analytics.Sales(c.Request.Context(), c.DefaultQuery("period", "7d"))
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.OK(c, result)
}

func (ac *AnalyticsController) Users(c *gin.Context) {
	page, limit := pageParams(c)

	rows, pagination, err := ac.analytics.Users(c.Request.Context(), page, limit, c.Query("sort_by"))
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Paginated(c, rows, pagination)
}

func (ac *AnalyticsController) Products(c *gin.Context) {
	page, limit := pageParams(c)

	rows, pagination, err := ac.analytics.Products(c.Request.Context(), page, limit, c.Query("sort_by"))
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Paginated(c, rows, pagination)
}

// Export streams the selected dataset as JSON or CSV.
func (ac *AnalyticsController) Export(c *gin.Context) {
	exportType := c.DefaultQuery("type", "sales")
	format := c.DefaultQuery("format", "json")
	ctx := c.Request.Context()

	var (
		filename string
		header   []string
		records  [][]string
		data     interface{}
	)

	switch exportType {
	case "sales":
		rows, err := ac.analytics.SalesExport(ctx)
		if err != nil {
			utils.Fail(c, err)
			return
		}
		filename = "sales-analytics"
		header = []string{"order_number", "customer_name", "total_amount", "order_status", "payment_status", "payment_method", "order_date"}
		for _, r := range rows {
			records = append(records, []string{
				r.OrderNumber, r.CustomerName, fmt.Sprintf("%.2f", r.TotalAmount),
				r.OrderStatus, r.PaymentStatus, r.PaymentMethod,
				r.OrderDate.Format(time.RFC3339),
			})
		}
		data = rows
	case "users":
		rows, err := ac.analytics.UsersExport(ctx)
		if err != nil {
			utils.Fail(c, err)
			return
		}
		filename = "user-analytics"
		header = []string{"id", "name", "email", "joined_date", "total_orders", "total_spent", "avg_order_value"}
		for _, r := range rows {
			records = append(records, []string{
				fmt.Sprint(r.ID), r.Name, r.Email, r.CreatedAt.Format(time.RFC3339),
				fmt.Sprint(r.TotalOrders), fmt.Sprintf("%.2f", r.TotalSpent),
				fmt.Sprintf("%.2f", r.AvgOrderValue),
			})
		}
		data = rows
	case "products":
		rows, err := ac.analytics.ProductsExport(ctx)
		if err != nil {
			utils.Fail(c, err)
			return
		}
		filename = "product-analytics"
		header = []string{"id", "name", "price", "stock", "category", "total_sold", "total_revenue", "avg_rating"}
		for _, r := range rows {
			records = append(records, []string{
				fmt.Sprint(r.ID), r.Name, fmt.Sprintf("%.2f", r.Price),
				fmt.Sprint(r.Stock), r.Category, fmt.Sprint(r.TotalSold),
				fmt.Sprintf("%.2f", r.TotalRevenue), fmt.Sprintf("%.2f", r.AvgRating),
			})
		}
		data = rows
	default:
		utils.FailStatus(c, 400, "Invalid export type")
		return
	}

	if format != "csv" {
		utils.OK(c, data)
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", filename))
	c.Status(http.StatusOK)

	w := csv.NewWriter(c.Writer)
	_ = w.Write(header)
	for _, record := range records {
		_ = w.Write(record)
	}
	w.Flush()
}
