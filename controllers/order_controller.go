package controllers

import (
	"commerce-api/middleware"
	"commerce-api/services"
	"commerce-api/utils"

	"github.com/gin-gonic/gin"
)

type checkoutRequest struct {
	ShippingAddress services.ShippingAddress `json:"shipping_address" binding:"required"`
	PaymentMethod   string                   `json:"payment_method" binding:"required"`
	OrderNotes      string                   `json:"order_notes"`
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type OrderController struct {
	orders *services.OrderService
}

func NewOrderController(orders *services.OrderService) *OrderController {
	return &OrderController{orders: orders}
}

func (oc *OrderController) Create(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.FailStatus(c, 401, "Unauthorized")
		return
	}

	var req services.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.FailStatus(c, 400, "Invalid request: "+err.Error())
		return
	}

	order, err := oc.orders.CreateOrder(c.Request.Context(), userID, &req)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Created(c, order, "Order placed")
}

// Checkout builds the order from the caller's cart and clears it.
func (oc *OrderController) Checkout(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.FailStatus(c, 401, "Unauthorized")
		return
	}

	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.FailStatus(c, 400, "Invalid request: "+err.Error())
		return
	}

	order, err := oc.orders.CheckoutCart(c.Request.Context(), userID, req.ShippingAddress, req.PaymentMethod, req.OrderNotes)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Created(c, order, "Order placed")
}

func (oc *OrderController) Mine(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.FailStatus(c, 401, "Unauthorized")
		return
	}
	page, limit := pageParams(c)

	orders, total, err := oc.orders.GetMyOrders(c.Request.Context(), userID, page, limit)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Paginated(c, orders, utils.NewPagination(page, limit, total))
}

func (oc *OrderController) Get(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.FailStatus(c, 401, "Unauthorized")
		return
	}
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	order, err := oc.orders.GetOrder(c.Request.Context(), orderID, userID, middleware.IsAdmin(c))
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.OK(c, order)
}

// List is the admin view with an optional status filter.
func (oc *OrderController) List(c *gin.Context) {
	page, limit := pageParams(c)

	orders, total, err := oc.orders.ListOrders(c.Request.Context(), page, limit, c.Query("status"))
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Paginated(c, orders, utils.NewPagination(page, limit, total))
}

func (oc *OrderController) UpdateStatus(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.FailStatus(c, 400, "Invalid request: "+err.Error())
		return
	}

	order, err := oc.orders.UpdateStatus(c.Request.Context(), orderID, req.Status)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.OKMessage(c, order, "Order status updated")
}
