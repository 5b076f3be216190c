package controllers

import (
	"commerce-api/middleware"
	"commerce-api/services"
	"commerce-api/utils"

	"github.com/gin-gonic/gin"
)

type addToCartRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,min=1"`
}

type updateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required,min=0"`
}

type CartController struct {
	cart *services.CartService
}

func NewCartController(cart *services.CartService) *CartController {
	return &CartController{cart: cart}
}

func (cc *CartController) Get(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.FailStatus(c, 401, "Unauthorized")
		return
	}

	cart, err := cc.cart.GetCart(c.Request.Context(), userID)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.OK(c, cart)
}

func (cc *CartController) AddItem(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.FailStatus(c, 401, "Unauthorized")
		return
	}

	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.FailStatus(c, 400, "Invalid request: "+err.Error())
		return
	}

	cart, err := cc.cart.AddToCart(c.Request.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.OKMessage(c, cart, "Item added to cart")
}

func (cc *CartController) UpdateItem(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.FailStatus(c, 401, "Unauthorized")
		return
	}
	itemID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req updateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Quantity == nil {
		utils.FailStatus(c, 400, "Invalid request")
		return
	}

	if err := cc.cart.UpdateItem(c.Request.Context(), userID, itemID, *req.Quantity); err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Message(c, "Cart updated")
}

func (cc *CartController) RemoveItem(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.FailStatus(c, 401, "Unauthorized")
		return
	}
	itemID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := cc.cart.RemoveItem(c.Request.Context(), userID, itemID); err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Message(c, "Item removed from cart")
}

func (cc *CartController) Clear(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.FailStatus(c, 401, "Unauthorized")
		return
	}

	if err := cc.cart.Clear(c.Request.Context(), userID); err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Message(c, "Cart cleared")
}

func (cc *CartController) MoveToWishlist(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.FailStatus(c, 401, "Unauthorized")
		return
	}
	itemID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := cc.cart.MoveToWishlist(c.Request.Context(), userID, itemID); err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Message(c, "Item moved to wishlist")
}
