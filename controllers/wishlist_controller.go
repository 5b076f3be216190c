package controllers

import (
	"commerce-api/middleware"
	"commerce-api/services"
	"commerce-api/utils"

	"github.com/gin-gonic/gin"
)

type WishlistController struct {
	wishlist *services.WishlistService
}

func NewWishlistController(wishlist *services.WishlistService) *WishlistController {
	return &WishlistController{wishlist: wishlist}
}

func (wc *WishlistController) List(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.FailStatus(c, 401, "Unauthorized")
		return
	}

	items, err := wc.wishlist.List(c.Request.Context(), userID)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.OK(c, items)
}

func (wc *WishlistController) Add(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.FailStatus(c, 401, "Unauthorized")
		return
	}
	productID, ok := pathID(c, "productId")
	if !ok {
		return
	}

	entry, err := wc.wishlist.Add(c.Request.Context(), userID, productID)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Created(c, entry, "Added to wishlist")
}

func (wc *WishlistController) Remove(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.FailStatus(c, 401, "Unauthorized")
		return
	}
	productID, ok := pathID(c, "productId")
	if !ok {
		return
	}

	if err := wc.wishlist.Remove(c.Request.Context(), userID, productID); err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Message(c, "Removed from wishlist")
}

func (wc *WishlistController) MoveToCart(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.FailStatus(c, 401, "Unauthorized")
		return
	}
	productID, ok := pathID(c, "productId")
	if !ok {
		return
	}

	cart, err := wc.wishlist.MoveToCart(c.Request.Context(), userID, productID)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.OKMessage(c, cart, "Moved to cart")
}
