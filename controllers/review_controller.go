package controllers

import (
	"commerce-api/middleware"
	"commerce-api/services"
	"commerce-api/utils"

	"github.com/gin-gonic/gin"
)

type ReviewController struct {
	reviews *services.ReviewService
}

func NewReviewController(reviews *services.ReviewService) *ReviewController {
	return &ReviewController{reviews: reviews}
}

func (rc *ReviewController) ListForProduct(c *gin.Context) {
	productID, ok := pathID(c, "id")
	if !ok {
		return
	}
	page, limit := pageParams(c)

	reviews, pagination, err := rc.reviews.ListForProduct(c.Request.Context(), productID, page, limit)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Paginated(c, reviews, pagination)
}

func (rc *ReviewController) Create(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.FailStatus(c, 401, "Unauthorized")
		return
	}
	productID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req services.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.FailStatus(c, 400, "Invalid request: "+err.Error())
		return
	}

	review, err := rc.reviews.Create(c.Request.Context(), userID, productID, req)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Created(c, review, "Review submitted")
}

func (rc *ReviewController) Delete(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.FailStatus(c, 401, "Unauthorized")
		return
	}
	reviewID, ok := pathID(c, "reviewId")
	if !ok {
		return
	}

	if err := rc.reviews.Delete(c.Request.Context(), userID, reviewID, middleware.IsAdmin(c)); err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Message(c, "Review deleted")
}
