package controllers

import (
	"net/http"

	"commerce-api/services"
	"commerce-api/utils"

	"github.com/gin-gonic/gin"
)

type trackSearchRequest struct {
	Query string `json:"query" binding:"required"`
}

type SearchController struct {
	search *services.SearchService
}

func NewSearchController(search *services.SearchService) *SearchController {
	return &SearchController{search: search}
}

func (sc *SearchController) Search(c *gin.Context) {
	var q services.SearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		utils.FailStatus(c, 400, "Invalid query parameters")
		return
	}

	result, cached, err := sc.search.SearchProducts(c.Request.Context(), q)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": result, "cached": cached})
}

func (sc *SearchController) Suggestions(c *gin.Context) {
	suggestions, err := sc.search.Suggestions(c.Request.Context(), c.Query("q"))
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.OK(c, suggestions)
}

func (sc *SearchController) Popular(c *gin.Context) {
	searches, err := sc.search.PopularSearches(c.Request.Context())
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.OK(c, searches)
}

func (sc *SearchController) Track(c *gin.Context) {
	var req trackSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.FailStatus(c, 400, "Invalid request: "+err.Error())
		return
	}

	if err := sc.search.TrackSearch(c.Request.Context(), req.Query); err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Message(c, "Search tracked")
}
