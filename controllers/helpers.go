package controllers

import (
	"strconv"

	"commerce-api/utils"

	"github.com/gin-gonic/gin"
)

// pathID parses a positive integer path parameter, writing the error
// response itself on failure.
func pathID(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		utils.FailStatus(c, 400, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// pageParams reads page/limit query parameters with defaults.
func pageParams(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
