package utils

import (
	"net/http"

	"commerce-api/apperr"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pagination is the shared pagination envelope.
type Pagination struct {
	CurrentPage  int   `json:"current_page"`
	TotalPages   int64 `json:"total_pages"`
	TotalItems   int64 `json:"total_items"`
	ItemsPerPage int   `json:"items_per_page"`
}

func NewPagination(page, limit int, total int64) Pagination {
	return Pagination{
		CurrentPage:  page,
		TotalPages:   TotalPages(total, limit),
		TotalItems:   total,
		ItemsPerPage: limit,
	}
}

func TotalPages(total int64, limit int) int64 {
	if limit == 0 {
		return 0
	}
	return (total + int64(limit) - 1) / int64(limit)
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func OKMessage(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data, "message": message})
}

func Created(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": data, "message": message})
}

func Message(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message})
}

func Paginated(c *gin.Context, data interface{}, p Pagination) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data, "pagination": p})
}

// Fail writes the error envelope. Internal detail is logged, never returned.
func Fail(c *gin.Context, err error) {
	appErr := apperr.From(err)
	if appErr.Code >= http.StatusInternalServerError {
		zap.L().Error("Request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(appErr),
		)
		c.JSON(appErr.Code, gin.H{"success": false, "message": "Internal server error"})
		return
	}
	c.JSON(appErr.Code, gin.H{"success": false, "message": appErr.Message})
}

func FailStatus(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}
