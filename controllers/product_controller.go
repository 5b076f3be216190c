package controllers

import (
	"commerce-api/middleware"
	"commerce-api/services"
	"commerce-api/utils"

	"github.com/gin-gonic/gin"
)

type ProductController struct {
	products *services.ProductService
}

func NewProductController(products *services.ProductService) *ProductController {
	return &ProductController{products: products}
}

func (pc *ProductController) List(c *gin.Context) {
	var params services.ProductListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		utils.FailStatus(c, 400, "Invalid query parameters")
		return
	}

	products, pagination, err := pc.products.List(c.Request.Context(), params)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Paginated(c, products, pagination)
}

func (pc *ProductController) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	product, err := pc.products.Get(c.Request.Context(), id, middleware.IsAdmin(c))
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.OK(c, product)
}

func (pc *ProductController) Create(c *gin.Context) {
	var req services.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.FailStatus(c, 400, "Invalid request: "+err.Error())
		return
	}

	product, err := pc.products.Create(c.Request.Context(), req)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Created(c, product, "Product created")
}

func (pc *ProductController) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req services.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.FailStatus(c, 400, "Invalid request: "+err.Error())
		return
	}

	product, err := pc.products.Update(c.Request.Context(), id, req)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.OKMessage(c, product, "Product updated")
}

func (pc *ProductController) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := pc.products.Delete(c.Request.Context(), id); err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Message(c, "Product deleted")
}
