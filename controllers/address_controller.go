package controllers

import (
	"commerce-api/middleware"
	"commerce-api/services"
	"commerce-api/utils"

	"github.com/gin-gonic/gin"
)

type AddressController struct {
	addresses *services.AddressService
}

func NewAddressController(addresses *services.AddressService) *AddressController {
	return &AddressController{addresses: addresses}
}

func (ac *AddressController) List(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.FailStatus(c, 401, "Unauthorized")
		return
	}

	addresses, err := ac.addresses.List(c.Request.Context(), userID)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.OK(c, addresses)
}

func (ac *AddressController) Create(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.FailStatus(c, 401, "Unauthorized")
		return
	}

	var req services.AddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.FailStatus(c, 400, "Invalid request: "+err.Error())
		return
	}

	address, err := ac.addresses.Create(c.Request.Context(), userID, req)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Created(c, address, "Address added")
}

func (ac *AddressController) Update(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.FailStatus(c, 401, "Unauthorized")
		return
	}
	addressID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req services.AddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.FailStatus(c, 400, "Invalid request: "+err.Error())
		return
	}

	address, err := ac.addresses.Update(c.Request.Context(), userID, addressID, req)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.OKMessage(c, address, "Address updated")
}

func (ac *AddressController) Delete(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.FailStatus(c, 401, "Unauthorized")
		return
	}
	addressID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := ac.addresses.Delete(c.Request.Context(), userID, addressID); err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Message(c, "Address removed")
}
