package controllers

import (
	"commerce-api/middleware"
	"commerce-api/services"
	"commerce-api/utils"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	auth *services.AuthService
}

func NewAuthController(auth *services.AuthService) *AuthController {
	return &AuthController{auth: auth}
}

func (ac *AuthController) Register(c *gin.Context) {
	var req services.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.FailStatus(c, 400, "Invalid request: "+err.Error())
		return
	}

	result, err := ac.auth.Register(c.Request.Context(), req)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Created(c, result, "Registration successful")
}

func (ac *AuthController) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.FailStatus(c, 400, "Invalid request: "+err.Error())
		return
	}

	result, err := ac.auth.Login(c.Request.Context(), req)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.OKMessage(c, result, "Logged in")
}

func (ac *AuthController) Me(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.FailStatus(c, 401, "Unauthorized")
		return
	}

	user, err := ac.auth.Profile(c.Request.Context(), userID)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.OK(c, user)
}
