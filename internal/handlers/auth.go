package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"blood-platform/internal/middleware"
	"blood-platform/internal/models"
	"blood-platform/internal/response"
	"blood-platform/internal/service"
)

type AuthHandler struct {
	Accounts  *service.Accounts
	JwtSecret string
	TokenTTL  time.Duration
}

func NewAuthHandler(accounts *service.Accounts, jwtSecret string, ttl time.Duration) *AuthHandler {
	return &AuthHandler{Accounts: accounts, JwtSecret: jwtSecret, TokenTTL: ttl}
}

type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	Name      string `json:"name" binding:"required"`
	BloodType string `json:"bloodType"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := bindJSON(c, &req, false); err != nil {
		response.Error(c, err)
		return
	}

	user, err := h.Accounts.Register(c.Request.Context(), service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		Name:      req.Name,
		BloodType: req.BloodType,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respondWithToken(c, http.StatusCreated, user)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := bindJSON(c, &req, false); err != nil {
		response.Error(c, err)
		return
	}

	user, err := h.Accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respondWithToken(c, http.StatusOK, user)
}

func (h *AuthHandler) respondWithToken(c *gin.Context, status int, user *models.User) {
	token, err := middleware.IssueToken(h.JwtSecret, user.ID, user.Role, h.TokenTTL)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, status, authResponse{Token: token, User: user})
}

// Me returns the caller's profile, including the live token balance.
func (h *AuthHandler) Me(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	user, err := h.Accounts.Profile(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, user)
}
