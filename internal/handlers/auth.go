package handlers

import (
	"errors"
	"net/http"
	"time"

	"devsecops_api/internal/models"
	"devsecops_api/internal/service"
	"devsecops_api/internal/validation"

	"github.com/gin-gonic/gin"
)

// RegisterRequest is the registration payload.
type RegisterRequest struct {
	Email    string `json:"email" example:"alice@example.com"`
	Password string `json:"password" example:"Abc12345!"`
	// Optional; defaults to the local part of the email
	Username string `json:"username,omitempty" example:"alice"`
}

// RegisterResponse is returned on successful registration.
type RegisterResponse struct {
	Message string `json:"message" example:"User registered successfully"`
	UserID  int64  `json:"user_id" example:"1"`
}

// LoginRequest is the login payload.
type LoginRequest struct {
	Email    string `json:"email" example:"alice@example.com"`
	Password string `json:"password" example:"Abc12345!"`
	// Optional relative path the client wants to land on after login
	Redirect string `json:"redirect,omitempty" example:"/dashboard"`
}

// LoginResponse carries the bearer token.
type LoginResponse struct {
	Message     string            `json:"message" example:"Login successful"`
	AccessToken string            `json:"access_token"`
	TokenType   string            `json:"token_type" example:"Bearer"`
	ExpiresAt   time.Time         `json:"expires_at"`
	User        models.PublicUser `json:"user"`
	Redirect    string            `json:"redirect,omitempty" example:"/dashboard"`
}

// @Summary      Register a user
// @Description  Password needs 8+ chars with upper, lower, digit and special character
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      RegisterRequest  true  "Registration payload"
// @Success      201   {object}  RegisterResponse
// @Failure      400   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /auth/register [post]
func (h *Handler) register(c *gin.Context) {
	var input RegisterRequest
	if ok := h.bindJSONOrBadRequest(c, &input); !ok {
		return
	}

	id, err := h.services.Register(c.Request.Context(), service.RegisterInput{
		Email:    input.Email,
		Password: input.Password,
		Username: input.Username,
	})
	if err != nil {
		h.respondServiceError(c, err, errRegistration, "auth_register_failed")
		return
	}

	if h.log != nil {
		h.log.Infow("user_registered", "user_id", id, "request_id", c.GetString(ctxRequestID))
	}
	h.recordActivity(c, id, models.EventRegister, "Account created")
	c.JSON(http.StatusCreated, RegisterResponse{
		Message: "User registered successfully",
		UserID:  id,
	})
}

// @Summary      Log in
// @Description  Returns a bearer token; an unsafe redirect hint is dropped
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      LoginRequest  true  "Credentials"
// @Success      200   {object}  LoginResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /auth/login [post]
func (h *Handler) login(c *gin.Context) {
	var input LoginRequest
	if ok := h.bindJSONOrBadRequest(c, &input); !ok {
		return
	}

	res, err := h.services.Login(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		if h.log != nil && errors.Is(err, service.ErrInvalidCredentials) {
			h.log.Warnw("auth_login_failed", "client_ip", c.ClientIP())
		}
		h.respondServiceError(c, err, errLogin, "auth_login_error")
		return
	}

	out := LoginResponse{
		Message:     "Login successful",
		AccessToken: res.AccessToken,
		TokenType:   res.TokenType,
		ExpiresAt:   res.ExpiresAt,
		User:        res.User,
	}
	if input.Redirect != "" && validation.IsSafeURL(input.Redirect) {
		out.Redirect = input.Redirect
	}

	if h.log != nil {
		h.log.Infow("user_logged_in", "user_id", res.User.ID, "request_id", c.GetString(ctxRequestID))
	}
	h.recordActivity(c, res.User.ID, models.EventLogin, "Login successful")
	c.JSON(http.StatusOK, out)
}
