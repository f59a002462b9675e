package handlers

import (
	"net/http"

	"devsecops_api/internal/models"

	"github.com/gin-gonic/gin"
)

// UpdateProfileRequest lists the editable fields. Omitted fields are unchanged.
type UpdateProfileRequest struct {
	Username *string `json:"username,omitempty" example:"alice2"`
}

// UpdateProfileResponse wraps the updated user.
type UpdateProfileResponse struct {
	Message string            `json:"message" example:"Profile updated successfully"`
	User    models.PublicUser `json:"user"`
}

// UsersResponse lists every account.
type UsersResponse struct {
	Count int                 `json:"count" example:"1"`
	Users []models.PublicUser `json:"users"`
}

// @Summary      Current user's profile
// @Tags         profile
// @Produce      json
// @Success      200  {object}  models.PublicUser
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      422  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/profile [get]
// @Security     BearerAuth
func (h *Handler) getProfile(c *gin.Context) {
	userID := currentUserID(c)
	u, err := h.services.GetProfile(c.Request.Context(), userID)
	if err != nil {
		h.respondServiceError(c, err, errFetchProfile, "profile_fetch_failed", "user_id", userID)
		return
	}
	c.JSON(http.StatusOK, u.Public())
}

// @Summary      Update current user's profile
// @Tags         profile
// @Accept       json
// @Produce      json
// @Param        body  body      UpdateProfileRequest  true  "Fields to change"
// @Success      200   {object}  UpdateProfileResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      422   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/profile [put]
// @Security     BearerAuth
func (h *Handler) updateProfile(c *gin.Context) {
	var input UpdateProfileRequest
	if ok := h.bindJSONOrBadRequest(c, &input); !ok {
		return
	}

	userID := currentUserID(c)
	u, err := h.services.UpdateProfile(c.Request.Context(), userID, input.Username)
	if err != nil {
		h.respondServiceError(c, err, errUpdateProfile, "profile_update_failed", "user_id", userID)
		return
	}

	if h.log != nil {
		h.log.Infow("profile_updated", "user_id", userID)
	}
	if input.Username != nil {
		h.recordActivity(c, userID, models.EventProfileUpdate, "Username changed")
	}
	c.JSON(http.StatusOK, UpdateProfileResponse{
		Message: "Profile updated successfully",
		User:    u.Public(),
	})
}

// @Summary      List users
// @Tags         profile
// @Produce      json
// @Success      200  {object}  UsersResponse
// @Failure      401  {object}  map[string]string
// @Failure      422  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/users [get]
// @Security     BearerAuth
func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.services.ListUsers(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errFetchUsers, "users_list_failed", err)
		return
	}

	out := make([]models.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	c.JSON(http.StatusOK, UsersResponse{Count: len(out), Users: out})
}
