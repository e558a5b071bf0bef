package handler

import (
	"github.com/gin-gonic/gin"

	appauth "github.com/xiebiao/pubflow/internal/application/auth"
	"github.com/xiebiao/pubflow/internal/interface/http/middleware"
	"github.com/xiebiao/pubflow/pkg/response"
)

type AuthHandler struct {
	logout *appauth.LogoutUseCase
}

func NewAuthHandler(logout *appauth.LogoutUseCase) *AuthHandler {
	return &AuthHandler{logout: logout}
}

// Logout revokes the presented token until it would have expired.
// @Summary      Log out
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Response
// @Failure      401 {object} response.Response
// @Router       /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	token, claims := middleware.GetToken(c)
	if err := h.logout.Execute(c.Request.Context(), token, claims); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, "Logged out", nil)
}
