package handler

import (
	"net/http"

	"medichat/internal/identity"
	"medichat/internal/redis"
	"medichat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

type PresenceHandler struct {
	store *redis.PresenceStore
}

func NewPresenceHandler(store *redis.PresenceStore) *PresenceHandler {
	return &PresenceHandler{store: store}
}

// Get returns another user's connectivity state: online now, or last seen
// when. Presence is ephemeral and best-effort; it carries no chat state.
func (h *PresenceHandler) Get(c *gin.Context) {
	if _, ok := identity.FromContext(c.Request.Context()); !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	status, err := h.store.GetPresence(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(status))
}
