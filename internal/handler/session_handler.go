package handler

import (
	"net/http"

	"medichat/internal/chat"
	"medichat/internal/identity"
	"medichat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	service *chat.Service
}

func NewSessionHandler(service *chat.Service) *SessionHandler {
	return &SessionHandler{service: service}
}

// List returns the caller's active sessions with unread counts, most
// recent message first.
func (h *SessionHandler) List(c *gin.Context) {
	ident, ok := identity.FromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	sessions, err := h.service.ListSessions(c.Request.Context(), ident.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"sessions": sessions}))
}

// GetOrCreate returns the existing active session with the counterpart or
// creates it on first contact.
func (h *SessionHandler) GetOrCreate(c *gin.Context) {
	var req httpdto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	ident, ok := identity.FromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	session, err := h.service.GetOrCreateSession(c.Request.Context(), ident, req.CounterpartID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(session))
}

// Close deactivates a session; history remains readable.
func (h *SessionHandler) Close(c *gin.Context) {
	ident, ok := identity.FromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	if err := h.service.CloseSession(c.Request.Context(), c.Param("id"), ident.UserID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

// Partners lists the counterpart participants across the caller's
// sessions; for a doctor this is their patient roster.
func (h *SessionHandler) Partners(c *gin.Context) {
	ident, ok := identity.FromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	partners, err := h.service.SessionPartners(c.Request.Context(), ident.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"partners": partners}))
}
