package handler

import (
	"net/http"
	"strconv"

	"medichat/internal/chat"
	"medichat/internal/domain"
	"medichat/internal/identity"
	"medichat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	service *chat.Service
}

func NewMessageHandler(service *chat.Service) *MessageHandler {
	return &MessageHandler{service: service}
}

// List pages a session's messages chronologically by stable cursor.
func (h *MessageHandler) List(c *gin.Context) {
	ident, ok := identity.FromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	limit := 50
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid limit", "INVALID_REQUEST"))
			return
		}
		limit = parsed
	}

	messages, next, err := h.service.ListMessages(c.Request.Context(), c.Param("id"), ident.UserID, c.Query("cursor"), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.MessagePage{
		Messages:   messages,
		NextCursor: next,
	}))
}

// Post appends a message to the session.
func (h *MessageHandler) Post(c *gin.Context) {
	var req httpdto.PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	ident, ok := identity.FromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	attachments := make([]domain.Attachment, 0, len(req.Attachments))
	for _, a := range req.Attachments {
		attachments = append(attachments, domain.Attachment{
			Name: a.Name,
			URL:  a.URL,
			Type: a.Type,
			Size: a.Size,
		})
	}

	msg, err := h.service.PostMessage(c.Request.Context(), c.Param("id"), ident, chat.PostMessageInput{
		Content:     req.Content,
		ContentType: domain.ContentType(req.ContentType),
		ReplyToID:   req.ReplyTo,
		Attachments: attachments,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(msg))
}

// MarkRead marks every message unread by the caller as read, in one call.
func (h *MessageHandler) MarkRead(c *gin.Context) {
	ident, ok := identity.FromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	summary, err := h.service.MarkRead(c.Request.Context(), c.Param("id"), ident)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(summary))
}

// Edit rewrites a message's content within the edit window.
func (h *MessageHandler) Edit(c *gin.Context) {
	var req httpdto.EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	ident, ok := identity.FromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	msg, err := h.service.EditMessage(c.Request.Context(), c.Param("id"), ident.UserID, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(msg))
}

// Delete soft-deletes a message, preserving its place in the log.
func (h *MessageHandler) Delete(c *gin.Context) {
	ident, ok := identity.FromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	if err := h.service.DeleteMessage(c.Request.Context(), c.Param("id"), ident.UserID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}
