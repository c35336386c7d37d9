package handler

import (
	"net/http"
	"strings"

	"medichat/internal/identity"
	"medichat/internal/storage"
	"medichat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

const maxAttachmentBytes = 25 << 20

type UploadHandler struct {
	store *storage.AttachmentStore
}

func NewUploadHandler(store *storage.AttachmentStore) *UploadHandler {
	return &UploadHandler{store: store}
}

// Presign hands out a short-lived PUT URL for an attachment upload. The
// client uploads the bytes itself and then references the file URL when
// posting the message.
func (h *UploadHandler) Presign(c *gin.Context) {
	var req httpdto.PresignUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	ident, ok := identity.FromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	if !allowedAttachmentType(req.ContentType) {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("unsupported content type", "VALIDATION_ERROR"))
		return
	}
	if req.Size <= 0 || req.Size > maxAttachmentBytes {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid file size", "VALIDATION_ERROR"))
		return
	}

	key := h.store.ObjectKey(ident.UserID, req.FileName)
	uploadURL, _, err := h.store.PresignPut(c.Request.Context(), key, req.ContentType, req.Size)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.PresignUploadResponse{
		UploadURL: uploadURL,
		FileURL:   h.store.FileURL(key),
		ExpiresIn: int64(h.store.TTL().Seconds()),
	}))
}

func allowedAttachmentType(contentType string) bool {
	if strings.HasPrefix(contentType, "image/") {
		return true
	}
	switch contentType {
	case "application/pdf", "text/plain":
		return true
	}
	return false
}
