package handler

import (
	"net/http"

	"medichat/internal/identity"
	"medichat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

type DirectoryHandler struct {
	directory identity.Directory
}

func NewDirectoryHandler(directory identity.Directory) *DirectoryHandler {
	return &DirectoryHandler{directory: directory}
}

// ListDoctors returns the doctors a patient can start a consultation with.
func (h *DirectoryHandler) ListDoctors(c *gin.Context) {
	doctors, err := h.directory.ListDoctors(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(doctors))
}
