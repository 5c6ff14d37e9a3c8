package handlers

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/pks-portal/internal/interface/middleware"
)

// UploadsHandler serves locally stored documents inline under /uploads.
type UploadsHandler struct {
	fs http.Handler
}

func NewUploadsHandler(dir string) *UploadsHandler {
	return &UploadsHandler{fs: http.StripPrefix("/uploads", http.FileServer(http.Dir(dir)))}
}

// Serve GET /uploads/*filepath
func (h *UploadsHandler) Serve(c *gin.Context) {
	name := filepath.Base(c.Param("filepath"))
	if name == "/" || name == "." {
		c.Status(http.StatusNotFound)
		return
	}
	if ct := middleware.DocumentContentType(name); ct != "" {
		c.Header("Content-Type", ct)
		c.Header("Content-Disposition", "inline")
	}
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Methods", "GET")
	h.fs.ServeHTTP(c.Writer, c.Request)
}
