package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/pks-portal/internal/application"
	"github.com/oksasatya/pks-portal/internal/domain/entity"
	"github.com/oksasatya/pks-portal/internal/infrastructure/storage"
	"github.com/oksasatya/pks-portal/internal/interface/middleware"
	"github.com/oksasatya/pks-portal/pkg/apperror"
	"github.com/oksasatya/pks-portal/pkg/response"
)

const (
	defaultSearchSize = 20
	maxSearchSize     = 100
)

// PKSHandler serves submissions for owners (/api/pks) and reviewers (/api/admin/pks).
type PKSHandler struct {
	Svc    *application.PKSService
	Files  storage.FileStore
	Logger *logrus.Logger
	Expose bool
}

func NewPKSHandler(svc *application.PKSService, files storage.FileStore, logger *logrus.Logger, expose bool) *PKSHandler {
	return &PKSHandler{Svc: svc, Files: files, Logger: logger, Expose: expose}
}

type updateStatusRequest struct {
	Status string  `json:"status" binding:"required,pksstatus"`
	Reason *string `json:"reason"`
}

func optionalInt64(raw string) (*int64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return nil, apperror.BadRequest("userId must be a positive integer")
	}
	return &v, nil
}

// List GET /api/pks?userId=
// Admins may filter by any owner; everyone else only sees their own submissions.
func (h *PKSHandler) List(c *gin.Context) {
	id := middleware.CurrentIdentity(c)
	owner, err := optionalInt64(c.Query("userId"))
	if err != nil {
		response.Fail(c, err, h.Expose)
		return
	}
	if !id.IsAdmin() {
		owner = &id.ID
	}
	items, err := h.Svc.List(c.Request.Context(), owner)
	if err != nil {
		response.Fail(c, err, h.Expose)
		return
	}
	response.Success(c, http.StatusOK, items, "submissions retrieved", nil)
}

// Create POST /api/pks (multipart: company, file, optional userId for admins)
func (h *PKSHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()
	id := middleware.CurrentIdentity(c)
	up := middleware.CurrentUpload(c)
	if up == nil {
		response.Fail(c, apperror.BadRequest("a document is required in the \"file\" field"), h.Expose)
		return
	}

	ownerID := id.ID
	if id.IsAdmin() {
		owner, err := optionalInt64(c.PostForm("userId"))
		if err != nil {
			response.Fail(c, err, h.Expose)
			return
		}
		if owner != nil {
			ownerID = *owner
		}
	}

	f, err := up.Header.Open()
	if err != nil {
		response.Fail(c, apperror.Internal("failed to read upload", err), h.Expose)
		return
	}
	defer func() { _ = f.Close() }()

	path, err := h.Files.Save(ctx, up.StoredName, up.ContentType, f, up.Size)
	if err != nil {
		response.Fail(c, apperror.Internal("failed to store file", err), h.Expose)
		return
	}

	sub, err := h.Svc.Submit(ctx, application.SubmitInput{
		Company:      c.PostForm("company"),
		OwnerID:      ownerID,
		OriginalName: up.OriginalName,
		Filename:     up.StoredName,
		Path:         path,
	})
	if err != nil {
		h.discard(ctx, up.StoredName)
		response.Fail(c, err, h.Expose)
		return
	}
	response.Success(c, http.StatusCreated, sub, "submission created", nil)
}

// Get GET /api/pks/:id
func (h *PKSHandler) Get(c *gin.Context) {
	pksID, err := parseID(c, "id")
	if err != nil {
		response.Fail(c, err, h.Expose)
		return
	}
	sub, err := h.Svc.Get(c.Request.Context(), pksID)
	if err != nil {
		response.Fail(c, err, h.Expose)
		return
	}
	if id := middleware.CurrentIdentity(c); !id.IsAdmin() && sub.UserID != id.ID {
		response.Fail(c, application.ErrSubmissionNotFound, h.Expose)
		return
	}
	response.Success(c, http.StatusOK, sub, "submission retrieved", nil)
}

// ListAll GET /api/admin/pks
func (h *PKSHandler) ListAll(c *gin.Context) {
	items, err := h.Svc.List(c.Request.Context(), nil)
	if err != nil {
		response.Fail(c, err, h.Expose)
		return
	}
	response.Success(c, http.StatusOK, items, "submissions retrieved", nil)
}

// Statistics GET /api/admin/pks/statistics
func (h *PKSHandler) Statistics(c *gin.Context) {
	st, err := h.Svc.Statistics(c.Request.Context())
	if err != nil {
		response.Fail(c, err, h.Expose)
		return
	}
	response.Success(c, http.StatusOK, st, "statistics retrieved", nil)
}

// Search GET /api/admin/pks/search?q=&size=
func (h *PKSHandler) Search(c *gin.Context) {
	size := defaultSearchSize
	if raw := c.Query("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.Fail(c, apperror.BadRequest("size must be a positive integer"), h.Expose)
			return
		}
		size = min(n, maxSearchSize)
	}
	items, err := h.Svc.Search(c.Request.Context(), c.Query("q"), size)
	if err != nil {
		response.Fail(c, err, h.Expose)
		return
	}
	response.Success(c, http.StatusOK, items, "search results", map[string]any{"count": len(items)})
}

// UpdateStatus PATCH /api/admin/pks/:id/status
func (h *PKSHandler) UpdateStatus(c *gin.Context) {
	pksID, err := parseID(c, "id")
	if err != nil {
		response.Fail(c, err, h.Expose)
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}
	sub, err := h.Svc.SetStatus(c.Request.Context(), pksID, entity.SubmissionStatus(req.Status), req.Reason)
	if err != nil {
		response.Fail(c, err, h.Expose)
		return
	}
	response.Success(c, http.StatusOK, sub, "submission status updated", nil)
}

func (h *PKSHandler) discard(ctx context.Context, key string) {
	if err := h.Files.Delete(ctx, key); err != nil && h.Logger != nil {
		h.Logger.WithError(err).WithField("file", key).Warn("failed to remove orphaned upload")
	}
}
