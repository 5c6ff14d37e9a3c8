package middleware

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/oksasatya/pks-portal/pkg/apperror"
	"github.com/oksasatya/pks-portal/pkg/response"
)

const (
	UploadField      = "file"
	CtxUploadKey     = "upload"
	DefaultMaxUpload = 5 << 20
)

var allowedDocs = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

var (
	whitespace  = regexp.MustCompile(`\s+`)
	unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.]`)
)

// Upload is a validated document waiting to be stored.
type Upload struct {
	Header       *multipart.FileHeader
	OriginalName string
	StoredName   string
	ContentType  string
	Size         int64
}

// DocumentContentType returns the content type served for a stored document, or "" for other extensions.
func DocumentContentType(name string) string {
	return allowedDocs[strings.ToLower(filepath.Ext(name))]
}

// SanitizeFilename replaces whitespace with underscores and drops anything outside [A-Za-z0-9_.].
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = whitespace.ReplaceAllString(name, "_")
	return unsafeChars.ReplaceAllString(name, "")
}

// StoredName prefixes the sanitized name with the upload time in unix milliseconds
// and eight random hex digits, so same-named uploads within one millisecond do not collide.
func StoredName(original string, at time.Time) string {
	id := uuid.New()
	return fmt.Sprintf("%d-%x-%s", at.UnixMilli(), id[:4], SanitizeFilename(original))
}

// SingleDocument accepts exactly one multipart file in the "file" field: pdf, doc or docx up to maxBytes.
// The validated upload is stored in the Gin context under "upload".
func SingleDocument(maxBytes int64, exposeErrors bool) gin.HandlerFunc {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUpload
	}
	limitText := humanize.IBytes(uint64(maxBytes))
	tooLarge := apperror.BadRequest("file exceeds the " + limitText + " limit")
	return func(c *gin.Context) {
		// multipart framing needs a little room beyond the file itself
		bodyLimit := maxBytes + 1<<20
		if c.Request.ContentLength > bodyLimit {
			fail(c, tooLarge, exposeErrors)
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, bodyLimit)

		fh, err := c.FormFile(UploadField)
		if err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				fail(c, tooLarge, exposeErrors)
				return
			}
			fail(c, apperror.BadRequest("a document is required in the \"file\" field"), exposeErrors)
			return
		}
		if fh.Size > maxBytes {
			fail(c, tooLarge, exposeErrors)
			return
		}
		ct := DocumentContentType(fh.Filename)
		if ct == "" {
			fail(c, apperror.BadRequest("only PDF and Word documents are allowed"), exposeErrors)
			return
		}

		c.Set(CtxUploadKey, &Upload{
			Header:       fh,
			OriginalName: fh.Filename,
			StoredName:   StoredName(fh.Filename, time.Now()),
			ContentType:  ct,
			Size:         fh.Size,
		})
		c.Next()
	}
}

// CurrentUpload returns the upload stored by SingleDocument, or nil.
func CurrentUpload(c *gin.Context) *Upload {
	v, ok := c.Get(CtxUploadKey)
	if !ok {
		return nil
	}
	u, _ := v.(*Upload)
	return u
}

func fail(c *gin.Context, err error, expose bool) {
	response.Fail(c, err, expose)
	c.Abort()
}
