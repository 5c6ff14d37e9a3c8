package middleware

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/pks-portal/internal/application"
	"github.com/oksasatya/pks-portal/internal/domain/entity"
	"github.com/oksasatya/pks-portal/internal/testutil"
	"github.com/oksasatya/pks-portal/pkg/helpers"
)

func init() { gin.SetMode(gin.TestMode) }

type envelope struct {
	Status  int            `json:"status"`
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Meta    map[string]any `json:"meta"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"Kontrak Kerja Sama.pdf":   "Kontrak_Kerja_Sama.pdf",
		"surat (final) v2.docx":    "surat_final_v2.docx",
		"../../etc/passwd.pdf":     "passwd.pdf",
		`C:\Users\budi\berkas.doc`: "berkas.doc",
		"naïve–doc.pdf":            "navedoc.pdf",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeFilename(in), in)
	}
	at := time.UnixMilli(1716195600123)
	assert.Regexp(t, `^1716195600123-[0-9a-f]{8}-a_b\.pdf$`, StoredName("a b.pdf", at))
}

func TestStoredName_SameInstantDoesNotCollide(t *testing.T) {
	at := time.UnixMilli(1716195600123)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		name := StoredName("Perjanjian.pdf", at)
		require.False(t, seen[name], name)
		seen[name] = true
	}
}

func TestDocumentContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", DocumentContentType("X.PDF"))
	assert.Contains(t, DocumentContentType("a.docx"), "wordprocessingml")
	assert.Equal(t, "application/msword", DocumentContentType("a.doc"))
	assert.Empty(t, DocumentContentType("a.exe"))
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	require.NoError(t, mw.WriteField("company", "PT Maju"))
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func uploadRouter(maxBytes int64) *gin.Engine {
	r := gin.New()
	r.POST("/upload", SingleDocument(maxBytes, false), func(c *gin.Context) {
		u := CurrentUpload(c)
		c.JSON(http.StatusOK, gin.H{"stored": u.StoredName, "original": u.OriginalName, "type": u.ContentType})
	})
	return r
}

func TestSingleDocument(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		filename string
		size     int
		status   int
	}{
		{"pdf accepted", "file", "Kontrak Baru.PDF", 100, http.StatusOK},
		{"docx accepted", "file", "a.docx", 100, http.StatusOK},
		{"exe rejected", "file", "virus.exe", 100, http.StatusBadRequest},
		{"missing file", "", "", 0, http.StatusBadRequest},
		{"wrong field", "document", "a.pdf", 100, http.StatusBadRequest},
		{"too large", "file", "big.pdf", 2048, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, ct := multipartBody(t, tt.field, tt.filename, bytes.Repeat([]byte("x"), tt.size))
			req := httptest.NewRequest(http.MethodPost, "/upload", body)
			req.Header.Set("Content-Type", ct)
			w := httptest.NewRecorder()
			uploadRouter(1024).ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestSingleDocument_StoredNameIsSanitized(t *testing.T) {
	body, ct := multipartBody(t, "file", "Kontrak Baru.pdf", []byte("%PDF-1.4"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	uploadRouter(0).ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var got map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.True(t, strings.HasSuffix(got["stored"], "-Kontrak_Baru.pdf"), got["stored"])
	assert.Equal(t, "Kontrak Baru.pdf", got["original"])
	assert.Equal(t, "application/pdf", got["type"])
}

type authFixture struct {
	router *gin.Engine
	jwt    *helpers.JWTManager
	user   *entity.User
	admin  *entity.User
}

func newAuthFixture(t *testing.T) authFixture {
	t.Helper()
	store := testutil.NewStore()
	user := store.PutUser(&entity.User{Name: "Budi", Email: "budi@example.com", IsVerified: true, Role: entity.RoleUser})
	admin := store.PutUser(&entity.User{Name: "Admin", Email: "admin@example.com", IsVerified: true, Role: entity.RoleAdmin})
	jwt := helpers.NewJWTManager("secret", helpers.SessionTTL)
	gate := application.NewGate(store.Users(), jwt)

	r := gin.New()
	r.Use(RequestIDMiddleware())
	authed := r.Group("/", Auth(gate, false))
	authed.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": CurrentIdentity(c).ID, "userID": c.GetInt64(CtxUserIDKey)})
	})
	authed.GET("/admin", AdminOnly(gate, false), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return authFixture{router: r, jwt: jwt, user: user, admin: admin}
}

func (f authFixture) token(t *testing.T, u *entity.User) string {
	t.Helper()
	tok, _, err := f.jwt.IssueSessionToken(u.ID, string(u.Role))
	require.NoError(t, err)
	return tok
}

func TestAuth_TokenSources(t *testing.T) {
	f := newAuthFixture(t)

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: helpers.SessionCookie, Value: f.token(t, f.user)})
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"userID":1`)
	})

	t.Run("bearer wins over cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+f.token(t, f.admin))
		req.AddCookie(&http.Cookie{Name: helpers.SessionCookie, Value: f.token(t, f.user)})
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"id":2`)
	})

	t.Run("missing token", func(t *testing.T) {
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		env := decode(t, w)
		assert.False(t, env.Success)
		assert.Equal(t, "authentication token is required", env.Message)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer nope")
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "invalid token", decode(t, w).Message)
	})
}

func TestAuth_ExpiredSessionSetsMeta(t *testing.T) {
	f := newAuthFixture(t)
	old := helpers.NewJWTManager("secret", helpers.SessionTTL).WithClock(func() time.Time {
		return time.Now().Add(-13 * time.Hour)
	})
	tok, _, err := old.IssueSessionToken(f.user.ID, "USER")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, true, decode(t, w).Meta["expired"])
}

func TestAdminOnly(t *testing.T) {
	f := newAuthFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+f.token(t, f.user))
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+f.token(t, f.admin))
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, w.Body.String(), 36)
	assert.Equal(t, w.Body.String(), w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "6f1c2a7e-3b7d-4a39-9a55-0c8f1e2b3d4a")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "6f1c2a7e-3b7d-4a39-9a55-0c8f1e2b3d4a", w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "<script>")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.NotEqual(t, "<script>", w.Body.String())
}

func newIPEngine(t *testing.T, trusted ...string) *gin.Engine {
	t.Helper()
	r := gin.New()
	require.NoError(t, r.SetTrustedProxies(trusted))
	r.Use(RealIP())
	return r
}

func TestRealIPAndKeys(t *testing.T) {
	r := newIPEngine(t, "192.0.2.0/24")
	r.GET("/x/:id", func(c *gin.Context) {
		c.Set(CtxUserIDKey, int64(7))
		c.JSON(http.StatusOK, gin.H{
			"ip":   ClientIP(c),
			"ipk":  KeyByIP()(c),
			"path": KeyByIPAndPath()(c),
			"user": KeyByUserID()(c),
		})
	})
	req := httptest.NewRequest(http.MethodGet, "/x/1", nil)
	req.RemoteAddr = "192.0.2.10:4711"
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var got map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "203.0.113.9", got["ip"])
	assert.Equal(t, "rl:ip:203.0.113.9", got["ipk"])
	assert.Equal(t, "rl:path:/x/:id:ip:203.0.113.9", got["path"])
	assert.Equal(t, "rl:user:7", got["user"])
}

func TestRealIP_IgnoresHeadersFromUntrustedPeers(t *testing.T) {
	r := newIPEngine(t)
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, ClientIP(c)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.7:5555"
	req.Header.Set("X-Forwarded-For", "10.0.0.1")
	req.Header.Set("CF-Connecting-IP", "127.0.0.1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "198.51.100.7", w.Body.String())
}

func TestRateLimit_NoRedisIsNoop(t *testing.T) {
	r := gin.New()
	r.GET("/", RateLimit(nil, 1, time.Minute, KeyByIP(), nil), func(c *gin.Context) { c.Status(http.StatusOK) })
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestPrivateNetworkOnly(t *testing.T) {
	r := newIPEngine(t, "10.0.0.0/8")
	r.GET("/vars", PrivateNetworkOnly(), func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := []struct {
		name   string
		remote string
		xff    string
		want   int
	}{
		{"loopback", "127.0.0.1:1000", "", http.StatusOK},
		{"private", "10.1.2.3:1000", "", http.StatusOK},
		{"public", "203.0.113.9:1000", "", http.StatusNotFound},
		{"public spoofing loopback", "203.0.113.9:1000", "127.0.0.1", http.StatusNotFound},
		{"public behind trusted proxy", "10.0.0.2:1000", "203.0.113.9", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/vars", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
