package handlers

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/pks-portal/pkg/response"
)

// BPJSProxy forwards /api/bpjs/* to the health-insurance API with the prefix stripped.
type BPJSProxy struct {
	proxy *httputil.ReverseProxy
}

// NewBPJSProxy targets baseURL. The upstream development host uses a certificate
// that does not verify, so TLS verification is skipped for it.
func NewBPJSProxy(baseURL string, logger *logrus.Logger) (*BPJSProxy, error) {
	target, err := url.Parse(baseURL)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid BPJS base url %q", baseURL)
	}
	rp := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.Out.Host = target.Host
			pr.SetXForwarded()
		},
		Transport: &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			if logger != nil {
				logger.WithError(err).WithField("path", r.URL.Path).Warn("bpjs upstream failed")
			}
			w.WriteHeader(http.StatusBadGateway)
		},
	}
	return &BPJSProxy{proxy: rp}, nil
}

// Serve handles ANY /api/bpjs/*path.
func (p *BPJSProxy) Serve(c *gin.Context) {
	if p == nil || p.proxy == nil {
		response.Error[any](c, http.StatusServiceUnavailable, "bpjs proxy is not configured", nil)
		return
	}
	req := c.Request.Clone(c.Request.Context())
	path := c.Param("path")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	req.URL.Path = path
	req.URL.RawPath = ""
	p.proxy.ServeHTTP(c.Writer, req)
}
