package api

import (
	"bytes"
	"compress/gzip"
	"net/http"
	"strconv"
	"strings"
	"time"

	"controller-go/internal/config"
	"controller-go/internal/logger"
	"controller-go/internal/metrics"
	"controller-go/internal/observability"
	"controller-go/pkg/enrich"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	roleAdmin = "admin"
	roleOps   = "ops"
	roleRead  = "read"
)

type credential struct {
	role  string
	value string
}

func AuthMiddleware(cfg config.SecurityConfig, log *logger.Logger) gin.HandlerFunc {
	creds := make([]credential, 0, len(cfg.Tokens))
	for _, token := range cfg.Tokens {
		value := config.ResolveSecret(token.Value)
		if value == "" || token.Role == "" {
			continue
		}
		creds = append(creds, credential{role: strings.ToLower(token.Role), value: value})
	}
	return func(c *gin.Context) {
		if !cfg.Enabled || !cfg.RequireAuth {
			c.Set("role", roleAdmin)
			c.Next()
			return
		}
		if len(creds) == 0 {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "auth not configured"})
			return
		}
		token := strings.TrimSpace(c.GetHeader("X-API-Key"))
		if token == "" {
			auth := c.GetHeader("Authorization")
			if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
				token = strings.TrimSpace(auth[7:])
			}
		}
		role := ""
		for _, cred := range creds {
			if config.MatchToken(cred.value, token) {
				role = cred.role
				break
			}
		}
		if role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		log.Debug("auth ok", map[string]any{"role": role, "path": c.FullPath()})
		c.Set("role", role)
		c.Next()
	}
}

func RequireRole(required string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString("role")
		if role == "" {
			c.Next()
			return
		}
		if !roleAllowed(role, required) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

func AuditMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if log == nil || c.Request.Method == http.MethodGet {
			return
		}
		role := c.GetString("role")
		if role == "" {
			role = roleRead
		}
		log.Info("audit", map[string]any{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"status": c.Writer.Status(),
			"role":   role,
		})
	}
}

// TraceMiddleware records one trace per request. geo may be nil.
func TraceMiddleware(store *observability.Store, geo *enrich.Service) gin.HandlerFunc {
	if store == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	return func(c *gin.Context) {
		start := time.Now()
		traceID := strings.TrimSpace(c.GetHeader("X-Trace-Id"))
		if _, err := uuid.Parse(traceID); err != nil {
			traceID = uuid.NewString()
		}
		c.Set("trace_id", traceID)
		c.Header("X-Trace-Id", traceID)
		c.Next()

		trace := observability.Trace{
			ID:         traceID,
			Method:     c.Request.Method,
			Path:       routePath(c),
			Status:     c.Writer.Status(),
			DurationMs: time.Since(start).Milliseconds(),
			Timestamp:  time.Now().Unix(),
			ClientIP:   c.ClientIP(),
			Country:    geo.Country(c.Request.Context(), c.ClientIP()),
		}
		if err := requestError(c); err != nil {
			trace.Error = err.Error()
		}
		store.Add(trace)
	}
}

// MetricsMiddleware counts requests per route plus translated and escaped
// handler errors.
func MetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if m == nil {
			return
		}
		m.ObserveRequest(c.Request.Method, routePath(c), c.Writer.Status())
		if _, ok := c.Get(ctxRequestError); ok {
			m.IncRequestError()
		}
		if len(c.Errors) > 0 {
			m.IncRequestErrorEscaped()
		}
	}
}

// CompressMiddleware buffers the body and encodes it with brotli or gzip when
// the client accepts one of the enabled encodings.
func CompressMiddleware(cfg config.CompressionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		encoding := selectEncoding(c.GetHeader("Accept-Encoding"), cfg)
		if encoding == "" {
			c.Next()
			return
		}
		cw := &compressWriter{ResponseWriter: c.Writer}
		c.Writer = cw
		c.Next()
		c.Writer = cw.ResponseWriter
		cw.flush(encoding)
	}
}

type compressWriter struct {
	gin.ResponseWriter
	buf     bytes.Buffer
	written bool
}

func (w *compressWriter) Write(data []byte) (int, error) {
	w.written = true
	return w.buf.Write(data)
}

func (w *compressWriter) WriteString(s string) (int, error) {
	w.written = true
	return w.buf.WriteString(s)
}

func (w *compressWriter) Written() bool {
	return w.written || w.ResponseWriter.Written()
}

func (w *compressWriter) Size() int {
	if !w.written {
		return w.ResponseWriter.Size()
	}
	return w.buf.Len()
}

func (w *compressWriter) flush(encoding string) {
	if !w.written {
		return
	}
	body := w.buf.Bytes()
	var out bytes.Buffer
	switch encoding {
	case "br":
		bw := brotli.NewWriter(&out)
		_, _ = bw.Write(body)
		_ = bw.Close()
	case "gzip":
		gw := gzip.NewWriter(&out)
		_, _ = gw.Write(body)
		_ = gw.Close()
	}
	h := w.ResponseWriter.Header()
	h.Set("Content-Encoding", encoding)
	h.Add("Vary", "Accept-Encoding")
	h.Del("Content-Length")
	_, _ = w.ResponseWriter.Write(out.Bytes())
}

func selectEncoding(accept string, cfg config.CompressionConfig) string {
	accepted := acceptedEncodings(accept)
	allowed := func(name string) bool {
		if ok, listed := accepted[name]; listed {
			return ok
		}
		return accepted["*"]
	}
	if cfg.Brotli && allowed("br") {
		return "br"
	}
	if cfg.Gzip && allowed("gzip") {
		return "gzip"
	}
	return ""
}

// acceptedEncodings maps each coding in an Accept-Encoding header to whether
// the client accepts it. A q value of zero, or one that does not parse,
// marks the coding as refused.
func acceptedEncodings(header string) map[string]bool {
	out := map[string]bool{}
	for _, part := range strings.Split(header, ",") {
		name, params, _ := strings.Cut(part, ";")
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		ok := true
		for _, param := range strings.Split(params, ";") {
			key, value, found := strings.Cut(strings.TrimSpace(param), "=")
			if !found || !strings.EqualFold(strings.TrimSpace(key), "q") {
				continue
			}
			q, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
			ok = err == nil && q > 0
		}
		out[name] = ok
	}
	return out
}

func requestError(c *gin.Context) error {
	if v, ok := c.Get(ctxRequestError); ok {
		if err, ok := v.(error); ok {
			return err
		}
	}
	if last := c.Errors.Last(); last != nil {
		return last
	}
	return nil
}

func routePath(c *gin.Context) string {
	if path := c.FullPath(); path != "" {
		return path
	}
	return c.Request.URL.Path
}

func roleAllowed(actual string, required string) bool {
	order := map[string]int{
		roleRead:  1,
		roleOps:   2,
		roleAdmin: 3,
	}
	return order[strings.ToLower(actual)] >= order[strings.ToLower(required)]
}
