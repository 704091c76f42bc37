package api

import (
	"fmt"
	"net/http"
	"sort"

	"controller-go/internal/logger"

	"github.com/gin-gonic/gin"
)

// ctxRequestError holds an error that ErrorResponder turned into a 500.
const ctxRequestError = "request_error"

// HandlerFunc serves a request and reports failure as an error instead of
// writing a response for it.
type HandlerFunc func(c *gin.Context) error

type Middleware interface {
	Handle(c *gin.Context, next HandlerFunc) error
}

type MiddlewareFunc func(c *gin.Context, next HandlerFunc) error

func (f MiddlewareFunc) Handle(c *gin.Context, next HandlerFunc) error {
	return f(c, next)
}

// Chain composes middleware so the first one added is the outermost layer.
type Chain struct {
	middleware []Middleware
}

func NewChain(mw ...Middleware) Chain {
	return Chain{middleware: append([]Middleware(nil), mw...)}
}

func (ch Chain) Then(h HandlerFunc) HandlerFunc {
	for i := len(ch.middleware) - 1; i >= 0; i-- {
		mw, next := ch.middleware[i], h
		h = func(c *gin.Context) error {
			return mw.Handle(c, next)
		}
	}
	return h
}

// Handler adapts a chained handler to gin. An error that escapes every layer
// is recorded on the context and logged; nothing further is written.
func (ch Chain) Handler(h HandlerFunc, log *logger.Logger) gin.HandlerFunc {
	run := ch.Then(h)
	return func(c *gin.Context) {
		if err := run(c); err != nil {
			_ = c.Error(err)
			log.Error("unhandled request error", map[string]any{
				"uri":   c.Request.RequestURI,
				"error": err.Error(),
			})
		}
	}
}

// ErrorResponder answers 500 with the error text when a downstream handler
// fails before anything was written. Once the response has started the error
// is passed outward unchanged.
func ErrorResponder(name string, log *logger.Logger) Middleware {
	return MiddlewareFunc(func(c *gin.Context, next HandlerFunc) error {
		log.Debug(name+" middleware", map[string]any{"uri": c.Request.RequestURI})
		err := next(c)
		if err == nil {
			return nil
		}
		if c.Writer.Written() {
			return err
		}
		log.Warn("request failed", map[string]any{
			"uri":   c.Request.RequestURI,
			"error": err.Error(),
		})
		c.Set(ctxRequestError, err)
		c.String(http.StatusInternalServerError, "ERROR: %s", err.Error())
		return nil
	})
}

func RequestLogger(log *logger.Logger) Middleware {
	return MiddlewareFunc(func(c *gin.Context, next HandlerFunc) error {
		log.Info("request", map[string]any{
			"method": c.Request.Method,
			"uri":    c.Request.RequestURI,
		})
		return next(c)
	})
}

type routeKey struct {
	method string
	path   string
}

type RouteTable struct {
	routes map[routeKey]HandlerFunc
}

func NewRouteTable() *RouteTable {
	return &RouteTable{routes: map[routeKey]HandlerFunc{}}
}

func (t *RouteTable) Add(method, path string, h HandlerFunc) error {
	if h == nil {
		return fmt.Errorf("route %s %s: nil handler", method, path)
	}
	key := routeKey{method: method, path: path}
	if _, ok := t.routes[key]; ok {
		return fmt.Errorf("route %s %s: already registered", method, path)
	}
	t.routes[key] = h
	return nil
}

func (t *RouteTable) Len() int { return len(t.routes) }

// Register installs every route on r through the chain, in path order.
func (t *RouteTable) Register(r gin.IRoutes, ch Chain, log *logger.Logger) {
	keys := make([]routeKey, 0, len(t.routes))
	for k := range t.routes {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].path != keys[j].path {
			return keys[i].path < keys[j].path
		}
		return keys[i].method < keys[j].method
	})
	for _, k := range keys {
		r.Handle(k.method, k.path, ch.Handler(t.routes[k], log))
	}
}
