package api

import (
	"net/http/pprof"
	"strings"

	"github.com/gin-gonic/gin"
)

var pprofProfiles = []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"}

func RegisterPprof(router gin.IRouter, basePath string) {
	basePath = "/" + strings.Trim(basePath, "/")
	if basePath == "/" {
		basePath = "/debug/pprof"
	}
	group := router.Group(basePath)
	group.GET("/", gin.WrapF(pprof.Index))
	group.GET("/cmdline", gin.WrapF(pprof.Cmdline))
	group.GET("/profile", gin.WrapF(pprof.Profile))
	group.GET("/symbol", gin.WrapF(pprof.Symbol))
	group.POST("/symbol", gin.WrapF(pprof.Symbol))
	group.GET("/trace", gin.WrapF(pprof.Trace))
	for _, name := range pprofProfiles {
		group.GET("/"+name, gin.WrapH(pprof.Handler(name)))
	}
}
