package handlers

import (
	"net/http"

	logger "github.com/Yulian302/lfusys-services-media/commons/logging"
	"github.com/Yulian302/lfusys-services-media/commons/metrics"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type RouterOptions struct {
	ServiceName string
	Tracing     bool
	// MaxMultipartMemory is passed to gin for form parsing; larger files
	// spill to temporary files.
	MaxMultipartMemory int64
}

func NewRouter(h *HttpHandler, m *metrics.Metrics, opts RouterOptions, l logger.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), AccessLog(l))
	if opts.Tracing {
		r.Use(otelgin.Middleware(opts.ServiceName))
	}
	if opts.MaxMultipartMemory > 0 {
		r.MaxMultipartMemory = opts.MaxMultipartMemory
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	h.RegisterRoutes(r)
	return r
}
