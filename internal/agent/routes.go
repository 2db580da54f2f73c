package agent

import (
	"net/http"

	"k8s-agent/internal/middleware"
	"k8s-agent/internal/observability"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type route struct {
	method  string
	path    string
	handler gin.HandlerFunc
}

func (h *Handler) routes() []route {
	return []route{
		{http.MethodGet, "/", h.Root},
		{http.MethodPost, "/command", h.RunCommand},
	}
}

type RouterOptions struct {
	Logger         zerolog.Logger
	CORSOrigins    []string
	MetricsEnabled bool
}

func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(opts.Logger))
	if opts.MetricsEnabled {
		observability.RegisterMetrics()
		r.Use(middleware.RequestMetrics())
	}
	if cors := middleware.CORS(opts.CORSOrigins); cors != nil {
		r.Use(cors)
	}
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	for _, rt := range h.routes() {
		r.Handle(rt.method, rt.path, rt.handler)
	}
	if opts.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	return r
}
