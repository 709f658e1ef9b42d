package handler

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"leadbot/internal/config"
	"leadbot/internal/logging"
)

// BuildInfo identifies the running binary
type BuildInfo struct {
	Version   string
	BuildTime string
	GitCommit string
}

// Handlers groups everything the router mounts. Nil handlers are not routed.
type Handlers struct {
	Chat     *ChatHandler
	Leads    *LeadHandler
	Feedback *FeedbackHandler
	Search   *SearchHandler
	Metrics  http.Handler
	Build    BuildInfo
}

// NewRouter builds the gin engine with middleware and all routes
func NewRouter(cfg config.ServerConfig, metricsPath string, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), logging.GinLogger())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = splitList(cfg.AllowedOrigins)
	if len(corsConfig.AllowOrigins) == 0 || corsConfig.AllowOrigins[0] == "*" {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = splitList(cfg.AllowedMethods)
	corsConfig.AllowHeaders = splitList(cfg.AllowedHeaders)
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":     "healthy",
			"service":    "leadbot",
			"version":    h.Build.Version,
			"build_time": h.Build.BuildTime,
			"git_commit": h.Build.GitCommit,
		})
	})

	// Version endpoint
	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    h.Build.Version,
			"build_time": h.Build.BuildTime,
			"git_commit": h.Build.GitCommit,
		})
	})

	if h.Metrics != nil {
		if metricsPath == "" {
			metricsPath = "/metrics"
		}
		router.GET(metricsPath, gin.WrapH(h.Metrics))
	}

	// API routes
	apiV1 := router.Group("/api/v1")
	{
		if h.Chat != nil {
			apiV1.POST("/chat", h.Chat.Chat)
		}
		if h.Leads != nil {
			apiV1.POST("/leads/property-view", h.Leads.PropertyView)
			apiV1.POST("/leads/showing", h.Leads.Showing)
			apiV1.GET("/leads/:sessionId", h.Leads.Summary)
		}
		if h.Feedback != nil {
			apiV1.POST("/conversations/:sessionId/success", h.Feedback.Success)
		}
		if h.Search != nil {
			apiV1.POST("/properties/search", h.Search.Search)
		}
	}

	return router
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
