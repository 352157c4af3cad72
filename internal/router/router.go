package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"loanterms/internal/handler"
	"loanterms/internal/metrics"
	"loanterms/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware. A nil
// tokens leaves /api/v1 unauthenticated; a nil m disables /metrics.
func Setup(
	log *zap.Logger,
	m *metrics.Metrics,
	tokens middleware.TokenValidator,
	corsOrigins []string,
	termsH *handler.TermsHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log, m))
	r.Use(middleware.CORS(corsOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)
	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	v1 := r.Group("/api/v1")
	if tokens != nil {
		v1.Use(middleware.AuthMiddleware(tokens))
	}

	extractions := v1.Group("/extractions")
	extractions.POST("", termsH.Extract)
	extractions.POST("/object", termsH.ExtractObject)
	extractions.POST("/preview", termsH.Preview)

	records := v1.Group("/records")
	records.GET("", termsH.ListRecords)
	records.GET("/export", termsH.Export)
	records.GET("/:id", termsH.GetRecord)
	records.DELETE("/:id", termsH.DeleteRecord)

	return r
}
