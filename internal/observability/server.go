package observability

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danmuck/rconctl/internal/auth"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var startedAt = time.Now()

type RouterOptions struct {
	// CorsOrigins lets browser dashboards on these origins read the endpoints.
	CorsOrigins []string
	// MetricsToken, when set, is required as a bearer token on /metrics.
	MetricsToken string
}

// NewRouter exposes /health and /metrics for the console process.
func NewRouter(opts RouterOptions) *gin.Engine {
	RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log.Logger))
	if len(opts.CorsOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: opts.CorsOrigins,
			AllowMethods: []string{"GET"},
			AllowHeaders: []string{"Origin", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(startedAt).String(),
			"service": "rconctl",
		})
	})
	metrics := []gin.HandlerFunc{gin.WrapH(promhttp.Handler())}
	if opts.MetricsToken != "" {
		metrics = append([]gin.HandlerFunc{RequireToken(auth.StaticToken{Token: opts.MetricsToken})}, metrics...)
	}
	r.GET("/metrics", metrics...)
	return r
}

// Serve runs the metrics router on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, opts RouterOptions) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(opts),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.Info().Str("addr", addr).Msg("metrics endpoint listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
