// Package api is the REST surface over the service layer.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"foodshare/pkg/logger"
	"foodshare/pkg/metrics"
	"foodshare/service"
)

type Options struct {
	RateLimitRPS   float64
	RateLimitBurst int
}

type handler struct {
	svc service.IServiceManager
	log logger.ILogger
}

func NewRouter(svc service.IServiceManager, log logger.ILogger, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), metrics.GinMiddleware(), cors())

	h := &handler{svc: svc, log: log}
	limiter := newRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst)

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api", identify(svc), limiter.middleware())
	{
		api.POST("/auth/register", h.register)
		api.GET("/auth/profile/:id", h.getProfile)
		api.PUT("/auth/profile/:id", requireActor(), h.updateProfile)

		api.GET("/donations", h.listAvailable)
		api.GET("/donations/recent", h.listRecent)
		api.GET("/donations/leaderboard", h.leaderboard)
		api.GET("/donations/donor/:id", h.listByDonor)
		api.GET("/donations/receiver/:id", h.listByReceiver)
		api.GET("/donations/volunteer/tasks/:id", h.listVolunteerTasks)
		api.GET("/donations/:id", h.getDonation)

		authed := api.Group("", requireActor())
		authed.POST("/donations", h.createDonation)
		authed.PUT("/donations/:id", h.updateDonation)
		authed.DELETE("/donations/:id", h.deleteDonation)
		authed.PUT("/donations/:id/claim", h.claim)
		authed.PUT("/donations/:id/accept", h.accept)
		authed.PUT("/donations/:id/deliver", h.deliver)
		authed.PUT("/donations/:id/cancel", h.cancel)
		authed.GET("/donations/:id/chat", h.chatParties)

		authed.GET("/notifications/:id", h.listNotifications)
		authed.PUT("/notifications/:id/read", h.markRead)

		api.GET("/points/:id", h.pointsHistory)
	}
	return r
}

// RunServer serves the API on port until ctx is cancelled.
func RunServer(ctx context.Context, port int, svc service.IServiceManager, log logger.ILogger, opts Options) error {
	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(port),
		Handler:           NewRouter(svc, log, opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", logger.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info("http server shutting down")
	return srv.Shutdown(shutdownCtx)
}
