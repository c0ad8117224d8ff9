package providers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/samber/do/v2"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/studytrackapp/studytrack-server/internal/api"
	"github.com/studytrackapp/studytrack-server/internal/config"
	"github.com/studytrackapp/studytrack-server/internal/logger"
	"github.com/studytrackapp/studytrack-server/internal/otp"
	"github.com/studytrackapp/studytrack-server/internal/ratelimit"
	"github.com/studytrackapp/studytrack-server/internal/service"
)

// Auth endpoints allow authRequestsPerMinute per client IP with a small burst.
const (
	authRequestsPerMinute = 10
	authBurst             = 5
)

// AuthRateLimiterHandle wraps the auth rate limiter with shutdown capability.
type AuthRateLimiterHandle struct {
	*ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *AuthRateLimiterHandle) Shutdown() error {
	return h.KeyedRateLimiter.Shutdown()
}

// ProvideAuthRateLimiter provides the per-IP limiter for credential endpoints.
func ProvideAuthRateLimiter(i do.Injector) (*AuthRateLimiterHandle, error) {
	limiter := ratelimit.NewPerInterval(authRequestsPerMinute, time.Minute, authBurst)
	return &AuthRateLimiterHandle{KeyedRateLimiter: limiter}, nil
}

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server and starts listening.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	telemetryHandle := do.MustInvoke[*TelemetryHandle](i)
	limiter := do.MustInvoke[*AuthRateLimiterHandle](i)
	otpStore := do.MustInvoke[*otp.Store](i)
	log := do.MustInvoke[*logger.Logger](i)

	services := &api.Services{
		Auth:      do.MustInvoke[*service.AuthService](i),
		Admin:     do.MustInvoke[*service.AdminService](i),
		Hierarchy: do.MustInvoke[*service.HierarchyService](i),
		Slots:     do.MustInvoke[*service.SlotService](i),
		Bridge:    do.MustInvoke[*service.TopicTaskBridge](i),
		Exams:     do.MustInvoke[*service.ExamService](i),
		Progress:  do.MustInvoke[*service.ProgressService](i),
		Search:    do.MustInvoke[*service.SearchService](i),
	}

	handler := api.NewServer(storeHandle.Store, services, api.Options{
		FrontendURL:     cfg.Server.FrontendURL,
		AuthRateLimiter: limiter.KeyedRateLimiter,
		SSEManager:      sseHandle.Manager,
		Telemetry:       telemetryHandle.Provider,
		SearchIndex:     indexHandle.SearchIndex,
		OTP:             otpStore,
	}, log.Logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      h2c.NewHandler(handler, &http2.Server{IdleTimeout: cfg.Server.IdleTimeout}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr)

	return &HTTPServerHandle{Server: srv}, nil
}
