// Package di provides dependency injection configuration for the StudyTrack server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/studytrackapp/studytrack-server/internal/auth"
	"github.com/studytrackapp/studytrack-server/internal/config"
	"github.com/studytrackapp/studytrack-server/internal/di/providers"
	"github.com/studytrackapp/studytrack-server/internal/domain"
	"github.com/studytrackapp/studytrack-server/internal/logger"
	"github.com/studytrackapp/studytrack-server/internal/otp"
	"github.com/studytrackapp/studytrack-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideSlogLogger)
	do.Provide(injector, providers.ProvideClock)
	do.Provide(injector, providers.ProvideTelemetry)
	do.Provide(injector, providers.ProvideAuthKey)

	// Database layer
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)

	// Search layer
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvideSearchService)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)
	do.Provide(injector, providers.ProvideOTPStore)
	do.Provide(injector, providers.ProvideMailer)
	do.Provide(injector, providers.ProvideIdentityVerifiers)
	do.Provide(injector, providers.ProvideAuthRateLimiter)

	// Business services
	do.Provide(injector, providers.ProvideSessionService)
	do.Provide(injector, providers.ProvideAuthService)
	do.Provide(injector, providers.ProvideHierarchyService)
	do.Provide(injector, providers.ProvideSlotService)
	do.Provide(injector, providers.ProvideTopicTaskBridge)
	do.Provide(injector, providers.ProvideExamService)
	do.Provide(injector, providers.ProvideProgressService)
	do.Provide(injector, providers.ProvideAdminService)

	// Workers
	do.Provide(injector, providers.ProvideSessionCleanupJob)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	// Invoke core services to trigger initialization
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[domain.Clock](injector)
	_ = do.MustInvoke[*providers.TelemetryHandle](injector)
	_ = do.MustInvoke[providers.AuthKey](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[*service.SearchService](injector)
	_ = do.MustInvoke[*auth.TokenService](injector)
	_ = do.MustInvoke[*otp.Store](injector)
	_ = do.MustInvoke[*providers.MailerHandle](injector)
	_ = do.MustInvoke[*providers.IdentityVerifiers](injector)

	// Business services
	_ = do.MustInvoke[*service.SessionService](injector)
	_ = do.MustInvoke[*service.AuthService](injector)
	_ = do.MustInvoke[*service.HierarchyService](injector)
	_ = do.MustInvoke[*service.SlotService](injector)
	_ = do.MustInvoke[*service.TopicTaskBridge](injector)
	_ = do.MustInvoke[*service.ExamService](injector)
	_ = do.MustInvoke[*service.ProgressService](injector)
	_ = do.MustInvoke[*service.AdminService](injector)

	// Workers
	_ = do.MustInvoke[*providers.SessionCleanupJob](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	// Trigger search reindex if needed
	providers.TriggerSearchReindexIfNeeded(injector)

	return nil
}
