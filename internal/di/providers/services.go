package providers

import (
	"github.com/samber/do/v2"

	"github.com/studytrackapp/studytrack-server/internal/auth"
	"github.com/studytrackapp/studytrack-server/internal/domain"
	"github.com/studytrackapp/studytrack-server/internal/logger"
	"github.com/studytrackapp/studytrack-server/internal/otp"
	"github.com/studytrackapp/studytrack-server/internal/service"
)

// ProvideSessionService provides the session management service.
func ProvideSessionService(i do.Injector) (*service.SessionService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	clock := do.MustInvoke[domain.Clock](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSessionService(storeHandle.Store, tokenService, clock, log.Logger), nil
}

// ProvideAuthService provides the authentication service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	sessionService := do.MustInvoke[*service.SessionService](i)
	otpStore := do.MustInvoke[*otp.Store](i)
	mailer := do.MustInvoke[*MailerHandle](i)
	verifiers := do.MustInvoke[*IdentityVerifiers](i)
	telemetryHandle := do.MustInvoke[*TelemetryHandle](i)
	clock := do.MustInvoke[domain.Clock](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthService(service.AuthDeps{
		Store:    storeHandle.Store,
		Sessions: sessionService,
		Tokens:   tokenService,
		OTP:      otpStore,
		Mailer:   mailer.Sender,
		Google:   verifiers.Google,
		Firebase: verifiers.Firebase,
		Metrics:  telemetryHandle.Metrics,
		Clock:    clock,
		Logger:   log.Logger,
	}), nil
}

// ProvideHierarchyService provides the book, section, chapter and topic service.
func ProvideHierarchyService(i do.Injector) (*service.HierarchyService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	searchService := do.MustInvoke[*service.SearchService](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	telemetryHandle := do.MustInvoke[*TelemetryHandle](i)
	clock := do.MustInvoke[domain.Clock](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewHierarchyService(
		storeHandle.Store,
		searchService,
		sseHandle.Manager,
		telemetryHandle.Metrics,
		clock,
		log.Logger,
	), nil
}

// ProvideSlotService provides the daily slot scheduler.
func ProvideSlotService(i do.Injector) (*service.SlotService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	telemetryHandle := do.MustInvoke[*TelemetryHandle](i)
	clock := do.MustInvoke[domain.Clock](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSlotService(storeHandle.Store, sseHandle.Manager, telemetryHandle.Metrics, clock, log.Logger), nil
}

// ProvideTopicTaskBridge provides the task-to-topic completion bridge.
func ProvideTopicTaskBridge(i do.Injector) (*service.TopicTaskBridge, error) {
	slots := do.MustInvoke[*service.SlotService](i)
	hierarchy := do.MustInvoke[*service.HierarchyService](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewTopicTaskBridge(slots, hierarchy, storeHandle.Store, log.Logger), nil
}

// ProvideExamService provides the exam service.
func ProvideExamService(i do.Injector) (*service.ExamService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	searchService := do.MustInvoke[*service.SearchService](i)
	clock := do.MustInvoke[domain.Clock](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewExamService(storeHandle.Store, searchService, clock, log.Logger), nil
}

// ProvideProgressService provides the progress report service.
func ProvideProgressService(i do.Injector) (*service.ProgressService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewProgressService(storeHandle.Store, log.Logger), nil
}

// ProvideAdminService provides the admin service.
func ProvideAdminService(i do.Injector) (*service.AdminService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sessionService := do.MustInvoke[*service.SessionService](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAdminService(storeHandle.Store, sessionService, sseHandle.Manager, log.Logger), nil
}
