package providers

import (
	"github.com/samber/do/v2"

	"github.com/studytrackapp/studytrack-server/internal/api"
	"github.com/studytrackapp/studytrack-server/internal/config"
	"github.com/studytrackapp/studytrack-server/internal/logger"
	"github.com/studytrackapp/studytrack-server/internal/telemetry"
)

// TelemetryHandle wraps the telemetry provider with shutdown capability.
type TelemetryHandle struct {
	*telemetry.Provider
}

// Shutdown implements do.Shutdownable.
func (h *TelemetryHandle) Shutdown() error {
	return h.Provider.Shutdown()
}

// ProvideTelemetry provides OpenTelemetry metrics and tracing.
func ProvideTelemetry(i do.Injector) (*TelemetryHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	provider, err := telemetry.New(telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: api.Version,
		Environment:    cfg.App.Environment,
	})
	if err != nil {
		return nil, err
	}

	log.Info("Telemetry initialized", "enabled", cfg.Telemetry.Enabled)

	return &TelemetryHandle{Provider: provider}, nil
}
