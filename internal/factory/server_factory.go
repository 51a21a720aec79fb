package factory

import (
	"go.uber.org/zap"

	"github.com/inboxguard/inboxguard/internal/adapters/httpapi"
	"github.com/inboxguard/inboxguard/internal/config"
	"github.com/inboxguard/inboxguard/internal/core"
	"github.com/inboxguard/inboxguard/internal/ports"
)

// ServerFactory creates the HTTP API server
type ServerFactory struct {
	cfg        *config.Config
	logger     *zap.Logger
	classifier *core.ClassifierService
}

// NewServerFactory creates a new server factory
func NewServerFactory(cfg *config.Config, logger *zap.Logger, classifier *core.ClassifierService) *ServerFactory {
	return &ServerFactory{
		cfg:        cfg,
		logger:     logger,
		classifier: classifier,
	}
}

// CreateServer creates the HTTP API server on the configured address
func (f *ServerFactory) CreateServer() ports.Server {
	return httpapi.NewServer(
		f.classifier,
		f.logger,
		f.cfg.GetServer().ListenAddress,
		f.cfg.GetVerdicts().SuspiciousCode,
	)
}
