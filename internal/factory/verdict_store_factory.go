package factory

import (
	"go.uber.org/zap"

	"github.com/inboxguard/inboxguard/internal/adapters/verdictfile"
	"github.com/inboxguard/inboxguard/internal/config"
	"github.com/inboxguard/inboxguard/internal/core"
)

// VerdictStoreFactory creates on-disk verdict stores
type VerdictStoreFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewVerdictStoreFactory creates a new verdict store factory
func NewVerdictStoreFactory(cfg *config.Config, logger *zap.Logger) *VerdictStoreFactory {
	return &VerdictStoreFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateVerdictStore creates the verdict store for the configured directory
func (f *VerdictStoreFactory) CreateVerdictStore() core.VerdictStore {
	return verdictfile.NewStore(f.cfg.GetVerdicts(), f.logger)
}
