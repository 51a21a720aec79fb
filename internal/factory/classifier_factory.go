package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/inboxguard/inboxguard/internal/allowlist"
	"github.com/inboxguard/inboxguard/internal/config"
	"github.com/inboxguard/inboxguard/internal/core"
)

// ClassifierFactory creates the classifier service from configuration
type ClassifierFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewClassifierFactory creates a new classifier factory
func NewClassifierFactory(cfg *config.Config, logger *zap.Logger) *ClassifierFactory {
	return &ClassifierFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateClassifier wires the oracle, cache and trusted sender checker into
// a classifier service
func (f *ClassifierFactory) CreateClassifier(
	oracle core.ScoringOracle,
	verdictCache core.VerdictCache,
	trusted *allowlist.Checker,
) (*core.ClassifierService, error) {
	classifierCfg := f.cfg.GetClassifier()

	cacheTTL, err := f.cfg.GetDuration("cache.ttl")
	if err != nil {
		return nil, fmt.Errorf("invalid cache ttl: %w", err)
	}

	return core.NewClassifierService(
		oracle,
		verdictCache,
		trusted,
		f.logger,
		f.cfg.GetBool("cache.enabled"),
		cacheTTL,
		classifierCfg.Threshold,
		classifierCfg.Workers,
	)
}
