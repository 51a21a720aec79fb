package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/inboxguard/inboxguard/internal/adapters/bedrock"
	"github.com/inboxguard/inboxguard/internal/adapters/gemini"
	"github.com/inboxguard/inboxguard/internal/adapters/openai"
	"github.com/inboxguard/inboxguard/internal/config"
	"github.com/inboxguard/inboxguard/internal/core"
	"github.com/inboxguard/inboxguard/internal/utils"
)

// OracleFactory creates scoring oracles
type OracleFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewOracleFactory creates a new oracle factory
func NewOracleFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *OracleFactory {
	return &OracleFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateScoringOracle creates a scoring oracle based on the configuration
func (f *OracleFactory) CreateScoringOracle() (core.ScoringOracle, error) {
	oracleCfg := f.cfg.GetOracle()

	switch oracleCfg.Provider {
	case "bedrock":
		factory := bedrock.NewFactory(f.cfg, f.logger, f.textProcessor)
		return factory.CreateOracle()
	case "gemini":
		factory := gemini.NewFactory(f.cfg, f.logger, f.textProcessor)
		return factory.CreateOracle()
	case "openai":
		factory := openai.NewFactory(f.cfg, f.logger, f.textProcessor)
		return factory.CreateOracle()
	default:
		return nil, fmt.Errorf("unsupported oracle provider: %s", oracleCfg.Provider)
	}
}
