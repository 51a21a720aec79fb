package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/inboxguard/inboxguard/internal/allowlist"
	"github.com/inboxguard/inboxguard/internal/config"
	"github.com/inboxguard/inboxguard/internal/core"
	"github.com/inboxguard/inboxguard/internal/factory"
	"github.com/inboxguard/inboxguard/internal/logging"
	"github.com/inboxguard/inboxguard/internal/ports"
	"github.com/inboxguard/inboxguard/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewOracleFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewCacheFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewClassifierFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewServerFactory); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return nil, err
	}

	// Register scoring oracle
	if err := container.Provide(func(f *factory.OracleFactory) (core.ScoringOracle, error) {
		return f.CreateScoringOracle()
	}); err != nil {
		return nil, err
	}

	// Register verdict cache
	if err := container.Provide(func(f *factory.CacheFactory) (core.VerdictCache, error) {
		return f.CreateVerdictCache()
	}); err != nil {
		return nil, err
	}

	// Register trusted sender checker
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *allowlist.Checker {
		return allowlist.NewChecker(cfg.GetClassifier().TrustedDomains, logger)
	}); err != nil {
		return nil, err
	}

	// Register classifier service
	if err := container.Provide(func(
		f *factory.ClassifierFactory,
		oracle core.ScoringOracle,
		verdictCache core.VerdictCache,
		trusted *allowlist.Checker,
	) (*core.ClassifierService, error) {
		return f.CreateClassifier(oracle, verdictCache, trusted)
	}); err != nil {
		return nil, err
	}

	// Register HTTP API server
	if err := container.Provide(func(f *factory.ServerFactory) ports.Server {
		return f.CreateServer()
	}); err != nil {
		return nil, err
	}

	return container, nil
}
