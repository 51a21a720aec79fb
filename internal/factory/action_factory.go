package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/inboxguard/inboxguard/internal/config"
	"github.com/inboxguard/inboxguard/internal/core"
)

// ActionFactory creates the action service from configuration
type ActionFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewActionFactory creates a new action factory
func NewActionFactory(cfg *config.Config, logger *zap.Logger) *ActionFactory {
	return &ActionFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateActionService builds the configured strategy and binds it to the
// given mail store
func (f *ActionFactory) CreateActionService(store core.MailStore) (*core.ActionService, error) {
	actionsCfg := f.cfg.GetActions()

	strategy, err := core.NewActionStrategy(actionsCfg.Strategy, actionsCfg.QuarantineFolder)
	if err != nil {
		return nil, err
	}

	delay, err := f.cfg.GetDuration("actions.delay")
	if err != nil {
		return nil, fmt.Errorf("invalid actions delay: %w", err)
	}

	return core.NewActionService(
		store,
		strategy,
		f.logger,
		f.cfg.GetIMAP().Folder,
		delay,
	), nil
}
