package factory

import (
	"go.uber.org/zap"

	"github.com/inboxguard/inboxguard/internal/adapters/imapstore"
	"github.com/inboxguard/inboxguard/internal/config"
	"github.com/inboxguard/inboxguard/internal/core"
)

// MailStoreFactory creates mail store connections
type MailStoreFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewMailStoreFactory creates a new mail store factory
func NewMailStoreFactory(cfg *config.Config, logger *zap.Logger) *MailStoreFactory {
	return &MailStoreFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateMailStore dials and authenticates a new mail store connection.
// The caller owns the connection and must Close it.
func (f *MailStoreFactory) CreateMailStore() (core.MailStore, error) {
	return imapstore.NewStore(f.cfg.GetIMAP(), f.logger)
}
