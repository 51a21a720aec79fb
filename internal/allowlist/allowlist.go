package allowlist

import (
	"strings"

	"go.uber.org/zap"
)

// Checker decides whether a sender belongs to a trusted domain.
// Emails from trusted domains skip oracle scoring entirely.
type Checker struct {
	domains []string
	logger  *zap.Logger
}

// NewChecker creates a new trusted domain checker
func NewChecker(domains []string, logger *zap.Logger) *Checker {
	// Normalize domains (lowercase)
	normalized := make([]string, len(domains))
	for i, domain := range domains {
		normalized[i] = strings.ToLower(strings.TrimSpace(domain))
	}

	if len(normalized) > 0 && logger != nil {
		logger.Info("Initialized trusted domain checker", zap.Strings("domains", normalized))
	}

	return &Checker{
		domains: normalized,
		logger:  logger,
	}
}

// IsTrusted checks if the sender's domain is in the trusted list.
// The sender may be a bare address or a display name form like
// "Alice <alice@example.org>".
func (c *Checker) IsTrusted(sender string) bool {
	if c == nil || len(c.domains) == 0 {
		return false
	}

	addr := sender
	if start := strings.LastIndex(addr, "<"); start >= 0 {
		if end := strings.Index(addr[start:], ">"); end > 0 {
			addr = addr[start+1 : start+end]
		}
	}

	// Extract domain from email address
	parts := strings.Split(addr, "@")
	if len(parts) != 2 {
		return false
	}
	domain := strings.ToLower(strings.TrimSpace(parts[1]))

	for _, trusted := range c.domains {
		if trusted == domain {
			if c.logger != nil {
				c.logger.Debug("Sender domain is trusted",
					zap.String("domain", domain),
					zap.String("sender", sender))
			}
			return true
		}
	}

	return false
}
