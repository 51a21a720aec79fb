package core

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/inboxguard/inboxguard/internal/allowlist"
	"go.uber.org/zap"
)

// ClassifierService turns a batch of extracted emails into verdicts using
// the scoring oracle plus a confidence gating rule
type ClassifierService struct {
	oracle       ScoringOracle
	cache        VerdictCache
	trusted      *allowlist.Checker
	logger       *zap.Logger
	cacheEnabled bool
	cacheTTL     time.Duration
	threshold    float64
	workers      int
}

// NewClassifierService creates a new classifier service. The oracle is a hard
// precondition; a nil oracle fails construction rather than every call.
func NewClassifierService(
	oracle ScoringOracle,
	cache VerdictCache,
	trusted *allowlist.Checker,
	logger *zap.Logger,
	cacheEnabled bool,
	cacheTTL time.Duration,
	threshold float64,
	workers int,
) (*ClassifierService, error) {
	if oracle == nil {
		return nil, ErrOracleUnavailable
	}
	if workers < 1 {
		workers = 1
	}
	return &ClassifierService{
		oracle:       oracle,
		cache:        cache,
		trusted:      trusted,
		logger:       logger,
		cacheEnabled: cacheEnabled,
		cacheTTL:     cacheTTL,
		threshold:    threshold,
		workers:      workers,
	}, nil
}

// ClassifyEmail produces the verdict for one email record
func (s *ClassifierService) ClassifyEmail(ctx context.Context, record EmailRecord) (Verdict, error) {
	source := VerdictSource{Subject: record.Subject, Sender: record.Sender}

	// Empty content never reaches the oracle
	text := strings.TrimSpace(record.Subject + " " + record.Body)
	if text == "" {
		s.logger.Debug("Empty email content", zap.String("uid", record.UID))
		return Verdict{
			UID:        record.UID,
			Label:      LabelSuspicious,
			Confidence: 0.0,
			Message:    "Empty email content",
			Source:     source,
		}, nil
	}

	if s.trusted.IsTrusted(record.Sender) {
		s.logger.Info("Skipping oracle for trusted sender",
			zap.String("uid", record.UID),
			zap.String("sender", record.Sender))
		return Verdict{
			UID:        record.UID,
			Label:      LabelLegitimate,
			Confidence: 1.0,
			Message:    "Sender domain is trusted",
			Source:     source,
		}, nil
	}

	digest := fmt.Sprintf("%x", sha256.Sum256([]byte(text)))

	// Check cache if enabled
	if s.cacheEnabled && s.cache != nil {
		if entry, err := s.cache.Get(ctx, digest); err == nil {
			s.logger.Debug("Cache hit for message content", zap.String("uid", record.UID))
			label, message := s.decide(entry.Prediction, entry.Confidence)
			return Verdict{
				UID:        record.UID,
				Label:      label,
				Confidence: entry.Confidence,
				Message:    message,
				Source:     source,
			}, nil
		}
	}

	predicted, probs, err := s.oracle.Score(ctx, text)
	if err != nil {
		return Verdict{}, fmt.Errorf("failed to score message %s: %w", record.UID, err)
	}
	confidence := maxProbability(probs)
	label, message := s.decide(predicted, confidence)

	// Update cache with the raw score so a reconfigured threshold regates on read
	if s.cacheEnabled && s.cache != nil {
		entry := &CacheEntry{
			Digest:     digest,
			Prediction: predicted,
			Confidence: confidence,
			ScoredAt:   time.Now(),
			ExpiresAt:  time.Now().Add(s.cacheTTL),
		}
		if err := s.cache.Set(ctx, entry); err != nil {
			s.logger.Error("Failed to update cache", zap.Error(err))
		}
	}

	return Verdict{
		UID:        record.UID,
		Label:      label,
		Confidence: confidence,
		Message:    message,
		Source:     source,
	}, nil
}

// ClassifyBatch produces one verdict per record, preserving input order.
// Records are independent, so the batch fans out across the configured
// number of workers. Any oracle failure fails the whole batch.
func (s *ClassifierService) ClassifyBatch(ctx context.Context, records []EmailRecord) ([]Verdict, error) {
	verdicts := make([]Verdict, len(records))
	if len(records) == 0 {
		return verdicts, nil
	}

	if s.workers == 1 {
		for i, record := range records {
			verdict, err := s.ClassifyEmail(ctx, record)
			if err != nil {
				return nil, err
			}
			verdicts[i] = verdict
		}
		return verdicts, nil
	}

	errs := make([]error, len(records))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < s.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				verdicts[i], errs[i] = s.ClassifyEmail(ctx, records[i])
			}
		}()
	}
	for i := range records {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return verdicts, nil
}

// Summarize tallies the labels in a batch of verdicts
func (s *ClassifierService) Summarize(verdicts []Verdict) BatchSummary {
	summary := BatchSummary{Total: len(verdicts)}
	for _, verdict := range verdicts {
		switch verdict.Label {
		case LabelPhishing:
			summary.Phishing++
		case LabelLegitimate:
			summary.Legitimate++
		case LabelSuspicious:
			summary.Suspicious++
		}
	}
	return summary
}

// Threshold returns the configured confidence gate
func (s *ClassifierService) Threshold() float64 {
	return s.threshold
}

// decide applies the confidence gating rule to a raw oracle score
func (s *ClassifierService) decide(predicted int, confidence float64) (Label, string) {
	if confidence < s.threshold {
		return LabelSuspicious, "Suspicious email - uncertain classification"
	}
	if predicted == 1 {
		return LabelPhishing, "Phishing email detected"
	}
	return LabelLegitimate, "Legitimate email"
}

// maxProbability returns the largest class probability, or 0 for an empty vector
func maxProbability(probs []float64) float64 {
	max := 0.0
	for _, p := range probs {
		if p > max {
			max = p
		}
	}
	return max
}
