package core

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Strategy names selectable per run
const (
	StrategyLabelMove   = "label-move"
	StrategyDestructive = "destructive"
	StrategyQuarantine  = "quarantine"
)

// inboxLabel is the system label messages carry while in the inbox
const inboxLabel = `\Inbox`

// Labels attached by the label-move strategy
const (
	labelPhishing   = "inboxguard-phishing"
	labelSuspicious = "inboxguard-suspicious"
	labelSafe       = "inboxguard-safe"
)

// ActionStrategy maps one verdict deterministically onto mailbox mutations
type ActionStrategy interface {
	// Name returns the configured strategy name
	Name() string

	// Plan selects the mutations for one verdict. An unmapped label
	// returns an UnknownLabelError and no mutations.
	Plan(verdict Verdict) ([]Mutation, error)

	// Labels returns the labels or folders the strategy relies on,
	// for bootstrapping before a batch
	Labels() []string
}

// NewActionStrategy selects a strategy by name
func NewActionStrategy(name string, quarantineFolder string) (ActionStrategy, error) {
	switch name {
	case StrategyLabelMove:
		return &labelMoveStrategy{}, nil
	case StrategyDestructive:
		return &destructiveStrategy{}, nil
	case StrategyQuarantine:
		return &quarantineStrategy{folder: quarantineFolder}, nil
	default:
		return nil, fmt.Errorf("unsupported action strategy: %s", name)
	}
}

// labelMoveStrategy files every message under an outcome label and
// archives it out of the inbox
type labelMoveStrategy struct{}

func (s *labelMoveStrategy) Name() string { return StrategyLabelMove }

func (s *labelMoveStrategy) Plan(verdict Verdict) ([]Mutation, error) {
	var label string
	switch verdict.Label {
	case LabelPhishing:
		label = labelPhishing
	case LabelSuspicious:
		label = labelSuspicious
	case LabelLegitimate:
		label = labelSafe
	default:
		return nil, &UnknownLabelError{UID: verdict.UID, Label: verdict.Label}
	}
	return []Mutation{
		{UID: verdict.UID, Op: OpAddLabel, Name: label},
		{UID: verdict.UID, Op: OpRemoveLabel, Name: inboxLabel},
	}, nil
}

func (s *labelMoveStrategy) Labels() []string {
	return []string{labelPhishing, labelSuspicious, labelSafe}
}

// destructiveStrategy deletes phishing outright and only tags the
// uncertain middle ground
type destructiveStrategy struct{}

func (s *destructiveStrategy) Name() string { return StrategyDestructive }

func (s *destructiveStrategy) Plan(verdict Verdict) ([]Mutation, error) {
	switch verdict.Label {
	case LabelPhishing:
		return []Mutation{{UID: verdict.UID, Op: OpDeletePermanently}}, nil
	case LabelSuspicious:
		return []Mutation{
			{UID: verdict.UID, Op: OpAddLabel, Name: "suspicious"},
			{UID: verdict.UID, Op: OpRemoveLabel, Name: inboxLabel},
		}, nil
	case LabelLegitimate:
		return nil, nil
	default:
		return nil, &UnknownLabelError{UID: verdict.UID, Label: verdict.Label}
	}
}

func (s *destructiveStrategy) Labels() []string {
	return []string{"suspicious"}
}

// quarantineStrategy moves phishing into a holding folder and flags
// the uncertain middle ground in place
type quarantineStrategy struct {
	folder string
}

func (s *quarantineStrategy) Name() string { return StrategyQuarantine }

func (s *quarantineStrategy) Plan(verdict Verdict) ([]Mutation, error) {
	switch verdict.Label {
	case LabelPhishing:
		return []Mutation{{UID: verdict.UID, Op: OpMoveToFolder, Name: s.folder}}, nil
	case LabelSuspicious:
		return []Mutation{{UID: verdict.UID, Op: OpMarkFlagged}}, nil
	case LabelLegitimate:
		return nil, nil
	default:
		return nil, &UnknownLabelError{UID: verdict.UID, Label: verdict.Label}
	}
}

func (s *quarantineStrategy) Labels() []string {
	return []string{s.folder}
}

// ActionService applies verdicts to the mailbox through the configured strategy
type ActionService struct {
	store    MailStore
	strategy ActionStrategy
	logger   *zap.Logger
	folder   string
	delay    time.Duration
}

// NewActionService creates a new action service. The folder is the
// context the mutations run against, conventionally the inbox. The
// delay spaces out mutation calls to respect mail store rate limits.
func NewActionService(
	store MailStore,
	strategy ActionStrategy,
	logger *zap.Logger,
	folder string,
	delay time.Duration,
) *ActionService {
	return &ActionService{
		store:    store,
		strategy: strategy,
		logger:   logger,
		folder:   folder,
		delay:    delay,
	}
}

// ApplyBatch applies one mutation plan per verdict. A failed item is
// recorded and the batch continues; the result carries the per-item
// outcome map and the final tally. Re-running a batch is safe because
// conflicting mutations degrade to no-ops in the mail store.
func (s *ActionService) ApplyBatch(ctx context.Context, verdicts map[string]Verdict) (*ActionResult, error) {
	result := &ActionResult{Applied: make(map[string]bool)}
	if len(verdicts) == 0 {
		s.logger.Info("No verdicts to act on")
		return result, nil
	}

	if err := s.store.SelectFolder(ctx, s.folder); err != nil {
		return nil, fmt.Errorf("failed to select folder %s: %w", s.folder, err)
	}
	s.bootstrapLabels(ctx)

	for i, uid := range sortedUIDs(verdicts) {
		if i > 0 && s.delay > 0 {
			time.Sleep(s.delay)
		}
		ok := s.applyOne(ctx, verdicts[uid])
		result.Applied[uid] = ok
		if ok {
			result.Succeeded++
		} else {
			result.Failed++
		}
	}

	s.logger.Info("Action pass complete",
		zap.String("strategy", s.strategy.Name()),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed))
	return result, nil
}

// Run loads the most recent verdict batch and applies it. An unparseable
// verdict file degrades to an empty batch with a warning; it never fails
// the pass.
func (s *ActionService) Run(ctx context.Context, store VerdictStore) (*ActionResult, error) {
	verdicts, err := store.LoadLatest()
	if err != nil {
		if IsParseError(err) {
			s.logger.Warn("Verdict file unparseable, nothing to act on", zap.Error(err))
			return &ActionResult{Applied: make(map[string]bool)}, nil
		}
		return nil, err
	}
	return s.ApplyBatch(ctx, verdicts)
}

// applyOne plans and applies the mutations for a single verdict
func (s *ActionService) applyOne(ctx context.Context, verdict Verdict) bool {
	mutations, err := s.strategy.Plan(verdict)
	if err != nil {
		s.logger.Warn("Skipping message with unmapped label",
			zap.String("uid", verdict.UID),
			zap.Error(err))
		return false
	}

	for _, m := range mutations {
		if err := s.store.Apply(ctx, m); err != nil {
			s.logger.Error("Failed to apply mutation",
				zap.String("uid", m.UID),
				zap.String("op", m.Op.String()),
				zap.Error(err))
			return false
		}
	}

	s.logger.Debug("Applied verdict",
		zap.String("uid", verdict.UID),
		zap.String("label", verdict.Label.String()),
		zap.Int("mutations", len(mutations)))
	return true
}

// bootstrapLabels makes sure the strategy's labels exist before the batch.
// Creation failures are not fatal here; the affected items will fail
// individually if the label is genuinely unusable.
func (s *ActionService) bootstrapLabels(ctx context.Context) {
	for _, label := range s.strategy.Labels() {
		if err := s.store.EnsureLabel(ctx, label); err != nil {
			s.logger.Warn("Failed to ensure label",
				zap.String("label", label),
				zap.Error(err))
		}
	}
}

// sortedUIDs orders a verdict mapping numerically where possible so
// mutation order is stable across runs
func sortedUIDs(verdicts map[string]Verdict) []string {
	uids := make([]string, 0, len(verdicts))
	for uid := range verdicts {
		uids = append(uids, uid)
	}
	sort.Slice(uids, func(i, j int) bool {
		a, errA := strconv.Atoi(uids[i])
		b, errB := strconv.Atoi(uids[j])
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		default:
			return uids[i] < uids[j]
		}
	})
	return uids
}
