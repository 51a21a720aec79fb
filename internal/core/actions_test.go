package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestActionService(t *testing.T, store MailStore, strategy string) *ActionService {
	t.Helper()
	s, err := NewActionStrategy(strategy, "Quarantine")
	require.NoError(t, err)
	return NewActionService(store, s, zap.NewNop(), "INBOX", 0)
}

func TestNewActionStrategyUnsupported(t *testing.T) {
	_, err := NewActionStrategy("shred", "Quarantine")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported action strategy")
}

func TestLabelMoveStrategyPlan(t *testing.T) {
	strategy, err := NewActionStrategy(StrategyLabelMove, "")
	require.NoError(t, err)

	cases := []struct {
		label     Label
		wantLabel string
	}{
		{LabelPhishing, "inboxguard-phishing"},
		{LabelSuspicious, "inboxguard-suspicious"},
		{LabelLegitimate, "inboxguard-safe"},
	}
	for _, tc := range cases {
		t.Run(tc.label.String(), func(t *testing.T) {
			mutations, err := strategy.Plan(Verdict{UID: "12", Label: tc.label})
			require.NoError(t, err)
			require.Len(t, mutations, 2)
			assert.Equal(t, Mutation{UID: "12", Op: OpAddLabel, Name: tc.wantLabel}, mutations[0])
			assert.Equal(t, Mutation{UID: "12", Op: OpRemoveLabel, Name: `\Inbox`}, mutations[1])
		})
	}
}

func TestDestructiveStrategyPlan(t *testing.T) {
	strategy, err := NewActionStrategy(StrategyDestructive, "")
	require.NoError(t, err)

	mutations, err := strategy.Plan(Verdict{UID: "1", Label: LabelPhishing})
	require.NoError(t, err)
	require.Len(t, mutations, 1)
	assert.Equal(t, OpDeletePermanently, mutations[0].Op)

	mutations, err = strategy.Plan(Verdict{UID: "2", Label: LabelSuspicious})
	require.NoError(t, err)
	require.Len(t, mutations, 2)
	assert.Equal(t, Mutation{UID: "2", Op: OpAddLabel, Name: "suspicious"}, mutations[0])
	assert.Equal(t, Mutation{UID: "2", Op: OpRemoveLabel, Name: `\Inbox`}, mutations[1])

	mutations, err = strategy.Plan(Verdict{UID: "3", Label: LabelLegitimate})
	require.NoError(t, err)
	assert.Empty(t, mutations, "legitimate mail is left alone")
}

func TestQuarantineStrategyPlan(t *testing.T) {
	strategy, err := NewActionStrategy(StrategyQuarantine, "Holding")
	require.NoError(t, err)

	mutations, err := strategy.Plan(Verdict{UID: "1", Label: LabelPhishing})
	require.NoError(t, err)
	require.Len(t, mutations, 1)
	assert.Equal(t, Mutation{UID: "1", Op: OpMoveToFolder, Name: "Holding"}, mutations[0])

	mutations, err = strategy.Plan(Verdict{UID: "2", Label: LabelSuspicious})
	require.NoError(t, err)
	require.Len(t, mutations, 1)
	assert.Equal(t, OpMarkFlagged, mutations[0].Op)

	mutations, err = strategy.Plan(Verdict{UID: "3", Label: LabelLegitimate})
	require.NoError(t, err)
	assert.Empty(t, mutations)
}

func TestStrategyPlanUnknownLabel(t *testing.T) {
	for _, name := range []string{StrategyLabelMove, StrategyDestructive, StrategyQuarantine} {
		t.Run(name, func(t *testing.T) {
			strategy, err := NewActionStrategy(name, "Quarantine")
			require.NoError(t, err)

			_, err = strategy.Plan(Verdict{UID: "66", Label: LabelUnknown})
			require.Error(t, err)
			assert.True(t, IsUnknownLabel(err))
		})
	}
}

func TestApplyBatchLabelMove(t *testing.T) {
	store := newFakeMailStore()
	service := newTestActionService(t, store, StrategyLabelMove)

	verdicts := map[string]Verdict{
		"1": {UID: "1", Label: LabelPhishing},
		"2": {UID: "2", Label: LabelLegitimate},
	}
	result, err := service.ApplyBatch(context.Background(), verdicts)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, "INBOX", store.selected)
	assert.True(t, store.labels["1"]["inboxguard-phishing"])
	assert.False(t, store.labels["1"][`\Inbox`])
	assert.True(t, store.labels["2"]["inboxguard-safe"])
}

func TestApplyBatchBootstrapsLabels(t *testing.T) {
	store := newFakeMailStore()
	service := newTestActionService(t, store, StrategyLabelMove)

	_, err := service.ApplyBatch(context.Background(), map[string]Verdict{
		"1": {UID: "1", Label: LabelPhishing},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"inboxguard-phishing", "inboxguard-suspicious", "inboxguard-safe"}, store.ensured)
}

func TestApplyBatchContinuesOnUnknownLabel(t *testing.T) {
	store := newFakeMailStore()
	service := newTestActionService(t, store, StrategyLabelMove)

	verdicts := map[string]Verdict{
		"1": {UID: "1", Label: LabelPhishing},
		"2": {UID: "2", Label: LabelUnknown},
		"3": {UID: "3", Label: LabelSuspicious},
	}
	result, err := service.ApplyBatch(context.Background(), verdicts)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, map[string]bool{"1": true, "2": false, "3": true}, result.Applied)
}

func TestApplyBatchContinuesOnStoreFailure(t *testing.T) {
	store := newFakeMailStore()
	store.applyErr["2"] = errors.New("mailbox closed")
	service := newTestActionService(t, store, StrategyLabelMove)

	verdicts := map[string]Verdict{
		"1": {UID: "1", Label: LabelLegitimate},
		"2": {UID: "2", Label: LabelLegitimate},
		"3": {UID: "3", Label: LabelLegitimate},
	}
	result, err := service.ApplyBatch(context.Background(), verdicts)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	assert.False(t, result.Applied["2"])
}

func TestApplyBatchIdempotent(t *testing.T) {
	store := newFakeMailStore()
	service := newTestActionService(t, store, StrategyLabelMove)

	verdicts := map[string]Verdict{
		"1": {UID: "1", Label: LabelPhishing},
		"2": {UID: "2", Label: LabelSuspicious},
	}
	first, err := service.ApplyBatch(context.Background(), verdicts)
	require.NoError(t, err)
	require.Equal(t, 2, first.Succeeded)
	labelsAfterFirst := map[string]bool{
		"1-phish": store.labels["1"]["inboxguard-phishing"],
		"2-susp":  store.labels["2"]["inboxguard-suspicious"],
	}

	// A repeated full-batch run must land in the same state without errors
	second, err := service.ApplyBatch(context.Background(), verdicts)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Succeeded)
	assert.Equal(t, 0, second.Failed)
	assert.Equal(t, labelsAfterFirst["1-phish"], store.labels["1"]["inboxguard-phishing"])
	assert.Equal(t, labelsAfterFirst["2-susp"], store.labels["2"]["inboxguard-suspicious"])
}

func TestApplyBatchEmpty(t *testing.T) {
	store := newFakeMailStore()
	service := newTestActionService(t, store, StrategyDestructive)

	result, err := service.ApplyBatch(context.Background(), map[string]Verdict{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Succeeded)
	assert.Equal(t, 0, result.Failed)
	assert.Empty(t, store.selected, "an empty batch must not touch the mail store")
}

func TestRunDegradesOnParseError(t *testing.T) {
	store := newFakeMailStore()
	service := newTestActionService(t, store, StrategyLabelMove)

	verdictStore := &fakeVerdictStore{loadErr: &ParseError{Path: "results.json", Err: errors.New("no variant matched")}}
	result, err := service.Run(context.Background(), verdictStore)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Succeeded)
	assert.Equal(t, 0, result.Failed)
	assert.Empty(t, store.applied)
}

func TestRunAppliesLoadedVerdicts(t *testing.T) {
	store := newFakeMailStore()
	service := newTestActionService(t, store, StrategyLabelMove)

	verdictStore := &fakeVerdictStore{verdicts: map[string]Verdict{
		"8": {UID: "8", Label: LabelPhishing},
	}}
	result, err := service.Run(context.Background(), verdictStore)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)
	assert.True(t, store.labels["8"]["inboxguard-phishing"])
}

func TestSortedUIDsNumericOrder(t *testing.T) {
	verdicts := map[string]Verdict{
		"10":  {UID: "10"},
		"2":   {UID: "2"},
		"1":   {UID: "1"},
		"abc": {UID: "abc"},
	}
	assert.Equal(t, []string{"1", "2", "10", "abc"}, sortedUIDs(verdicts))
}
