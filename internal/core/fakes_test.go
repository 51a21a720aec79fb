package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// fakeOracle is a canned ScoringOracle that counts its calls
type fakeOracle struct {
	mu        sync.Mutex
	predicted int
	probs     []float64
	err       error
	calls     int
	scoreFn   func(text string) (int, []float64, error)
}

func (f *fakeOracle) Score(_ context.Context, text string) (int, []float64, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.scoreFn != nil {
		return f.scoreFn(text)
	}
	if f.err != nil {
		return 0, nil, f.err
	}
	return f.predicted, f.probs, nil
}

func (f *fakeOracle) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeCache is a map backed VerdictCache
type fakeCache struct {
	entries map[string]*CacheEntry
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*CacheEntry)}
}

func (f *fakeCache) Get(_ context.Context, digest string) (*CacheEntry, error) {
	if entry, ok := f.entries[digest]; ok {
		return entry, nil
	}
	return nil, errors.New("cache entry not found")
}

func (f *fakeCache) Set(_ context.Context, entry *CacheEntry) error {
	f.entries[entry.Digest] = entry
	return nil
}

func (f *fakeCache) Delete(_ context.Context, digest string) error {
	delete(f.entries, digest)
	return nil
}

func (f *fakeCache) Cleanup(_ context.Context) error {
	return nil
}

// fakeMailStore tracks mailbox state so mutations can be checked for
// effect and idempotence
type fakeMailStore struct {
	uids     []string
	messages map[string]*EmailRecord

	selected string
	ensured  []string
	applied  []Mutation

	labels  map[string]map[string]bool
	flagged map[string]bool
	deleted map[string]bool
	folders map[string]string

	listErr  error
	fetchErr error
	applyErr map[string]error
}

func newFakeMailStore() *fakeMailStore {
	return &fakeMailStore{
		messages: make(map[string]*EmailRecord),
		labels:   make(map[string]map[string]bool),
		flagged:  make(map[string]bool),
		deleted:  make(map[string]bool),
		folders:  make(map[string]string),
		applyErr: make(map[string]error),
	}
}

func (f *fakeMailStore) SelectFolder(_ context.Context, folder string) error {
	f.selected = folder
	return nil
}

func (f *fakeMailStore) ListRecentUIDs(_ context.Context, _ string, max int) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if len(f.uids) <= max {
		return f.uids, nil
	}
	return f.uids[len(f.uids)-max:], nil
}

func (f *fakeMailStore) Fetch(_ context.Context, uid string) (*EmailRecord, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	record, ok := f.messages[uid]
	if !ok {
		return nil, fmt.Errorf("no such message: %s", uid)
	}
	return record, nil
}

func (f *fakeMailStore) Apply(_ context.Context, m Mutation) error {
	if err := f.applyErr[m.UID]; err != nil {
		return err
	}
	f.applied = append(f.applied, m)
	switch m.Op {
	case OpAddLabel:
		if f.labels[m.UID] == nil {
			f.labels[m.UID] = make(map[string]bool)
		}
		f.labels[m.UID][m.Name] = true
	case OpRemoveLabel:
		delete(f.labels[m.UID], m.Name)
	case OpMarkFlagged:
		f.flagged[m.UID] = true
	case OpMoveToFolder:
		f.folders[m.UID] = m.Name
	case OpDeletePermanently:
		f.deleted[m.UID] = true
	}
	return nil
}

func (f *fakeMailStore) EnsureLabel(_ context.Context, name string) error {
	f.ensured = append(f.ensured, name)
	return nil
}

func (f *fakeMailStore) Close() error {
	return nil
}

// fakeVerdictStore serves a canned mapping or error
type fakeVerdictStore struct {
	verdicts map[string]Verdict
	loadErr  error
}

func (f *fakeVerdictStore) Save(_ []Verdict) (string, error) {
	return "", nil
}

func (f *fakeVerdictStore) LoadLatest() (map[string]Verdict, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.verdicts, nil
}
