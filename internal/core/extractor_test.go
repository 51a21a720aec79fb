package core

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestExtractTakesNewestWindow(t *testing.T) {
	store := newFakeMailStore()
	store.uids = []string{"1", "2", "3", "4", "5"}
	for _, uid := range store.uids {
		store.messages[uid] = &EmailRecord{UID: uid, Subject: "s" + uid, Body: "b" + uid}
	}
	service := NewExtractorService(store, zap.NewNop(), t.TempDir(), "extracted_emails")

	records, err := service.Extract(context.Background(), "INBOX", 3)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "3", records[0].UID)
	assert.Equal(t, "5", records[2].UID)
}

func TestExtractAllWhenFewerThanMax(t *testing.T) {
	store := newFakeMailStore()
	store.uids = []string{"1", "2"}
	for _, uid := range store.uids {
		store.messages[uid] = &EmailRecord{UID: uid}
	}
	service := NewExtractorService(store, zap.NewNop(), t.TempDir(), "extracted_emails")

	records, err := service.Extract(context.Background(), "INBOX", 10)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestExtractAbortsOnListFailure(t *testing.T) {
	store := newFakeMailStore()
	store.listErr = errors.New("connection reset")
	service := NewExtractorService(store, zap.NewNop(), t.TempDir(), "extracted_emails")

	_, err := service.Extract(context.Background(), "INBOX", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list recent messages")
}

func TestExtractAbortsOnFetchFailure(t *testing.T) {
	store := newFakeMailStore()
	store.uids = []string{"1", "2"}
	store.messages["1"] = &EmailRecord{UID: "1"}
	store.fetchErr = errors.New("connection reset")
	service := NewExtractorService(store, zap.NewNop(), t.TempDir(), "extracted_emails")

	_, err := service.Extract(context.Background(), "INBOX", 5)
	require.Error(t, err)
}

func TestSaveBatchRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := newFakeMailStore()
	service := NewExtractorService(store, zap.NewNop(), dir, "extracted_emails")

	records := []EmailRecord{
		{UID: "1", Sender: "a@example.com", Subject: "hello", Body: "world", Date: "Mon, 02 Jan 2006"},
		{UID: "2", Sender: "b@example.com", Subject: "hi", Body: ""},
	}
	path, err := service.SaveBatch(records)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "extracted_emails_"))
	assert.True(t, strings.HasSuffix(path, ".json"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var loaded []EmailRecord
	require.NoError(t, json.Unmarshal(data, &loaded))
	assert.Equal(t, records, loaded)
}

func TestRunWritesNothingOnExtractFailure(t *testing.T) {
	dir := t.TempDir()
	store := newFakeMailStore()
	store.uids = []string{"1"}
	store.fetchErr = errors.New("auth expired")
	service := NewExtractorService(store, zap.NewNop(), dir, "extracted_emails")

	_, _, err := service.Run(context.Background(), "INBOX", 5)
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "a failed extraction must not leave a partial batch file")
}

func TestLoadLatestBatchPicksNewestByModTime(t *testing.T) {
	dir := t.TempDir()

	writeBatch := func(name string, records []EmailRecord, age time.Duration) {
		data, err := json.Marshal(records)
		require.NoError(t, err)
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, data, 0644))
		mod := time.Now().Add(-age)
		require.NoError(t, os.Chtimes(path, mod, mod))
	}

	// The lexically greatest name is the oldest file
	writeBatch("extracted_emails_99990101_000000.json", []EmailRecord{{UID: "old"}}, time.Hour)
	writeBatch("extracted_emails_20240101_000000.json", []EmailRecord{{UID: "new"}}, time.Minute)

	records, path, err := LoadLatestBatch(dir, "extracted_emails")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "new", records[0].UID)
	assert.Equal(t, "extracted_emails_20240101_000000.json", filepath.Base(path))
}

func TestLoadLatestBatchNoFiles(t *testing.T) {
	_, _, err := LoadLatestBatch(t.TempDir(), "extracted_emails")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no extracted batch found")
}

func TestLoadLatestBatchUnparseableFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "extracted_emails_20240101_000000.json")
	require.NoError(t, os.WriteFile(path, []byte("{{{ not json"), 0644))

	_, _, err := LoadLatestBatch(dir, "extracted_emails")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse batch file")
}
