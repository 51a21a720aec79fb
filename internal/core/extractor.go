package core

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// extractTimestampLayout names batch files by wall clock time
const extractTimestampLayout = "20060102_150405"

// ExtractorService pulls a bounded window of recent messages from the mail
// store and persists the batch as one JSON document
type ExtractorService struct {
	store        MailStore
	logger       *zap.Logger
	outputDir    string
	outputPrefix string
}

// NewExtractorService creates a new extractor service
func NewExtractorService(store MailStore, logger *zap.Logger, outputDir string, outputPrefix string) *ExtractorService {
	return &ExtractorService{
		store:        store,
		logger:       logger,
		outputDir:    outputDir,
		outputPrefix: outputPrefix,
	}
}

// Extract fetches at most max of the newest messages in the folder.
// Any mail store failure aborts the whole extraction; there is no
// partial batch.
func (s *ExtractorService) Extract(ctx context.Context, folder string, max int) ([]EmailRecord, error) {
	uids, err := s.store.ListRecentUIDs(ctx, folder, max)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent messages: %w", err)
	}

	records := make([]EmailRecord, 0, len(uids))
	for _, uid := range uids {
		record, err := s.store.Fetch(ctx, uid)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch message %s: %w", uid, err)
		}
		records = append(records, *record)
	}

	s.logger.Info("Extracted messages",
		zap.String("folder", folder),
		zap.Int("count", len(records)))
	return records, nil
}

// SaveBatch writes one extracted batch to a timestamped JSON file and
// returns the path written. The file is only created once the whole
// batch is in hand.
func (s *ExtractorService) SaveBatch(records []EmailRecord) (string, error) {
	if err := os.MkdirAll(s.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	name := fmt.Sprintf("%s_%s.json", s.outputPrefix, time.Now().Format(extractTimestampLayout))
	path := filepath.Join(s.outputDir, name)

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal extracted batch: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write extracted batch: %w", err)
	}

	s.logger.Info("Saved extracted batch",
		zap.String("path", path),
		zap.Int("count", len(records)))
	return path, nil
}

// Run extracts a window and persists it, returning the records and the
// path of the batch file
func (s *ExtractorService) Run(ctx context.Context, folder string, max int) ([]EmailRecord, string, error) {
	records, err := s.Extract(ctx, folder, max)
	if err != nil {
		return nil, "", err
	}
	path, err := s.SaveBatch(records)
	if err != nil {
		return nil, "", err
	}
	return records, path, nil
}

// LoadLatestBatch reads back the most recently written batch in dir,
// chosen by modification time. Classification run as a separate process
// picks up its input here.
func LoadLatestBatch(dir string, prefix string) ([]EmailRecord, string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, prefix+"_*.json"))
	if err != nil {
		return nil, "", fmt.Errorf("failed to scan for batch files: %w", err)
	}
	if len(matches) == 0 {
		return nil, "", fmt.Errorf("no extracted batch found under %s", dir)
	}

	var latest string
	var latestMod time.Time
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if latest == "" || info.ModTime().After(latestMod) {
			latest = path
			latestMod = info.ModTime()
		}
	}
	if latest == "" {
		return nil, "", fmt.Errorf("no readable batch found under %s", dir)
	}

	data, err := os.ReadFile(latest)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read batch file: %w", err)
	}
	var records []EmailRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, "", fmt.Errorf("failed to parse batch file %s: %w", latest, err)
	}
	return records, latest, nil
}
