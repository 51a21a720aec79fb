package verdictfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/inboxguard/inboxguard/internal/config"
	"github.com/inboxguard/inboxguard/internal/core"
	"go.uber.org/zap"
)

const timestampLayout = "20060102_150405"

// Store persists verdict batches as flat files in one directory. The newest
// file by modification time is authoritative on read.
type Store struct {
	dir            string
	prefix         string
	format         string
	suspiciousCode int
	logger         *zap.Logger
}

// NewStore creates a new file backed verdict store
func NewStore(cfg config.VerdictsConfig, logger *zap.Logger) *Store {
	return &Store{
		dir:            cfg.Dir,
		prefix:         cfg.Prefix,
		format:         cfg.Format,
		suspiciousCode: cfg.SuspiciousCode,
		logger:         logger,
	}
}

// fileVerdict is the wire form of one verdict inside a results document
type fileVerdict struct {
	UID        string  `json:"uid"`
	Prediction int     `json:"prediction"`
	Confidence float64 `json:"confidence"`
	Message    string  `json:"message"`
}

// batchLine is the wire form of one newline-delimited batch response record
type batchLine struct {
	CustomID string        `json:"custom_id"`
	Response batchResponse `json:"response"`
}

type batchResponse struct {
	Body batchBody `json:"body"`
}

type batchBody struct {
	Choices []batchChoice `json:"choices"`
}

type batchChoice struct {
	Message batchMessage `json:"message"`
}

type batchMessage struct {
	Content string `json:"content"`
}

// Save writes one batch and returns the path of the file written
func (s *Store) Save(verdicts []core.Verdict) (string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create verdicts directory %s: %w", s.dir, err)
	}

	var data []byte
	var ext string
	var err error

	switch s.format {
	case "json":
		ext = ".json"
		data, err = s.encodeResults(verdicts)
	case "jsonl":
		ext = ".jsonl"
		data, err = s.encodeLines(verdicts)
	default:
		return "", fmt.Errorf("unsupported verdict format: %s", s.format)
	}
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, fmt.Sprintf("%s_%s%s", s.prefix, time.Now().Format(timestampLayout), ext))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write verdicts file %s: %w", path, err)
	}

	s.logger.Info("Saved verdict batch",
		zap.String("path", path),
		zap.Int("count", len(verdicts)))

	return path, nil
}

// encodeResults serializes a batch as a single results document
func (s *Store) encodeResults(verdicts []core.Verdict) ([]byte, error) {
	doc := struct {
		Results []fileVerdict `json:"results"`
	}{Results: make([]fileVerdict, 0, len(verdicts))}

	for _, verdict := range verdicts {
		doc.Results = append(doc.Results, fileVerdict{
			UID:        verdict.UID,
			Prediction: s.labelToCode(verdict.Label),
			Confidence: verdict.Confidence,
			Message:    verdict.Message,
		})
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode verdicts: %w", err)
	}
	return data, nil
}

// encodeLines serializes a batch as newline delimited records in the batch
// response shape, one object per verdict
func (s *Store) encodeLines(verdicts []core.Verdict) ([]byte, error) {
	var buf bytes.Buffer
	for _, verdict := range verdicts {
		line := batchLine{
			CustomID: "email_" + verdict.UID,
			Response: batchResponse{
				Body: batchBody{
					Choices: []batchChoice{
						{Message: batchMessage{Content: strconv.Itoa(s.labelToCode(verdict.Label))}},
					},
				},
			},
		}
		data, err := json.Marshal(line)
		if err != nil {
			return nil, fmt.Errorf("failed to encode verdict %s: %w", verdict.UID, err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// LoadLatest reads back the most recently written batch as a uid keyed
// mapping. No stored batch yields an empty mapping, not an error.
func (s *Store) LoadLatest() (map[string]core.Verdict, error) {
	pattern := filepath.Join(s.dir, s.prefix+"_*")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to scan verdicts directory: %w", err)
	}

	if len(matches) == 0 {
		s.logger.Warn("No verdict files found", zap.String("pattern", pattern))
		return map[string]core.Verdict{}, nil
	}

	latest := ""
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
		s.logger.Warn("No readable verdict files found", zap.String("pattern", pattern))
		return map[string]core.Verdict{}, nil
	}

	s.logger.Info("Loading verdicts from latest file", zap.String("path", latest))

	data, err := os.ReadFile(latest)
	if err != nil {
		return nil, &core.ParseError{Path: latest, Err: err}
	}

	verdicts, err := s.parse(data)
	if err != nil {
		return nil, &core.ParseError{Path: latest, Err: err}
	}

	s.logger.Info("Loaded verdict batch",
		zap.String("path", latest),
		zap.Int("count", len(verdicts)))

	return verdicts, nil
}

// parse recovers the uid keyed verdict mapping from one stored batch,
// trying each known schema variant in turn
func (s *Store) parse(data []byte) (map[string]core.Verdict, error) {
	if verdicts, matched := s.parseBatchLines(data); matched {
		return verdicts, nil
	}

	var object map[string]json.RawMessage
	if err := json.Unmarshal(data, &object); err != nil {
		// A bare top level array of verdict objects
		var entries []fileVerdict
		if err := json.Unmarshal(data, &entries); err == nil {
			return s.collectEntries(entries), nil
		}
		return nil, fmt.Errorf("no known schema variant matched: %w", err)
	}

	if raw, ok := object["results"]; ok {
		var entries []fileVerdict
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, fmt.Errorf("malformed results array: %w", err)
		}
		return s.collectEntries(entries), nil
	}

	if raw, ok := object["predictions"]; ok {
		var entries map[string]json.RawMessage
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, fmt.Errorf("malformed predictions mapping: %w", err)
		}
		return s.collectMap(entries)
	}

	// Direct mapping from id to verdict object
	return s.collectMap(object)
}

// parseBatchLines recovers verdicts from newline delimited batch response
// records. The variant matches when at least one line carries a custom_id.
func (s *Store) parseBatchLines(data []byte) (map[string]core.Verdict, bool) {
	verdicts := make(map[string]core.Verdict)
	matched := false

	for _, rawLine := range bytes.Split(data, []byte("\n")) {
		line := bytes.TrimSpace(rawLine)
		if len(line) == 0 {
			continue
		}

		var record struct {
			CustomID string          `json:"custom_id"`
			Response json.RawMessage `json:"response"`
		}
		if err := json.Unmarshal(line, &record); err != nil || record.CustomID == "" || len(record.Response) == 0 {
			continue
		}
		matched = true

		uid := strings.TrimPrefix(record.CustomID, "email_")

		var response batchResponse
		if err := json.Unmarshal(record.Response, &response); err != nil {
			s.logger.Error("Skipping malformed batch response",
				zap.String("uid", uid), zap.Error(err))
			continue
		}
		if len(response.Body.Choices) == 0 {
			s.logger.Error("Skipping batch response without choices", zap.String("uid", uid))
			continue
		}

		content := strings.Trim(strings.TrimSpace(response.Body.Choices[0].Message.Content), `"`)
		code, err := strconv.Atoi(content)
		if err != nil {
			s.logger.Error("Skipping unparseable prediction value",
				zap.String("uid", uid), zap.String("content", content))
			continue
		}

		verdicts[uid] = core.Verdict{
			UID:        uid,
			Label:      s.codeToLabel(code),
			Confidence: 1.0,
			Message:    fmt.Sprintf("Prediction %d from batch response", code),
		}
	}

	return verdicts, matched
}

// collectEntries converts a results array into the verdict mapping,
// skipping entries without an id
func (s *Store) collectEntries(entries []fileVerdict) map[string]core.Verdict {
	verdicts := make(map[string]core.Verdict, len(entries))
	for _, entry := range entries {
		uid := strings.TrimPrefix(entry.UID, "email_")
		if uid == "" {
			s.logger.Error("Skipping verdict entry without id")
			continue
		}
		verdicts[uid] = core.Verdict{
			UID:        uid,
			Label:      s.codeToLabel(entry.Prediction),
			Confidence: entry.Confidence,
			Message:    entry.Message,
		}
	}
	return verdicts
}

// collectMap converts an id keyed object into the verdict mapping. A non
// empty object where no value is verdict shaped matches no variant.
func (s *Store) collectMap(object map[string]json.RawMessage) (map[string]core.Verdict, error) {
	verdicts := make(map[string]core.Verdict, len(object))
	skipped := 0

	for key, raw := range object {
		var entry struct {
			Prediction *int    `json:"prediction"`
			Confidence float64 `json:"confidence"`
			Message    string  `json:"message"`
		}
		if err := json.Unmarshal(raw, &entry); err != nil || entry.Prediction == nil {
			s.logger.Error("Skipping entry without prediction", zap.String("uid", key))
			skipped++
			continue
		}

		uid := strings.TrimPrefix(key, "email_")
		verdicts[uid] = core.Verdict{
			UID:        uid,
			Label:      s.codeToLabel(*entry.Prediction),
			Confidence: entry.Confidence,
			Message:    entry.Message,
		}
	}

	if len(verdicts) == 0 && skipped > 0 {
		return nil, fmt.Errorf("no known schema variant matched")
	}
	return verdicts, nil
}

// labelToCode maps a verdict label onto its signed wire value
func (s *Store) labelToCode(label core.Label) int {
	switch label {
	case core.LabelPhishing:
		return 1
	case core.LabelLegitimate:
		return 0
	default:
		return s.suspiciousCode
	}
}

// codeToLabel maps a signed wire value back onto a verdict label. The
// configured suspicious code wins over the legitimate zero when they clash,
// and -1 never means anything else under either convention.
func (s *Store) codeToLabel(code int) core.Label {
	if code == s.suspiciousCode || code == -1 {
		return core.LabelSuspicious
	}
	switch code {
	case 1:
		return core.LabelPhishing
	case 0:
		return core.LabelLegitimate
	default:
		return core.LabelUnknown
	}
}
