package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/inboxguard/inboxguard/internal/core"
)

// maxUploadBytes caps uploaded batch files
const maxUploadBytes = 10 << 20

// Server exposes phishing classification over HTTP
type Server struct {
	classifier     *core.ClassifierService
	logger         *zap.Logger
	listenAddr     string
	suspiciousCode int
	httpServer     *http.Server
}

// NewServer creates a new HTTP API server
func NewServer(
	classifier *core.ClassifierService,
	logger *zap.Logger,
	listenAddr string,
	suspiciousCode int,
) *Server {
	return &Server{
		classifier:     classifier,
		logger:         logger,
		listenAddr:     listenAddr,
		suspiciousCode: suspiciousCode,
	}
}

// Start starts the HTTP API server
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:        s.listenAddr,
		Handler:     s.router(),
		ReadTimeout: 30 * time.Second,
		// Scoring a full batch through the oracle can take a while
		WriteTimeout: 2 * time.Minute,
	}

	s.logger.Info("Starting HTTP API server", zap.String("address", s.listenAddr))

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP API server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP API server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/detect-phishing-batch", s.handleDetectBatch).Methods(http.MethodPost)
	router.HandleFunc("/detect-phishing-upload-file", s.handleUploadFile).Methods(http.MethodPost)
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	return router
}

// emailPayload is one email object as submitted by API clients. Both the
// "id" and "uid" spellings are accepted so extracted batch files can be
// uploaded unchanged.
type emailPayload struct {
	ID      string `json:"id"`
	UID     string `json:"uid"`
	Sender  string `json:"sender"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (p emailPayload) record() core.EmailRecord {
	uid := p.UID
	if uid == "" {
		uid = p.ID
	}
	return core.EmailRecord{
		UID:     uid,
		Sender:  p.Sender,
		Subject: p.Subject,
		Body:    p.Body,
	}
}

type predictionResult struct {
	ID          string             `json:"id"`
	Prediction  int                `json:"prediction"`
	Confidence  float64            `json:"confidence"`
	Message     string             `json:"message"`
	InputSource core.VerdictSource `json:"input_source"`
}

type batchResponse struct {
	Status  string             `json:"status"`
	Results []predictionResult `json:"results"`
	Summary core.BatchSummary  `json:"summary"`
}

type healthResponse struct {
	Status      string `json:"status"`
	OracleReady bool   `json:"oracle_ready"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleDetectBatch(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("failed to read request body: %w", err))
		return
	}

	emails, err := decodeEmailList(data)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	s.classify(w, r, emails)
}

func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	data, err := s.readUpload(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	emails, err := decodeEmailPayload(data)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	s.classify(w, r, emails)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:      "healthy",
		OracleReady: s.classifier != nil,
	})
}

// classify scores the submitted emails and writes the batch response
func (s *Server) classify(w http.ResponseWriter, r *http.Request, emails []emailPayload) {
	records := make([]core.EmailRecord, len(emails))
	for i, email := range emails {
		records[i] = email.record()
	}

	verdicts, err := s.classifier.ClassifyBatch(r.Context(), records)
	if err != nil {
		s.logger.Error("Batch classification failed", zap.Error(err))
		s.writeError(w, http.StatusBadGateway, fmt.Errorf("classification failed: %w", err))
		return
	}

	results := make([]predictionResult, len(verdicts))
	for i, verdict := range verdicts {
		results[i] = s.result(verdict)
	}

	s.writeJSON(w, http.StatusOK, batchResponse{
		Status:  "success",
		Results: results,
		Summary: s.classifier.Summarize(verdicts),
	})
}

// readUpload returns the uploaded document from either a multipart form
// with a "file" field or a raw JSON request body
func (s *Server) readUpload(r *http.Request) ([]byte, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return nil, fmt.Errorf("failed to parse multipart form: %w", err)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("missing \"file\" form field: %w", err)
		}
		defer file.Close()
		return io.ReadAll(io.LimitReader(file, maxUploadBytes))
	}
	return io.ReadAll(io.LimitReader(r.Body, maxUploadBytes))
}

func (s *Server) result(verdict core.Verdict) predictionResult {
	return predictionResult{
		ID:          verdict.UID,
		Prediction:  s.predictionCode(verdict.Label),
		Confidence:  verdict.Confidence,
		Message:     verdict.Message,
		InputSource: verdict.Source,
	}
}

func (s *Server) predictionCode(label core.Label) int {
	switch label {
	case core.LabelPhishing:
		return 1
	case core.LabelLegitimate:
		return 0
	default:
		return s.suspiciousCode
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

// decodeEmailList accepts an array of email objects or the
// {"emails":[...]} wrapper
func decodeEmailList(data []byte) ([]emailPayload, error) {
	var list []emailPayload
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}

	var wrapper struct {
		Emails []emailPayload `json:"emails"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("invalid JSON payload: %w", err)
	}
	if wrapper.Emails == nil {
		return nil, errors.New("expected an array of emails or an \"emails\" list")
	}
	return wrapper.Emails, nil
}

// decodeEmailPayload accepts everything decodeEmailList does plus one
// bare email object
func decodeEmailPayload(data []byte) ([]emailPayload, error) {
	if list, err := decodeEmailList(data); err == nil {
		return list, nil
	}

	var single emailPayload
	if err := json.Unmarshal(data, &single); err != nil {
		return nil, fmt.Errorf("invalid JSON payload: %w", err)
	}
	return []emailPayload{single}, nil
}
