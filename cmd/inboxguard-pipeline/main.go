package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/inboxguard/inboxguard/internal/adapters/notify"
	"github.com/inboxguard/inboxguard/internal/allowlist"
	"github.com/inboxguard/inboxguard/internal/config"
	"github.com/inboxguard/inboxguard/internal/core"
	"github.com/inboxguard/inboxguard/internal/factory"
	"github.com/inboxguard/inboxguard/internal/logging"
	"github.com/inboxguard/inboxguard/internal/utils"
)

var (
	// Pipeline flags
	stage      = flag.String("stage", "all", "Pipeline stage to run (extract, classify, act, all)")
	configFile = flag.String("config", "", "Path to config file (overrides command line flags)")

	// Scoring oracle flags
	provider    = flag.String("provider", "openai", "Scoring oracle provider (openai, gemini, bedrock)")
	maxTokens   = flag.Int("max-tokens", 256, "Maximum tokens for the oracle response")
	temperature = flag.Float64("temperature", 0.0, "Temperature for oracle generation")
	topP        = flag.Float64("top-p", 0.9, "Top-p for oracle generation")
	maxBodySize = flag.Int("max-body-size", 4096, "Maximum email body size to send to the oracle")

	// OpenAI flags
	openaiAPIKey    = flag.String("openai-api-key", "", "API key for OpenAI")
	openaiModelName = flag.String("openai-model", "gpt-4o-mini", "OpenAI model name")

	// Gemini flags
	geminiAPIKey    = flag.String("gemini-api-key", "", "API key for Google Gemini")
	geminiModelName = flag.String("gemini-model", "gemini-pro", "Gemini model name")

	// Bedrock flags
	bedrockRegion  = flag.String("bedrock-region", "us-east-1", "AWS region for Bedrock")
	bedrockModelID = flag.String("bedrock-model", "anthropic.claude-v2", "Bedrock model ID")

	// IMAP flags
	imapServer   = flag.String("imap-server", "imap.gmail.com", "IMAP server hostname")
	imapPort     = flag.Int("imap-port", 993, "IMAP server port")
	imapUsername = flag.String("imap-username", "", "IMAP account username")
	imapPassword = flag.String("imap-password", "", "IMAP account password")
	imapFolder   = flag.String("imap-folder", "INBOX", "IMAP folder to operate on")

	// Extraction flags
	maxCount  = flag.Int("max-count", 10, "Maximum number of recent messages to extract")
	outputDir = flag.String("output-dir", "./extracted", "Directory for extracted batches")

	// Classifier flags
	threshold      = flag.Float64("threshold", 0.7, "Confidence threshold for classification")
	trustedDomains = flag.String("trusted-domains", "", "Comma-separated list of trusted sender domains")

	// Verdict store flags
	verdictsDir    = flag.String("verdicts-dir", "./results", "Directory for verdict files")
	verdictsFormat = flag.String("verdicts-format", "json", "Verdict file format (json, jsonl)")

	// Action flags
	strategyName = flag.String("strategy", "label-move", "Action strategy (label-move, destructive, quarantine)")

	// Logging flags
	verbose = flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog = flag.Bool("json-log", false, "Output logs in JSON format")
)

func main() {
	flag.Parse()

	// Initialize logger
	logger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Load configuration from file if specified
	var cfg *config.Config
	if *configFile != "" {
		cfg, err = config.NewFromFile(*configFile)
		if err != nil {
			logger.Error("Failed to load configuration", zap.Error(err))
			os.Exit(1)
		}
		logger.Info("Loaded configuration from file", zap.String("file", *configFile))
	} else {
		// Create config from command line flags
		cfg = createConfigFromFlags()
	}

	if err := runPipeline(context.Background(), cfg, logger, *stage); err != nil {
		logger.Error("Pipeline failed", zap.Error(err))
		os.Exit(1)
	}
}

// runPipeline sequences the requested stages. Stage boundaries go through
// the batch and verdict files, so a single stage run picks up where the
// previous process left off.
func runPipeline(ctx context.Context, cfg *config.Config, logger *zap.Logger, stage string) error {
	runExtract := stage == "all" || stage == "extract"
	runClassify := stage == "all" || stage == "classify"
	runAct := stage == "all" || stage == "act"
	if !runExtract && !runClassify && !runAct {
		return fmt.Errorf("unknown stage: %s", stage)
	}

	var report []string

	// One mail store connection serves both the extract and act stages
	var store core.MailStore
	if runExtract || runAct {
		var err error
		store, err = factory.NewMailStoreFactory(cfg, logger).CreateMailStore()
		if err != nil {
			return err
		}
		defer store.Close()
	}

	extractCfg := cfg.GetExtract()
	verdictStore := factory.NewVerdictStoreFactory(cfg, logger).CreateVerdictStore()

	var records []core.EmailRecord
	if runExtract {
		extractor := core.NewExtractorService(store, logger, extractCfg.OutputDir, extractCfg.OutputPrefix)
		var path string
		var err error
		records, path, err = extractor.Run(ctx, cfg.GetIMAP().Folder, extractCfg.MaxCount)
		if err != nil {
			return fmt.Errorf("extract stage failed: %w", err)
		}
		report = append(report, fmt.Sprintf("extracted %d messages to %s", len(records), path))
	}

	if runClassify {
		// A standalone classify run loads the newest extracted batch
		if records == nil {
			var path string
			var err error
			records, path, err = core.LoadLatestBatch(extractCfg.OutputDir, extractCfg.OutputPrefix)
			if err != nil {
				return fmt.Errorf("classify stage failed: %w", err)
			}
			logger.Info("Loaded extracted batch",
				zap.String("path", path),
				zap.Int("count", len(records)))
		}

		summary, path, err := classifyRecords(ctx, cfg, logger, records, verdictStore)
		if err != nil {
			return fmt.Errorf("classify stage failed: %w", err)
		}
		report = append(report, fmt.Sprintf(
			"classified %d messages: %d phishing, %d legitimate, %d suspicious (verdicts in %s)",
			summary.Total, summary.Phishing, summary.Legitimate, summary.Suspicious, path))
	}

	if runAct {
		actionService, err := factory.NewActionFactory(cfg, logger).CreateActionService(store)
		if err != nil {
			return fmt.Errorf("act stage failed: %w", err)
		}
		result, err := actionService.Run(ctx, verdictStore)
		if err != nil {
			return fmt.Errorf("act stage failed: %w", err)
		}
		report = append(report, fmt.Sprintf(
			"applied actions to %d messages: %d succeeded, %d failed",
			len(result.Applied), result.Succeeded, result.Failed))
	}

	sendReport(ctx, cfg, logger, report)
	return nil
}

// classifyRecords scores one batch and persists the verdicts
func classifyRecords(
	ctx context.Context,
	cfg *config.Config,
	logger *zap.Logger,
	records []core.EmailRecord,
	verdictStore core.VerdictStore,
) (core.BatchSummary, string, error) {
	textProcessor := utils.NewTextProcessor(logger)

	oracle, err := factory.NewOracleFactory(cfg, logger, textProcessor).CreateScoringOracle()
	if err != nil {
		return core.BatchSummary{}, "", err
	}
	defer func() {
		if closer, ok := oracle.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				logger.Error("Failed to close scoring oracle", zap.Error(err))
			}
		}
	}()

	verdictCache, err := factory.NewCacheFactory(cfg, logger).CreateVerdictCache()
	if err != nil {
		return core.BatchSummary{}, "", err
	}
	defer func() {
		if stopper, ok := verdictCache.(interface{ Stop() }); ok {
			stopper.Stop()
		}
	}()

	trusted := allowlist.NewChecker(cfg.GetClassifier().TrustedDomains, logger)

	classifier, err := factory.NewClassifierFactory(cfg, logger).CreateClassifier(oracle, verdictCache, trusted)
	if err != nil {
		return core.BatchSummary{}, "", err
	}

	verdicts, err := classifier.ClassifyBatch(ctx, records)
	if err != nil {
		return core.BatchSummary{}, "", err
	}

	path, err := verdictStore.Save(verdicts)
	if err != nil {
		return core.BatchSummary{}, "", err
	}

	summary := classifier.Summarize(verdicts)
	logger.Info("Classification complete",
		zap.Int("total", summary.Total),
		zap.Int("phishing", summary.Phishing),
		zap.Int("legitimate", summary.Legitimate),
		zap.Int("suspicious", summary.Suspicious),
		zap.String("verdicts", path))
	return summary, path, nil
}

// sendReport mails the run report when notifications are enabled.
// Delivery failures never fail the run.
func sendReport(ctx context.Context, cfg *config.Config, logger *zap.Logger, report []string) {
	notifyCfg := cfg.GetNotify()
	if !notifyCfg.Enabled || len(report) == 0 {
		return
	}

	notifier := notify.NewSMTPNotifier(notifyCfg, logger)
	if err := notifier.Notify(ctx, "InboxGuard run report", strings.Join(report, "\n")); err != nil {
		logger.Warn("Failed to send run report", zap.Error(err))
	}
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags() *config.Config {
	v := config.NewEmptyViper()

	// Set oracle provider
	v.Set("oracle.provider", *provider)

	// Set provider-specific configuration
	switch *provider {
	case "openai":
		v.Set("openai.api_key", *openaiAPIKey)
		v.Set("openai.model_name", *openaiModelName)
		v.Set("openai.max_tokens", *maxTokens)
		v.Set("openai.temperature", *temperature)
		v.Set("openai.top_p", *topP)
		v.Set("openai.max_body_size", *maxBodySize)
	case "gemini":
		v.Set("gemini.api_key", *geminiAPIKey)
		v.Set("gemini.model_name", *geminiModelName)
		v.Set("gemini.max_tokens", *maxTokens)
		v.Set("gemini.temperature", *temperature)
		v.Set("gemini.top_p", *topP)
		v.Set("gemini.max_body_size", *maxBodySize)
	case "bedrock":
		v.Set("bedrock.region", *bedrockRegion)
		v.Set("bedrock.model_id", *bedrockModelID)
		v.Set("bedrock.max_tokens", *maxTokens)
		v.Set("bedrock.temperature", *temperature)
		v.Set("bedrock.top_p", *topP)
		v.Set("bedrock.max_body_size", *maxBodySize)
	}

	// Set IMAP connection settings
	v.Set("imap.server", *imapServer)
	v.Set("imap.port", *imapPort)
	v.Set("imap.username", *imapUsername)
	v.Set("imap.password", *imapPassword)
	v.Set("imap.folder", *imapFolder)

	// Set stage settings
	v.Set("extract.max_count", *maxCount)
	v.Set("extract.output_dir", *outputDir)
	v.Set("classifier.threshold", *threshold)
	v.Set("verdicts.dir", *verdictsDir)
	v.Set("verdicts.format", *verdictsFormat)
	v.Set("actions.strategy", *strategyName)

	// Set trusted domains
	if *trustedDomains != "" {
		domains := strings.Split(*trustedDomains, ",")
		for i, domain := range domains {
			domains[i] = strings.TrimSpace(domain)
		}
		v.Set("classifier.trusted_domains", domains)
	}

	return config.NewFromViper(v)
}
