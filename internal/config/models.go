package config

// OracleConfig represents the configuration for the scoring oracle provider
type OracleConfig struct {
	Provider string
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// IMAPConfig represents the mail store connection settings
type IMAPConfig struct {
	Server   string
	Port     int
	Username string
	Password string
	Folder   string
}

// ExtractConfig represents the extraction stage settings
type ExtractConfig struct {
	MaxCount     int
	OutputDir    string
	OutputPrefix string
}

// ClassifierConfig represents the classification stage settings
type ClassifierConfig struct {
	Threshold      float64
	Workers        int
	TrustedDomains []string
}

// VerdictsConfig represents the verdict store settings
type VerdictsConfig struct {
	Dir            string
	Prefix         string
	Format         string
	SuspiciousCode int
}

// ActionsConfig represents the action stage settings
type ActionsConfig struct {
	Strategy         string
	QuarantineFolder string
}

// ServerConfig represents the HTTP server settings
type ServerConfig struct {
	ListenAddress string
}

// NotifyConfig represents the run report notification settings
type NotifyConfig struct {
	Enabled     bool
	SMTPAddress string
	SMTPPort    int
	From        string
	To          string
}

// GetOracle returns the scoring oracle configuration
func (c *Config) GetOracle() OracleConfig {
	return OracleConfig{
		Provider: c.GetString("oracle.provider"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
		MaxBodySize: c.GetInt("openai.max_body_size"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
		MaxBodySize: c.GetInt("gemini.max_body_size"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
		MaxBodySize: c.GetInt("bedrock.max_body_size"),
	}
}

// GetIMAP returns the mail store configuration
func (c *Config) GetIMAP() IMAPConfig {
	return IMAPConfig{
		Server:   c.GetString("imap.server"),
		Port:     c.GetInt("imap.port"),
		Username: c.GetString("imap.username"),
		Password: c.GetString("imap.password"),
		Folder:   c.GetString("imap.folder"),
	}
}

// GetExtract returns the extraction configuration
func (c *Config) GetExtract() ExtractConfig {
	return ExtractConfig{
		MaxCount:     c.GetInt("extract.max_count"),
		OutputDir:    c.GetString("extract.output_dir"),
		OutputPrefix: c.GetString("extract.output_prefix"),
	}
}

// GetClassifier returns the classifier configuration
func (c *Config) GetClassifier() ClassifierConfig {
	return ClassifierConfig{
		Threshold:      c.GetFloat64("classifier.threshold"),
		Workers:        c.GetInt("classifier.workers"),
		TrustedDomains: c.GetStringSlice("classifier.trusted_domains"),
	}
}

// GetVerdicts returns the verdict store configuration
func (c *Config) GetVerdicts() VerdictsConfig {
	return VerdictsConfig{
		Dir:            c.GetString("verdicts.dir"),
		Prefix:         c.GetString("verdicts.prefix"),
		Format:         c.GetString("verdicts.format"),
		SuspiciousCode: c.GetInt("verdicts.suspicious_code"),
	}
}

// GetActions returns the action stage configuration
func (c *Config) GetActions() ActionsConfig {
	return ActionsConfig{
		Strategy:         c.GetString("actions.strategy"),
		QuarantineFolder: c.GetString("actions.quarantine_folder"),
	}
}

// GetServer returns the HTTP server configuration
func (c *Config) GetServer() ServerConfig {
	return ServerConfig{
		ListenAddress: c.GetString("server.listen_address"),
	}
}

// GetNotify returns the notification configuration
func (c *Config) GetNotify() NotifyConfig {
	return NotifyConfig{
		Enabled:     c.GetBool("notify.enabled"),
		SMTPAddress: c.GetString("notify.smtp_address"),
		SMTPPort:    c.GetInt("notify.smtp_port"),
		From:        c.GetString("notify.from"),
		To:          c.GetString("notify.to"),
	}
}
