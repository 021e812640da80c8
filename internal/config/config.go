// Package config loads and saves lecnote configuration.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"lecnote/internal/logger"
	"lecnote/internal/types"
)

const (
	// DefaultConfigFileName is the file name under ~/.config/lecnote.
	DefaultConfigFileName = "lecnote-config.json"

	EnvPapagoClientID     = "NAVER_CLIENT_ID"
	EnvPapagoClientSecret = "NAVER_CLIENT_SECRET"
	EnvOpenAIAPIKey       = "OPENAI_API_KEY"
	EnvOpenAIBaseURL      = "OPENAI_BASE_URL"
	// EnvPort overrides the relay port, as the original express server did.
	EnvPort = "PORT"

	ProviderPapago = "papago"
	ProviderOpenAI = "openai"

	DefaultRelayAddr           = ":5000"
	DefaultRelayURL            = "http://localhost:5000"
	DefaultProvider            = ProviderPapago
	DefaultPapagoURL           = "https://openapi.naver.com/v1/papago/n2mt"
	DefaultSourceLang          = "en"
	DefaultTargetLang          = "ko"
	DefaultOpenAIBaseURL       = "https://api.openai.com/v1"
	DefaultOpenAIModel         = "gpt-4o-mini"
	DefaultUpstreamTimeout     = 30
	DefaultRecognitionLanguage = "ko-KR"
	DefaultChunkWords          = 10
	// DefaultRasterDPI renders pages at scale 1.5 of the 72 dpi PDF space.
	DefaultRasterDPI = 108
	DefaultLogFile   = "lecnote.log"
	DefaultLogLevel  = "info"
)

// ConfigManager owns the configuration file. It is safe for concurrent use.
type ConfigManager struct {
	mu         sync.RWMutex
	configPath string
	config     *types.Config
}

// NewConfigManager uses configPath, or ~/.config/lecnote/lecnote-config.json if empty.
func NewConfigManager(configPath string) (*ConfigManager, error) {
	if configPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			logger.Error("failed to get user home directory", err)
			return nil, types.NewAppError(types.ErrConfig, "failed to get user home directory", err)
		}
		configPath = filepath.Join(homeDir, ".config", "lecnote", DefaultConfigFileName)
	}

	logger.Debug("ConfigManager initialized", logger.String("configPath", configPath))
	return &ConfigManager{
		configPath: configPath,
		config:     defaultConfig(),
	}, nil
}

func defaultConfig() *types.Config {
	return &types.Config{
		RelayAddr:           DefaultRelayAddr,
		RelayURL:            DefaultRelayURL,
		Provider:            DefaultProvider,
		PapagoURL:           DefaultPapagoURL,
		SourceLang:          DefaultSourceLang,
		TargetLang:          DefaultTargetLang,
		OpenAIBaseURL:       DefaultOpenAIBaseURL,
		OpenAIModel:         DefaultOpenAIModel,
		UpstreamTimeoutSec:  DefaultUpstreamTimeout,
		RecognitionLanguage: DefaultRecognitionLanguage,
		ChunkWords:          DefaultChunkWords,
		RasterDPI:           DefaultRasterDPI,
		LogFile:             DefaultLogFile,
		LogLevel:            DefaultLogLevel,
	}
}

// Load reads the config file. A missing or malformed file yields defaults;
// only an unreadable file is an error. Empty fields are backfilled and
// credentials are taken from the environment when the file has none.
func (m *ConfigManager) Load() error {
	logger.Debug("loading configuration", logger.String("path", m.configPath))

	var cfg *types.Config
	data, err := os.ReadFile(m.configPath)
	switch {
	case os.IsNotExist(err):
		logger.Info("config file not found, using defaults", logger.String("path", m.configPath))
		cfg = defaultConfig()
	case err != nil:
		logger.Error("failed to read config file", err, logger.String("path", m.configPath))
		return types.NewAppError(types.ErrConfig, "failed to read config file", err)
	default:
		cfg = &types.Config{}
		if err := json.Unmarshal(data, cfg); err != nil {
			logger.Warn("invalid config file format, using defaults", logger.String("path", m.configPath), logger.Err(err))
			cfg = defaultConfig()
		}
	}

	applyDefaults(cfg)
	applyEnv(cfg)

	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()

	logger.Info("configuration loaded",
		logger.String("path", m.configPath),
		logger.String("provider", cfg.Provider),
		logger.String("relayAddr", cfg.RelayAddr),
		logger.Bool("papagoCredentials", cfg.PapagoClientID != "" && cfg.PapagoClientSecret != ""),
		logger.Int("openaiKeyLength", len(cfg.OpenAIAPIKey)))
	return nil
}

func applyDefaults(c *types.Config) {
	d := defaultConfig()
	if c.RelayAddr == "" {
		c.RelayAddr = d.RelayAddr
	}
	if c.RelayURL == "" {
		c.RelayURL = d.RelayURL
	}
	if c.Provider == "" {
		c.Provider = d.Provider
	}
	if c.PapagoURL == "" {
		c.PapagoURL = d.PapagoURL
	}
	if c.SourceLang == "" {
		c.SourceLang = d.SourceLang
	}
	if c.TargetLang == "" {
		c.TargetLang = d.TargetLang
	}
	if c.OpenAIBaseURL == "" {
		c.OpenAIBaseURL = d.OpenAIBaseURL
	}
	if c.OpenAIModel == "" {
		c.OpenAIModel = d.OpenAIModel
	}
	if c.UpstreamTimeoutSec <= 0 {
		c.UpstreamTimeoutSec = d.UpstreamTimeoutSec
	}
	if c.RecognitionLanguage == "" {
		c.RecognitionLanguage = d.RecognitionLanguage
	}
	if c.ChunkWords <= 0 {
		c.ChunkWords = d.ChunkWords
	}
	if c.RasterDPI <= 0 {
		c.RasterDPI = d.RasterDPI
	}
	if c.LogFile == "" {
		c.LogFile = d.LogFile
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
}

// applyEnv fills credentials from the environment. File values win.
func applyEnv(c *types.Config) {
	if c.PapagoClientID == "" {
		c.PapagoClientID = os.Getenv(EnvPapagoClientID)
	}
	if c.PapagoClientSecret == "" {
		c.PapagoClientSecret = os.Getenv(EnvPapagoClientSecret)
	}
	if c.OpenAIAPIKey == "" {
		c.OpenAIAPIKey = os.Getenv(EnvOpenAIAPIKey)
	}
	if v := os.Getenv(EnvOpenAIBaseURL); v != "" && c.OpenAIBaseURL == DefaultOpenAIBaseURL {
		c.OpenAIBaseURL = v
	}
	if port := os.Getenv(EnvPort); port != "" {
		if _, err := strconv.Atoi(port); err == nil {
			c.RelayAddr = ":" + port
		} else {
			logger.Warn("ignoring non-numeric PORT", logger.String("port", port))
		}
	}
}

// Save writes the configuration with owner-only permissions since it may hold credentials.
func (m *ConfigManager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked()
}

func (m *ConfigManager) saveLocked() error {
	dir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Error("failed to create config directory", err, logger.String("dir", dir))
		return types.NewAppError(types.ErrConfig, "failed to create config directory", err)
	}

	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return types.NewAppError(types.ErrConfig, "failed to marshal config", err)
	}

	if err := os.WriteFile(m.configPath, data, 0600); err != nil {
		logger.Error("failed to write config file", err, logger.String("path", m.configPath))
		return types.NewAppError(types.ErrConfig, "failed to write config file", err)
	}

	logger.Info("configuration saved", logger.String("path", m.configPath))
	return nil
}

// GetConfig returns a copy of the configuration. Use SetConfig to change it.
func (m *ConfigManager) GetConfig() *types.Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.config == nil {
		return defaultConfig()
	}
	cfg := *m.config
	return &cfg
}

func (m *ConfigManager) SetConfig(config *types.Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config = config
}

func (m *ConfigManager) GetConfigPath() string {
	return m.configPath
}

// UpstreamTimeout is the HTTP timeout for calls to the translation provider.
func (m *ConfigManager) UpstreamTimeout() time.Duration {
	return time.Duration(m.GetConfig().UpstreamTimeoutSec) * time.Second
}

// SetRecognitionLanguage updates the speech language and saves silently.
func (m *ConfigManager) SetRecognitionLanguage(lang string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.config == nil {
		m.config = defaultConfig()
	}
	m.config.RecognitionLanguage = lang
	if err := m.saveLocked(); err != nil {
		logger.Warn("failed to persist recognition language", logger.Err(err))
	}
}

// LoggerConfig derives the logger settings from the configuration.
func (m *ConfigManager) LoggerConfig(console bool) *logger.Config {
	c := m.GetConfig()
	lc := logger.DefaultConfig()
	lc.LogFilePath = c.LogFile
	lc.Level = logger.ParseLevel(c.LogLevel)
	lc.EnableConsole = console
	return lc
}
