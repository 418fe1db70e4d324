package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keySearchMode          = "search.mode"
	keySearchLimit         = "search.limit"
	keySearchDebounce      = "search.debounce_ms"
	keySearchThreshold     = "search.semantic_threshold"
	keySearchCaseSensitive = "search.case_sensitive"
	keySearchSnippetRadius = "search.snippet_radius"
	keyEmbedProvider       = "embedding.provider"
	keyEmbedModel          = "embedding.model"
	keyEmbedBaseURL        = "embedding.base_url"
	keyEmbedAPIKey         = "embedding.api_key"
	keyEmbedRateLimit      = "embedding.rate_limit"
	keyLogsProjectsDir     = "logs.projects_dir"
	keyLogsDetailed        = "logs.detailed"
	keyExportDir           = "export.dir"
	keyExportFormat        = "export.format"
)

// defaultOllamaURL is used when a local provider has no base URL.
const defaultOllamaURL = "http://localhost:11434"

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Search: domain.SearchSettings{
			Mode:              s.getSearchMode(defaults.Search.Mode),
			Limit:             s.getInt(keySearchLimit, defaults.Search.Limit),
			Debounce:          s.getDebounce(defaults.Search.Debounce),
			SemanticThreshold: s.getFloat(keySearchThreshold, defaults.Search.SemanticThreshold),
			CaseSensitive:     s.getBool(keySearchCaseSensitive, defaults.Search.CaseSensitive),
			SnippetRadius:     s.getInt(keySearchSnippetRadius, defaults.Search.SnippetRadius),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:  s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:     s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:   s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:    s.configStore.GetString(keyEmbedAPIKey),
			RateLimit: s.getFloat(keyEmbedRateLimit, defaults.Embedding.RateLimit),
		},
		Logs: domain.LogSettings{
			ProjectsDir: s.configStore.GetString(keyLogsProjectsDir),
			Detailed:    s.getBool(keyLogsDetailed, defaults.Logs.Detailed),
		},
		Export: domain.ExportSettings{
			Dir:    s.configStore.GetString(keyExportDir),
			Format: s.getExportFormat(defaults.Export.Format),
		},
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keySearchMode, settings.Search.Mode.String()},
		{keySearchLimit, settings.Search.Limit},
		{keySearchDebounce, int(settings.Search.Debounce / time.Millisecond)},
		{keySearchThreshold, settings.Search.SemanticThreshold},
		{keySearchCaseSensitive, settings.Search.CaseSensitive},
		{keySearchSnippetRadius, settings.Search.SnippetRadius},
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedRateLimit, settings.Embedding.RateLimit},
		{keyLogsProjectsDir, settings.Logs.ProjectsDir},
		{keyLogsDetailed, settings.Logs.Detailed},
		{keyExportDir, settings.Export.Dir},
		{keyExportFormat, settings.Export.Format.String()},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	if settings.Embedding.APIKey != "" {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save embedding api_key: %w", err)
		}
	}
	return nil
}

// SetSearchMode updates the default search mode.
func (s *SettingsService) SetSearchMode(mode domain.SearchMode) error {
	if !mode.IsValid() {
		return fmt.Errorf("%w: invalid search mode: %s", domain.ErrInvalidInput, mode)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	settings.Search.Mode = mode
	return s.Save(settings)
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid embedding provider: %s", domain.ErrInvalidInput, provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.Embedding.Model = model
	} else if defaultModel, ok := domain.DefaultEmbeddingModels()[provider]; ok {
		settings.Embedding.Model = defaultModel
	}

	switch provider {
	case domain.AIProviderOllama:
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = defaultOllamaURL
		}
	default:
		// OpenAI uses its public endpoint and fastembed runs in-process.
		settings.Embedding.BaseURL = ""
	}

	settings.Embedding.APIKey = apiKey
	return s.Save(settings)
}

// SetValue sets a single configuration key from its string form.
// Known keys are parsed and validated; unknown keys are rejected.
func (s *SettingsService) SetValue(key, value string) error {
	key = strings.ToLower(strings.TrimSpace(key))
	value = strings.TrimSpace(value)

	var parsed any
	switch key {
	case keySearchMode:
		mode, ok := domain.ParseSearchMode(value)
		if !ok {
			return fmt.Errorf("%w: invalid search mode: %s", domain.ErrInvalidInput, value)
		}
		parsed = mode.String()
	case keyEmbedProvider:
		p := domain.AIProvider(strings.ToLower(value))
		if value != "" && !p.IsValid() {
			return fmt.Errorf("%w: invalid embedding provider: %s", domain.ErrInvalidInput, value)
		}
		parsed = p.String()
	case keyExportFormat:
		f, err := domain.ParseExportFormat(value)
		if err != nil {
			return err
		}
		parsed = f.String()
	case keySearchLimit, keySearchDebounce, keySearchSnippetRadius:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: %s must be a non-negative integer", domain.ErrInvalidInput, key)
		}
		parsed = n
	case keySearchThreshold:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < -1 || f > 1 {
			return fmt.Errorf("%w: %s must be between -1 and 1", domain.ErrInvalidInput, key)
		}
		parsed = f
	case keyEmbedRateLimit:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("%w: %s must be a non-negative number", domain.ErrInvalidInput, key)
		}
		parsed = f
	case keySearchCaseSensitive, keyLogsDetailed:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be true or false", domain.ErrInvalidInput, key)
		}
		parsed = b
	case keyEmbedModel, keyEmbedBaseURL, keyEmbedAPIKey, keyLogsProjectsDir, keyExportDir:
		parsed = value
	default:
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Keys lists the settable configuration keys.
func (s *SettingsService) Keys() []string {
	return []string{
		keySearchMode, keySearchLimit, keySearchDebounce, keySearchThreshold, keySearchCaseSensitive,
		keySearchSnippetRadius,
		keyEmbedProvider, keyEmbedModel, keyEmbedBaseURL, keyEmbedAPIKey, keyEmbedRateLimit,
		keyLogsProjectsDir, keyLogsDetailed, keyExportDir, keyExportFormat,
	}
}

// Validate checks if current settings are valid for the configured mode.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if !settings.Search.Mode.IsValid() {
		return fmt.Errorf("%w: invalid search mode: %s", domain.ErrInvalidInput, settings.Search.Mode)
	}

	if settings.Search.Mode.RequiresEmbedding() && !settings.Embedding.IsConfigured() {
		return fmt.Errorf(
			"%w: search mode %q requires embedding provider to be configured",
			domain.ErrInvalidInput, settings.Search.Mode.Description(),
		)
	}

	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getDebounce(defaultVal time.Duration) time.Duration {
	ms := s.configStore.GetInt(keySearchDebounce)
	if ms <= 0 {
		return defaultVal
	}
	return time.Duration(ms) * time.Millisecond
}

func (s *SettingsService) getSearchMode(defaultVal domain.SearchMode) domain.SearchMode {
	mode, ok := domain.ParseSearchMode(s.configStore.GetString(keySearchMode))
	if !ok {
		return defaultVal
	}
	return mode
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getExportFormat(defaultVal domain.ExportFormat) domain.ExportFormat {
	f, err := domain.ParseExportFormat(s.configStore.GetString(keyExportFormat))
	if err != nil {
		return defaultVal
	}
	return f
}
