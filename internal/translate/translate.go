// Package translate talks to the machine translation providers.
package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"lecnote/internal/types"
)

// Translator turns source-language text into target-language text. The
// language pair is fixed when the Translator is built.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

const (
	ProviderPapago = "papago"
	ProviderOpenAI = "openai"
)

// New builds the Translator selected by cfg.Provider. Missing credentials
// are a configuration error.
func New(ctx context.Context, cfg *types.Config) (Translator, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderPapago:
		if cfg.PapagoClientID == "" || cfg.PapagoClientSecret == "" {
			return nil, types.NewAppErrorWithDetails(types.ErrConfig, "papago credentials are not configured",
				"set NAVER_CLIENT_ID and NAVER_CLIENT_SECRET", nil)
		}
		return NewPapagoClient(PapagoConfig{
			URL:          cfg.PapagoURL,
			ClientID:     cfg.PapagoClientID,
			ClientSecret: cfg.PapagoClientSecret,
			Source:       cfg.SourceLang,
			Target:       cfg.TargetLang,
			Timeout:      timeoutOf(cfg),
		}), nil
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, types.NewAppErrorWithDetails(types.ErrConfig, "OpenAI API key is not configured",
				"set OPENAI_API_KEY", nil)
		}
		return NewLLMTranslator(ctx, LLMConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
			Source:  cfg.SourceLang,
			Target:  cfg.TargetLang,
			Timeout: timeoutOf(cfg),
		})
	default:
		return nil, types.NewAppErrorWithDetails(types.ErrConfig, "unknown translation provider", cfg.Provider, nil)
	}
}

// handleAPIHTTPError maps a non-200 provider response to an AppError.
func handleAPIHTTPError(statusCode int, body []byte) error {
	// Papago reports {errorMessage, errorCode}; OpenAI-style APIs {error:{message}}.
	var errResp struct {
		ErrorMessage string `json:"errorMessage"`
		Error        struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	details := ""
	if err := json.Unmarshal(body, &errResp); err == nil {
		details = errResp.ErrorMessage
		if details == "" {
			details = errResp.Error.Message
		}
	}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return types.NewAppErrorWithDetails(types.ErrAPICall, "API authentication failed",
			"invalid client credentials", nil)
	case http.StatusTooManyRequests:
		return types.NewAppErrorWithDetails(types.ErrAPIRateLimit, "API rate limit exceeded", details, nil)
	case http.StatusBadRequest:
		return types.NewAppErrorWithDetails(types.ErrAPICall, "invalid API request", details, nil)
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return types.NewAppErrorWithDetails(types.ErrAPICall, "API server error",
			fmt.Sprintf("status %d: %s", statusCode, details), nil)
	default:
		return types.NewAppErrorWithDetails(types.ErrAPICall, "API request failed",
			fmt.Sprintf("status %d: %s", statusCode, details), nil)
	}
}
