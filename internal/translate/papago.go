package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"lecnote/internal/logger"
	"lecnote/internal/types"
)

// DefaultPapagoURL is the Papago NMT endpoint.
const DefaultPapagoURL = "https://openapi.naver.com/v1/papago/n2mt"

// PapagoConfig configures a PapagoClient.
type PapagoConfig struct {
	URL          string
	ClientID     string
	ClientSecret string
	Source       string
	Target       string
	// Timeout of zero leaves the transport defaults in place.
	Timeout time.Duration
}

// PapagoClient calls the Naver Papago translation API. It does not retry.
type PapagoClient struct {
	cfg    PapagoConfig
	client *http.Client
	log    logger.Logger
}

type papagoRequest struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Text   string `json:"text"`
}

type papagoResponse struct {
	Message struct {
		Result struct {
			SrcLangType    string `json:"srcLangType"`
			TarLangType    string `json:"tarLangType"`
			TranslatedText string `json:"translatedText"`
		} `json:"result"`
	} `json:"message"`
}

func NewPapagoClient(cfg PapagoConfig) *PapagoClient {
	if cfg.URL == "" {
		cfg.URL = DefaultPapagoURL
	}
	if cfg.Source == "" {
		cfg.Source = "en"
	}
	if cfg.Target == "" {
		cfg.Target = "ko"
	}
	return &PapagoClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    logger.With(logger.Component("papago")),
	}
}

func (c *PapagoClient) Translate(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(papagoRequest{Source: c.cfg.Source, Target: c.cfg.Target, Text: text})
	if err != nil {
		return "", types.NewAppError(types.ErrInternal, "failed to marshal request body", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return "", types.NewAppError(types.ErrInternal, "failed to create HTTP request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Naver-Client-Id", c.cfg.ClientID)
	req.Header.Set("X-Naver-Client-Secret", c.cfg.ClientSecret)

	c.log.Debug("calling papago", logger.Int("textLength", len(text)))
	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Error("papago request failed", err)
		return "", types.NewAppError(types.ErrNetwork, "API request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", types.NewAppError(types.ErrNetwork, "failed to read API response", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.log.Error("papago returned error status", nil, logger.Int("statusCode", resp.StatusCode))
		return "", handleAPIHTTPError(resp.StatusCode, respBody)
	}

	var parsed papagoResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", types.NewAppError(types.ErrAPICall, "failed to parse API response", err)
	}
	translated := parsed.Message.Result.TranslatedText
	if translated == "" && text != "" {
		return "", types.NewAppError(types.ErrTranslation, "API returned no translation", nil)
	}
	return translated, nil
}

func timeoutOf(cfg *types.Config) time.Duration {
	return time.Duration(cfg.UpstreamTimeoutSec) * time.Second
}
