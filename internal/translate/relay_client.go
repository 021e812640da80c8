package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"lecnote/internal/logger"
	"lecnote/internal/types"
)

// TranslateRequest is the relay's request body.
type TranslateRequest struct {
	Text string `json:"text"`
}

// TranslateResponse is the relay's success body.
type TranslateResponse struct {
	TranslatedText string `json:"translatedText"`
}

// RelayClient is the desktop side of POST /translate.
type RelayClient struct {
	baseURL string
	client  *http.Client
	log     logger.Logger
}

// NewRelayClient targets the relay at baseURL. It uses the default HTTP
// client, so there is no timeout beyond the transport's own.
func NewRelayClient(baseURL string) *RelayClient {
	return &RelayClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  http.DefaultClient,
		log:     logger.With(logger.Component("relay-client")),
	}
}

func (c *RelayClient) BaseURL() string { return c.baseURL }

// Do posts text to the relay and returns the translation or an error.
func (c *RelayClient) Do(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(TranslateRequest{Text: text})
	if err != nil {
		return "", types.NewAppError(types.ErrInternal, "failed to marshal request body", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/translate", bytes.NewReader(body))
	if err != nil {
		return "", types.NewAppError(types.ErrInternal, "failed to create HTTP request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", types.NewAppError(types.ErrNetwork, "relay request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", types.NewAppError(types.ErrNetwork, "failed to read relay response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", types.NewAppErrorWithDetails(types.ErrTranslation, "relay returned an error",
			strings.TrimSpace(string(respBody)), nil)
	}

	var parsed TranslateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", types.NewAppError(types.ErrTranslation, "failed to parse relay response", err)
	}
	return parsed.TranslatedText, nil
}

// Translate returns the translation, or "" after logging if anything fails.
// Callers treat "" as "leave the text as it is".
func (c *RelayClient) Translate(ctx context.Context, text string) string {
	out, err := c.Do(ctx, text)
	if err != nil {
		c.log.Error("error during translation request", err, logger.Int("textLength", len(text)))
		return ""
	}
	return out
}
