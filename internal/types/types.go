// Package types holds the configuration shape and the error type shared by
// every lecnote package.
package types

import "errors"

// Config is the on-disk configuration. Credentials may be left empty and
// supplied through the environment instead.
type Config struct {
	// Relay
	RelayAddr   string `json:"relay_addr"`   // listen address of the translation relay
	RelayURL    string `json:"relay_url"`    // where the desktop shell reaches the relay
	MDNSEnabled bool   `json:"mdns_enabled"` // advertise the relay on the local network

	// Upstream translation
	Provider           string `json:"provider"` // "papago" or "openai"
	PapagoURL          string `json:"papago_url"`
	PapagoClientID     string `json:"papago_client_id"`
	PapagoClientSecret string `json:"papago_client_secret"`
	SourceLang         string `json:"source_lang"`
	TargetLang         string `json:"target_lang"`
	OpenAIAPIKey       string `json:"openai_api_key"`
	OpenAIBaseURL      string `json:"openai_base_url"`
	OpenAIModel        string `json:"openai_model"`
	UpstreamTimeoutSec int    `json:"upstream_timeout_sec"`

	// Speech and segmentation
	RecognitionLanguage string `json:"recognition_language"` // BCP-47, e.g. ko-KR
	ChunkWords          int    `json:"chunk_words"`

	// PDF and export
	RasterDPI     int    `json:"raster_dpi"`
	NotesFontPath string `json:"notes_font_path"` // TTF with CJK coverage for note export

	// Logging
	LogFile  string `json:"log_file"`
	LogLevel string `json:"log_level"`
}

// ErrorCode classifies an AppError.
type ErrorCode string

const (
	ErrNetwork      ErrorCode = "NETWORK_ERROR"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrAPICall      ErrorCode = "API_CALL_ERROR"
	ErrAPIRateLimit ErrorCode = "API_RATE_LIMIT"
	ErrConfig       ErrorCode = "CONFIG_ERROR"
	ErrInternal     ErrorCode = "INTERNAL_ERROR"
	ErrTranslation  ErrorCode = "TRANSLATION_ERROR"
	ErrPDF          ErrorCode = "PDF_ERROR"
	ErrRender       ErrorCode = "RENDER_ERROR"
	ErrNotFound     ErrorCode = "NOT_FOUND"
)

// AppError is the error returned across package boundaries.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Cause   error     `json:"-"`
}

func (e *AppError) Error() string {
	msg := e.Message
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates an AppError with an optional cause.
func NewAppError(code ErrorCode, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Cause: cause}
}

// NewAppErrorWithDetails creates an AppError carrying extra detail text.
func NewAppErrorWithDetails(code ErrorCode, message, details string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Details: details, Cause: cause}
}

// CodeOf returns the code of the first AppError in err's chain, or "" if none.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
