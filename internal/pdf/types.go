// Package pdf loads lecture PDFs, rasterizes their pages and writes the
// annotated and note exports.
package pdf

// PDFInfo describes a loaded document.
type PDFInfo struct {
	FilePath  string `json:"file_path"`
	FileName  string `json:"file_name"`
	PageCount int    `json:"page_count"`
	FileSize  int64  `json:"file_size"`
	IsTextPDF bool   `json:"is_text_pdf"`
}

// PDFErrorCode classifies a PDFError.
type PDFErrorCode string

const (
	ErrPDFNotFound    PDFErrorCode = "PDF_NOT_FOUND"
	ErrPDFInvalid     PDFErrorCode = "PDF_INVALID"
	ErrPDFEncrypted   PDFErrorCode = "PDF_ENCRYPTED"
	ErrRasterFailed   PDFErrorCode = "RASTER_FAILED"
	ErrRasterMissing  PDFErrorCode = "RASTERIZER_MISSING"
	ErrExportFailed   PDFErrorCode = "EXPORT_FAILED"
	ErrNothingToWrite PDFErrorCode = "NOTHING_TO_WRITE"
)

// PDFError is returned by every operation in this package.
type PDFError struct {
	Code    PDFErrorCode `json:"code"`
	Message string       `json:"message"`
	Details string       `json:"details,omitempty"`
	Page    int          `json:"page,omitempty"`
	Cause   error        `json:"-"`
}

func (e *PDFError) Error() string {
	msg := e.Message
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *PDFError) Unwrap() error {
	return e.Cause
}

func NewPDFError(code PDFErrorCode, message string, cause error) *PDFError {
	return &PDFError{Code: code, Message: message, Cause: cause}
}

func NewPDFErrorWithDetails(code PDFErrorCode, message, details string, cause error) *PDFError {
	return &PDFError{Code: code, Message: message, Details: details, Cause: cause}
}

func NewPDFErrorWithPage(code PDFErrorCode, message string, page int, cause error) *PDFError {
	return &PDFError{Code: code, Message: message, Page: page, Cause: cause}
}
