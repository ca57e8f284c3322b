package analysis

import (
	"net/http"

	"github.com/Abraxas-365/docqueue/pkg/errx"
)

var analysisErrors = errx.NewRegistry("ANALYSIS")

var (
	ErrInvalidRequest  = analysisErrors.Register("INVALID_REQUEST", errx.TypeValidation, http.StatusBadRequest, "Analysis request is incomplete")
	ErrDocumentMissing = analysisErrors.Register("DOCUMENT_MISSING", errx.TypeNotFound, http.StatusNotFound, "Uploaded document is no longer available")
	ErrAnalyzerFailed  = analysisErrors.Register("ANALYZER_FAILED", errx.TypeExternal, http.StatusBadGateway, "Analysis service failed")
	ErrEmptyAnalysis   = analysisErrors.Register("EMPTY_ANALYSIS", errx.TypeBusiness, http.StatusUnprocessableEntity, "Analysis service returned no text")
	ErrResultNotFound  = analysisErrors.Register("RESULT_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Analysis result not found")
)

func AnalyzerFailed(cause error) *errx.Error {
	return analysisErrors.NewWithCause(ErrAnalyzerFailed, cause)
}

func ResultNotFound(jobID string) *errx.Error {
	return analysisErrors.New(ErrResultNotFound).WithDetail("job_id", jobID)
}
