package query

// Envelope codes. Every entry point answers with one of these.
const (
	CodeOK                  = "ok"
	CodePartialAggregation  = "partial_aggregation"
	CodeInvalidDocument     = "invalid_document"
	CodeNotFound            = "not_found"
	CodeValidation          = "validation_error"
	CodeUpstreamUnavailable = "upstream_unavailable"
	CodeInternal            = "internal_error"
)

// Envelope is the response shape shared by every entry point.
// Result is null on failure.
type Envelope struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Result  any    `json:"result"`
}

// OK wraps a successful result.
func OK(result any) Envelope {
	return Envelope{Success: true, Code: CodeOK, Message: "ok", Result: result}
}

// Partial wraps a result that is usable but incomplete.
func Partial(result any, message string) Envelope {
	return Envelope{Success: true, Code: CodePartialAggregation, Message: message, Result: result}
}

// Fail wraps an error outcome.
func Fail(code, message string) Envelope {
	return Envelope{Success: false, Code: code, Message: message}
}
