package engine

import "net/http"

// Kind categorizes a pipeline failure into the taxonomy of spec.md §7. Each
// kind maps to exactly one surface status and a fixed, short response body
// — nothing about the failure's cause or any internal identity ever
// reaches the client.
type Kind string

const (
	KindClientProtocol    Kind = "client_protocol"
	KindRouting           Kind = "routing"
	KindAvailability      Kind = "availability"
	KindUpstreamTransport Kind = "upstream_transport"
	KindInternal          Kind = "internal"
)

// PipelineError is a categorized, client-safe failure produced at some step
// of the request pipeline.
type PipelineError struct {
	Kind   Kind
	Status int
	Body   string
	cause  error
}

func (e *PipelineError) Error() string {
	if e.cause != nil {
		return string(e.Kind) + ": " + e.cause.Error()
	}
	return string(e.Kind) + ": " + e.Body
}

func (e *PipelineError) Unwrap() error { return e.cause }

func errBodyTooLarge() *PipelineError {
	return &PipelineError{Kind: KindClientProtocol, Status: http.StatusRequestEntityTooLarge, Body: "Request body too large. Max size: 10MB"}
}

func errMissingHost() *PipelineError {
	return &PipelineError{Kind: KindClientProtocol, Status: http.StatusBadRequest, Body: "Missing Host header"}
}

func errUnknownHost() *PipelineError {
	return &PipelineError{Kind: KindRouting, Status: http.StatusNotFound, Body: "Not Found"}
}

func errNoHealthyHost() *PipelineError {
	return &PipelineError{Kind: KindAvailability, Status: http.StatusServiceUnavailable, Body: "Service Unavailable"}
}

func errUpstreamTransport(cause error) *PipelineError {
	return &PipelineError{Kind: KindUpstreamTransport, Status: http.StatusBadGateway, Body: "Bad Gateway: Downstream service error", cause: cause}
}

func errInternal(cause error) *PipelineError {
	return &PipelineError{Kind: KindInternal, Status: http.StatusInternalServerError, Body: "Internal Server Error", cause: cause}
}

func writeError(w http.ResponseWriter, err *PipelineError) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(err.Status)
	_, _ = w.Write([]byte(err.Body))
}
