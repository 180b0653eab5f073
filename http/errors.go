package http

import "net/http"

// errorKind classifies request failures so client and server faults can
// be told apart in logs and metrics. On the wire, only validation
// failures map to 400; row and model failures answer 500.
type errorKind int

const (
	errorKindValidation errorKind = iota
	errorKindModelUnavailable
	errorKindInference
)

func (k errorKind) String() string {
	switch k {
	case errorKindValidation:
		return "validation"
	case errorKindModelUnavailable:
		return "model_unavailable"
	default:
		return "inference"
	}
}

type apiError struct {
	kind errorKind
	err  error
}

func (e *apiError) Error() string {
	return e.err.Error()
}

func (e *apiError) Status() int {
	if e.kind == errorKindValidation {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
