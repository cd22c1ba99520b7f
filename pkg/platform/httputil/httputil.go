package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "calibra/pkg/domain-errors"
)

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// headers are already sent; an encode failure cannot change the status
	_ = json.NewEncoder(w).Encode(response)
}

// WriteError translates a domain error into its HTTP status and
// {"error","error_description"} body. Non-domain errors become a bare 500.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		response := map[string]string{
			"error": DomainCodeToHTTPCode(domainErr.Code),
		}
		if domainErr.Message != "" && domainErr.Code != dErrors.CodeInternal {
			response["error_description"] = domainErr.Message
		}
		WriteJSON(w, DomainCodeToHTTPStatus(domainErr.Code), response)
		return
	}

	WriteJSON(w, http.StatusInternalServerError, map[string]string{
		"error": DomainCodeToHTTPCode(dErrors.CodeInternal),
	})
}

// DomainCodeToHTTPStatus translates domain error codes to HTTP status codes.
func DomainCodeToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound, dErrors.CodeUnexpectedRequestID:
		return http.StatusNotFound
	case dErrors.CodeBadRequest, dErrors.CodeValidation, dErrors.CodeInvalidArguments:
		return http.StatusBadRequest
	case dErrors.CodeConflict, dErrors.CodeAlreadyFulfilled:
		return http.StatusConflict
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeInvalidConfiguration, dErrors.CodePaused:
		return http.StatusServiceUnavailable
	case dErrors.CodeTransportUnavailable:
		return http.StatusBadGateway
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// DomainCodeToHTTPCode returns the string placed in the "error" field.
func DomainCodeToHTTPCode(code dErrors.Code) string {
	switch code {
	case dErrors.CodeValidation:
		return "validation_error"
	case dErrors.CodeTimeout:
		return "upstream_timeout"
	case "":
		return string(dErrors.CodeInternal)
	default:
		return string(code)
	}
}
