package web

import "net/http"

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError формирует стандартный JSON с кодом и сообщением об ошибке.
func writeError(w http.ResponseWriter, status int, code, message string) {
	resp := errorResponse{
		Error: errorBody{
			Code:    code,
			Message: message,
		},
	}
	writeJSON(w, status, resp)
}

// writeDomainError переводит ошибку сервиса в ответ.
func writeDomainError(w http.ResponseWriter, err error) {
	status, code, msg := mapDomainError(err)
	writeError(w, status, code, msg)
}

// Возможные значения кода ошибки.
const (
	CONFIGURATIONERROR    ErrorResponseErrorCode = "CONFIGURATION_ERROR"
	FASTTRACKDENIED       ErrorResponseErrorCode = "FAST_TRACK_DENIED"
	INTERNALERROR         ErrorResponseErrorCode = "INTERNAL_ERROR"
	INVALIDPAYLOAD        ErrorResponseErrorCode = "INVALID_PAYLOAD"
	INVALIDQUERY          ErrorResponseErrorCode = "INVALID_QUERY"
	INVALIDREQUEST        ErrorResponseErrorCode = "INVALID_REQUEST"
	MISSINGPARAM          ErrorResponseErrorCode = "MISSING_PARAM"
	NOCANDIDATE           ErrorResponseErrorCode = "NO_CANDIDATE"
	NOTFOUND              ErrorResponseErrorCode = "NOT_FOUND"
	NOTINREVIEW           ErrorResponseErrorCode = "NOT_IN_REVIEW"
	TRANSITIONUNAVAILABLE ErrorResponseErrorCode = "TRANSITION_UNAVAILABLE"
	UNAUTHORIZED          ErrorResponseErrorCode = "UNAUTHORIZED"
)

// ErrorResponseErrorCode описывает код ошибки в ответе.
type ErrorResponseErrorCode string
