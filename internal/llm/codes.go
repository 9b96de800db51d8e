package llm

import "net/http"

// StatusMessages describes HTTP statuses commonly returned by
// OpenAI-compatible endpoints
var StatusMessages = map[int]string{
	http.StatusOK:                    "Success",
	http.StatusBadRequest:            "Malformed request or prompt rejected",
	http.StatusUnauthorized:          "Invalid or missing API key",
	http.StatusForbidden:             "API key not permitted to use this model",
	http.StatusNotFound:              "Unknown endpoint or model",
	http.StatusRequestEntityTooLarge: "Source file too large for the model context",
	http.StatusUnprocessableEntity:   "Request parameters rejected",
	http.StatusTooManyRequests:       "Provider rate limit or quota exceeded",
	http.StatusInternalServerError:   "Provider internal error",
	http.StatusBadGateway:            "Provider gateway error",
	http.StatusServiceUnavailable:    "Provider overloaded or unavailable",
	http.StatusGatewayTimeout:        "Provider timed out",
}

// IsSuccess returns true if the status indicates a usable response
func IsSuccess(code int) bool {
	return code == http.StatusOK
}

// GetErrorMessage returns the description for a status, or a generic message if unknown
func GetErrorMessage(code int) string {
	if msg, ok := StatusMessages[code]; ok {
		return msg
	}

	return "Unknown error"
}
