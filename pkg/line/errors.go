package line

import "errors"

var (
	// ErrTokenExchange is returned when the authorization code could not be exchanged
	ErrTokenExchange = errors.New("line token exchange failed")

	// ErrProfile is returned when the user profile could not be fetched
	ErrProfile = errors.New("line profile fetch failed")

	// ErrNetwork is returned when LINE could not be reached
	ErrNetwork = errors.New("network error")
)

var oauthErrorMessages = map[string]string{
	"access_denied":       "LINE login was cancelled",
	"invalid_request":     "LINE login request is invalid",
	"unauthorized_client": "LINE application is not authorized",
	"server_error":        "LINE server error",
}

// ErrorMessage maps an OAuth error code from the callback to a readable message.
func ErrorMessage(code string) string {
	if msg, ok := oauthErrorMessages[code]; ok {
		return msg
	}
	return "LINE login failed"
}
