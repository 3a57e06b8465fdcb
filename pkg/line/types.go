package line

// Token is the response of the token endpoint.
type Token struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`
	IDToken      string `json:"id_token"`
}

// Profile is the LINE user profile.
type Profile struct {
	UserID        string `json:"userId"`
	DisplayName   string `json:"displayName"`
	PictureURL    string `json:"pictureUrl"`
	StatusMessage string `json:"statusMessage"`
}

// ExternalID is the identifier stored on local users, prefixed with the provider.
func (p *Profile) ExternalID() string {
	return "line:" + p.UserID
}

// RedirectPlan tells the client how to start the login round trip.
type RedirectPlan struct {
	WebURL          string `json:"web_url"`
	AppURL          string `json:"app_url,omitempty"`
	FallbackAfterMS int64  `json:"fallback_after_ms,omitempty"`
	State           string `json:"state"`
}
