package session

// CloudSession is the singleton cloud credential record. Absent means logged
// out. ExpiresAt (epoch seconds) is authoritative for refresh decisions;
// there is no separate expired flag.
type CloudSession struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
	WebAppURL    string `json:"web_app_url"`
}

// User is the identity returned by a successful login. It is handed to the
// caller and never persisted.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}
