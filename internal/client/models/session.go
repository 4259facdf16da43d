package models

// UserInfo is the profile returned by the login endpoint.
type UserInfo struct {
	UserID   string `json:"userId,omitempty"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// Session is the authentication state of the client. A non-empty Token means
// the user is considered authenticated.
type Session struct {
	Token string
	User  *UserInfo
}

// Authenticated reports whether the session carries a token.
func (s Session) Authenticated() bool {
	return s.Token != ""
}

// Username returns the display name or an empty string.
func (s Session) Username() string {
	if s.User == nil {
		return ""
	}
	return s.User.Username
}
