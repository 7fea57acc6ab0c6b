package entities

// User is the cached profile of the signed-in user.
type User struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	City    string `json:"city,omitempty"`
	Address string `json:"address,omitempty"`
}

// Session mirrors what the local session store holds.
type Session struct {
	LoggedIn       bool
	User           *User
	ApprovalStatus string
	Token          string
}

// UserID is empty when nobody is signed in.
func (s *Session) UserID() string {
	if s == nil || !s.LoggedIn || s.User == nil {
		return ""
	}
	return s.User.ID
}

// ApprovalState is the gateway's answer to getUserApprovalStatus.
type ApprovalState struct {
	Status         string
	ApprovalStatus string
}
