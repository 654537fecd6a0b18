package entity

// TokenPair is the bearer credential pair for one authenticated session.
// Exactly one pair is live at a time; it is replaced atomically on login,
// refresh, or register and erased on logout.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func (p TokenPair) IsZero() bool {
	return p.Access == "" && p.Refresh == ""
}
