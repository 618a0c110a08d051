package model

// AuthState is the full authentication state owned by the session proxy.
// Token never leaves the session service.
type AuthState struct {
	Token           string
	User            *User
	IsAuthenticated bool
	SelectedGroup   *Group
}

// Snapshot returns the token-free view of the state
func (s AuthState) Snapshot() AuthSnapshot {
	return AuthSnapshot{
		IsAuthenticated: s.IsAuthenticated,
		User:            s.User,
		SelectedGroup:   s.SelectedGroup,
	}
}

// AuthSnapshot is what callers outside the session proxy may see
type AuthSnapshot struct {
	IsAuthenticated bool   `json:"isAuthenticated"`
	User            *User  `json:"user"`
	SelectedGroup   *Group `json:"selectedGroup"`
}

// HasGroup reports whether a usable group is selected
func (s AuthSnapshot) HasGroup() bool {
	return s.SelectedGroup != nil && s.SelectedGroup.ID != 0
}
