package model

// UserID identifies a user of the community platform
type UserID int64

// GroupID identifies a community group. The zero value means no group.
type GroupID int64

// User is the community profile fetched after login
type User struct {
	ID       UserID `json:"user_id"`
	Username string `json:"user_name"`
	CFHandle string `json:"cf_handle,omitempty"`
	Role     string `json:"role,omitempty"`
}

// Group is a community sub-space with its own membership and rating scope
type Group struct {
	ID   GroupID `json:"group_id"`
	Name string  `json:"group_name"`
}

// GroupMember is a member of a group as returned by the community API
type GroupMember struct {
	UserID   UserID `json:"user_id"`
	CFHandle string `json:"cf_handle"`
	Rating   *int   `json:"rating"`
}
