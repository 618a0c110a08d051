package model

// UserRating is one result of a batch rating lookup.
// Rating is nil when the user is not a member of the group.
type UserRating struct {
	Username  string `json:"username"`
	Rating    *int   `json:"rating"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
}

// CacheEntry is a persisted rating lookup for one username
type CacheEntry struct {
	Rating    *int  `json:"rating"`
	Timestamp int64 `json:"timestamp"` // unix milliseconds
}

// NonMemberDisplay controls how users outside the selected group are shown
type NonMemberDisplay string

const (
	NonMemberTransparent NonMemberDisplay = "transparent"
	NonMemberStar        NonMemberDisplay = "star"
	NonMemberPlain       NonMemberDisplay = "plain"
)

// DefaultNonMemberDisplay is used when no preference has been stored
const DefaultNonMemberDisplay = NonMemberTransparent

// Valid reports whether d is one of the known display modes
func (d NonMemberDisplay) Valid() bool {
	switch d {
	case NonMemberTransparent, NonMemberStar, NonMemberPlain:
		return true
	}
	return false
}

// IntPtr is a convenience for building optional ratings
func IntPtr(v int) *int {
	return &v
}
