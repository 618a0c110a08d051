package factory

import (
	"github.com/mcoot/cfratings/internal/model"
	"github.com/mcoot/cfratings/internal/testutil/fakeapi"
)

// Seed accounts for tests
const (
	SeedUsername = "alice"
	SeedPassword = "correct-horse"
	SeedGroupID  = model.GroupID(42)
)

// SeedData registers one account and two groups: a club where alice and
// carol are rated members, and an empty one
func SeedData(api *fakeapi.Server) {
	api.AddUser(model.User{ID: 1, Username: SeedUsername, CFHandle: "alice", Role: "member"}, SeedPassword)
	api.AddGroup(model.Group{ID: SeedGroupID, Name: "Algorithms Club"},
		model.GroupMember{UserID: 1, CFHandle: "alice", Rating: model.IntPtr(1550)},
		model.GroupMember{UserID: 3, CFHandle: "carol", Rating: model.IntPtr(2450)},
	)
	api.AddGroup(model.Group{ID: 7, Name: "Empty Group"})
}
