package response

import (
	"github.com/mcoot/cfratings/internal/model"
)

// Health is the response for the health endpoint
type Health struct {
	Status        string `json:"status"`
	Authenticated bool   `json:"authenticated"`
	GroupSelected bool   `json:"group_selected"`
}

// HealthFromState builds a Health from an auth snapshot
func HealthFromState(s model.AuthSnapshot) Health {
	return Health{
		Status:        "ok",
		Authenticated: s.IsAuthenticated,
		GroupSelected: s.HasGroup(),
	}
}
