// Package pages holds the popup views.
package pages

import (
	"strconv"

	"github.com/mcoot/cfratings/internal/model"
	"github.com/mcoot/cfratings/internal/web/templates/layout"
)

// LoginData is the data for the login view
type LoginData struct {
	layout.PageData
	Username string
}

// MainData is the data for the logged-in view
type MainData struct {
	layout.PageData
	User          *model.User
	Groups        []model.Group
	GroupsError   string
	SelectedGroup *model.Group
	Display       model.NonMemberDisplay
}

// DisplayOptions are the non-member display choices in menu order
var DisplayOptions = []struct {
	Mode  model.NonMemberDisplay
	Label string
}{
	{model.NonMemberTransparent, "Transparent"},
	{model.NonMemberStar, "Star (*)"},
	{model.NonMemberPlain, "Plain"},
}

// groupOptions keeps the selected group listed even when the API list
// failed or no longer contains it
func groupOptions(data MainData) []model.Group {
	if data.SelectedGroup == nil {
		return data.Groups
	}
	for _, g := range data.Groups {
		if g.ID == data.SelectedGroup.ID {
			return data.Groups
		}
	}
	return append([]model.Group{*data.SelectedGroup}, data.Groups...)
}

func groupValue(id model.GroupID) string {
	return strconv.FormatInt(int64(id), 10)
}

func groupLabel(g model.Group) string {
	if g.Name == "" {
		return "Group " + groupValue(g.ID)
	}
	return g.Name
}

func groupSelected(data MainData, id model.GroupID) bool {
	return data.SelectedGroup != nil && data.SelectedGroup.ID == id
}
