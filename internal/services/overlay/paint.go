package overlay

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/mcoot/cfratings/internal/model"
	"github.com/mcoot/cfratings/internal/rating"
)

// NonMemberOpacity is applied to non-members in transparent mode
const NonMemberOpacity = "0.5"

// NonMemberMarker is appended to non-members in star mode
const NonMemberMarker = " *"

func paintRated(sel *goquery.Selection, r int) {
	band := rating.ClassifyInt(r)
	for _, c := range rating.HostClasses {
		sel.RemoveClass(c)
	}
	sel.AddClass(band.CSSClass)
	setStyle(sel, "color", band.Color.Hex)
	sel.SetAttr("title", rating.Tooltip(r))
}

func paintNonMember(sel *goquery.Selection, mode model.NonMemberDisplay) {
	switch mode {
	case model.NonMemberTransparent:
		setStyle(sel, "opacity", NonMemberOpacity)
	case model.NonMemberStar:
		sel.AppendHtml(NonMemberMarker)
	case model.NonMemberPlain:
	}
}

// setStyle sets one property in the inline style attribute, keeping the others
func setStyle(sel *goquery.Selection, property, value string) {
	existing, _ := sel.Attr("style")

	var decls []string
	for _, decl := range strings.Split(existing, ";") {
		decl = strings.TrimSpace(decl)
		if decl == "" {
			continue
		}
		name, _, _ := strings.Cut(decl, ":")
		if strings.EqualFold(strings.TrimSpace(name), property) {
			continue
		}
		decls = append(decls, decl)
	}
	decls = append(decls, property+": "+value)

	sel.SetAttr("style", strings.Join(decls, "; ")+";")
}
