package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	go_json "github.com/goccy/go-json"

	"github.com/mcoot/cfratings/internal/api/response"
	"github.com/mcoot/cfratings/internal/model"
	"github.com/mcoot/cfratings/internal/rating"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to w.
// A nil w writes to stdout.
func NewOutput(format string, w io.Writer) *Output {
	if w == nil {
		w = os.Stdout
	}
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := go_json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := go_json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := go_json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case model.User:
		o.printUser(v)
	case model.AuthSnapshot:
		o.printAuthSnapshot(v)
	case model.Group:
		fmt.Fprintf(o.w, "Selected group: %s\n", groupLabel(v))
	case GroupList:
		o.printGroups(v)
	case RatingList:
		o.printRatings(v)
	case ClassificationList:
		o.printClassifications(v)
	case OverlayList:
		o.printOverlays(v)
	case response.Health:
		o.printHealth(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// GroupList is the output of the groups command
type GroupList []model.Group

// RatingRow is one looked-up rating with its band
type RatingRow struct {
	Username  string `json:"username"`
	Rating    *int   `json:"rating"`
	Rank      string `json:"rank,omitempty"`
	Color     string `json:"color,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// NewRatingRow classifies a rating lookup result
func NewRatingRow(r model.UserRating) RatingRow {
	row := RatingRow{
		Username:  r.Username,
		Rating:    r.Rating,
		Timestamp: r.Timestamp,
	}
	if r.Rating != nil {
		band := rating.ClassifyInt(*r.Rating)
		row.Rank = band.Rank
		row.Color = band.Color.Hex
	}
	return row
}

// RatingList is the output of the ratings command
type RatingList []RatingRow

// Classification is the band of a single rating
type Classification struct {
	Rating    float64 `json:"rating"`
	Rank      string  `json:"rank"`
	CSSClass  string  `json:"css_class"`
	Color     string  `json:"color"`
	ColorName string  `json:"color_name"`
}

// NewClassification classifies r
func NewClassification(r float64) Classification {
	band := rating.Classify(r)
	return Classification{
		Rating:    r,
		Rank:      band.Rank,
		CSSClass:  band.CSSClass,
		Color:     band.Color.Hex,
		ColorName: band.Color.Name,
	}
}

// ClassificationList is the output of the classify command
type ClassificationList []Classification

// OverlayResult reports one page fetched through the overlay proxy
type OverlayResult struct {
	URL     string `json:"url"`
	Applied bool   `json:"applied"`
	Skipped string `json:"skipped,omitempty"`
	Rated   int    `json:"rated"`
	Bytes   int    `json:"bytes"`
	SavedTo string `json:"saved_to,omitempty"`
	Error   string `json:"error,omitempty"`

	html []byte
}

// OverlayList is the output of the overlay command
type OverlayList []OverlayResult

// Failed counts pages that could not be fetched
func (l OverlayList) Failed() int {
	n := 0
	for _, r := range l {
		if r.Error != "" {
			n++
		}
	}
	return n
}

func groupLabel(g model.Group) string {
	if g.Name == "" {
		return fmt.Sprintf("Group %d", g.ID)
	}
	return fmt.Sprintf("%s (%d)", g.Name, g.ID)
}

func (o *Output) printUser(u model.User) {
	fmt.Fprintf(o.w, "User: %s (%d)\n", u.Username, u.ID)
	if u.CFHandle != "" {
		fmt.Fprintf(o.w, "Handle: %s\n", u.CFHandle)
	}
}

func (o *Output) printAuthSnapshot(s model.AuthSnapshot) {
	if !s.IsAuthenticated || s.User == nil {
		fmt.Fprintln(o.w, "Not logged in")
		return
	}
	o.printUser(*s.User)
	if s.HasGroup() {
		fmt.Fprintf(o.w, "Group: %s\n", groupLabel(*s.SelectedGroup))
	} else {
		fmt.Fprintln(o.w, "Group: none")
	}
}

func (o *Output) printGroups(groups GroupList) {
	if len(groups) == 0 {
		fmt.Fprintln(o.w, "No groups")
		return
	}
	fmt.Fprintf(o.w, "Groups (%d):\n", len(groups))
	for _, g := range groups {
		fmt.Fprintf(o.w, "  - %s\n", groupLabel(g))
	}
}

func (o *Output) printRatings(rows RatingList) {
	for _, r := range rows {
		if r.Rating == nil {
			fmt.Fprintf(o.w, "%s: not a member\n", r.Username)
			continue
		}
		fmt.Fprintf(o.w, "%s: %d (%s)\n", r.Username, *r.Rating, r.Rank)
	}
}

func (o *Output) printClassifications(list ClassificationList) {
	for _, c := range list {
		fmt.Fprintf(o.w, "%g: %s [%s %s, %s]\n", c.Rating, c.Rank, c.ColorName, c.Color, c.CSSClass)
	}
}

func (o *Output) printOverlays(list OverlayList) {
	for _, r := range list {
		var status string
		switch {
		case r.Error != "":
			status = "error: " + r.Error
		case r.Applied:
			status = fmt.Sprintf("applied, %d rated", r.Rated)
		case r.Skipped != "":
			status = "skipped: " + r.Skipped
		default:
			status = "unchanged"
		}
		parts := []string{r.URL, status}
		if r.SavedTo != "" {
			parts = append(parts, "saved to "+r.SavedTo)
		}
		fmt.Fprintln(o.w, strings.Join(parts, " - "))
	}
}

func (o *Output) printHealth(h response.Health) {
	fmt.Fprintf(o.w, "Status: %s\n", h.Status)
	fmt.Fprintf(o.w, "Authenticated: %t\n", h.Authenticated)
	fmt.Fprintf(o.w, "Group selected: %t\n", h.GroupSelected)
}
