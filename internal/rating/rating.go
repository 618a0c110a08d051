// Package rating maps community ratings to rank bands.
//
// The band table is the single source for rank names, colors and CSS classes.
package rating

import (
	"fmt"
	"math"
)

// Color is a display color for a band
type Color struct {
	Hex  string
	Name string
}

// Band is a half-open rating interval [Lower, Upper).
// The last band has Upper = +Inf.
type Band struct {
	Lower    float64
	Upper    float64
	Rank     string
	CSSClass string
	Color    Color
}

// Contains reports whether r falls inside the band. An infinite Upper
// admits every r >= Lower, +Inf included.
func (b Band) Contains(r float64) bool {
	return r >= b.Lower && (math.IsInf(b.Upper, 1) || r < b.Upper)
}

var (
	gray   = Color{Hex: "#808080", Name: "gray"}
	green  = Color{Hex: "#008000", Name: "green"}
	cyan   = Color{Hex: "#03A89E", Name: "cyan"}
	blue   = Color{Hex: "#0000FF", Name: "blue"}
	violet = Color{Hex: "#AA00AA", Name: "violet"}
	orange = Color{Hex: "#FF8C00", Name: "orange"}
	red    = Color{Hex: "#FF0000", Name: "red"}
)

// Bands is the fixed band table in ascending order. It covers [0, +Inf)
// with no gaps or overlaps.
var Bands = []Band{
	{Lower: 0, Upper: 1200, Rank: "Newbie", CSSClass: "user-gray", Color: gray},
	{Lower: 1200, Upper: 1400, Rank: "Pupil", CSSClass: "user-green", Color: green},
	{Lower: 1400, Upper: 1600, Rank: "Specialist", CSSClass: "user-cyan", Color: cyan},
	{Lower: 1600, Upper: 1900, Rank: "Expert", CSSClass: "user-blue", Color: blue},
	{Lower: 1900, Upper: 2100, Rank: "Candidate Master", CSSClass: "user-violet", Color: violet},
	{Lower: 2100, Upper: 2300, Rank: "Master", CSSClass: "user-orange", Color: orange},
	{Lower: 2300, Upper: 2400, Rank: "International Master", CSSClass: "user-orange", Color: orange},
	{Lower: 2400, Upper: 2600, Rank: "Grandmaster", CSSClass: "user-red", Color: red},
	{Lower: 2600, Upper: 3000, Rank: "International Grandmaster", CSSClass: "user-red", Color: red},
	{Lower: 3000, Upper: math.Inf(1), Rank: "Legendary Grandmaster", CSSClass: "user-legendary", Color: red},
}

// HostClasses are the rating classes the host site paints on user links.
// All of them are removed before a community class is applied.
var HostClasses = []string{
	"user-gray",
	"user-green",
	"user-cyan",
	"user-blue",
	"user-violet",
	"user-orange",
	"user-red",
	"user-legendary",
	"user-black",
	"user-admin",
}

// Classify returns the band containing r. Inputs no band contains
// (negative, NaN) fall back to the first band.
func Classify(r float64) Band {
	for _, b := range Bands {
		if b.Contains(r) {
			return b
		}
	}
	return Bands[0]
}

// ClassifyInt is Classify for integer ratings
func ClassifyInt(r int) Band {
	return Classify(float64(r))
}

// RankName returns the human-readable rank for r
func RankName(r int) string {
	return ClassifyInt(r).Rank
}

// ColorOf returns the display color for r
func ColorOf(r int) Color {
	return ClassifyInt(r).Color
}

// CSSClass returns the CSS class token for r
func CSSClass(r int) string {
	return ClassifyInt(r).CSSClass
}

// Tooltip returns the hover text shown on a repainted username
func Tooltip(r int) string {
	return fmt.Sprintf("Community Rating: %d (%s)", r, RankName(r))
}
