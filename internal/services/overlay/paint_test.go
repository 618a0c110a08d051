package overlay

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func anchor(t *testing.T, html string) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc.Find("a")
}

func TestSetStyleReplacesProperty(t *testing.T) {
	sel := anchor(t, `<a style="color: red; margin: 0">x</a>`)
	setStyle(sel, "color", "#0000FF")
	assert.Equal(t, "margin: 0; color: #0000FF;", sel.AttrOr("style", ""))
}

func TestSetStyleOnEmpty(t *testing.T) {
	sel := anchor(t, `<a>x</a>`)
	setStyle(sel, "opacity", "0.5")
	assert.Equal(t, "opacity: 0.5;", sel.AttrOr("style", ""))
}

func TestPaintRatedKeepsNestedMarkup(t *testing.T) {
	sel := anchor(t, `<a class="rated-user user-legendary"><span class="legendary-user-first-letter">t</span>ourist</a>`)
	paintRated(sel, 1900)

	assert.True(t, sel.HasClass("user-violet"))
	assert.False(t, sel.HasClass("user-legendary"))
	assert.Equal(t, 1, sel.Find("span.legendary-user-first-letter").Length())
	assert.Equal(t, "tourist", sel.Text())
}

func TestPaintRatedLegendary(t *testing.T) {
	sel := anchor(t, `<a class="rated-user user-gray">x</a>`)
	paintRated(sel, 3000)
	assert.True(t, sel.HasClass("user-legendary"))
	assert.Equal(t, "Community Rating: 3000 (Legendary Grandmaster)", sel.AttrOr("title", ""))
}
