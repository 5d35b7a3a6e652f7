package display

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitials(t *testing.T) {
	tests := []struct {
		name, email, want string
	}{
		{"Jane Doe", "", "JD"},
		{"jane mary doe", "", "JM"},
		{"  cher  ", "", "C"},
		{"", "a@example.com", "A"},
		{"", "  bob@example.com", "B"},
		{"", "@example.com", "?"},
		{"", "", "?"},
		{"élodie durand", "", "ÉD"},
		{"Jane Doe", "x@example.com", "JD"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Initials(tt.name, tt.email), "name=%q email=%q", tt.name, tt.email)
	}
}

func TestGradientFor_Deterministic(t *testing.T) {
	a := GradientFor("Jane Doe", "")
	b := GradientFor("Jane Doe", "other@example.com")
	assert.Equal(t, a, b, "name wins over email")
	assert.Equal(t, GradientFor("", "a@example.com"), GradientFor("", "a@another.org"))
	assert.Contains(t, palette, a)

	seen := map[Gradient]bool{}
	for _, n := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"} {
		seen[GradientFor(n, "")] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestParseStyle(t *testing.T) {
	assert.Equal(t, StyleIcon, ParseStyle("ICON"))
	assert.Equal(t, StyleGradient, ParseStyle(" gradient "))
	assert.Equal(t, StyleInitials, ParseStyle("initials"))
	assert.Equal(t, StyleInitials, ParseStyle("sparkles"))
	assert.Equal(t, StyleInitials, ParseStyle(""))
}

func TestRenderSVG(t *testing.T) {
	p := NewPlaceholder("Jane Doe", "", StyleInitials)
	svg := string(RenderSVG(p, 64))
	assert.True(t, strings.HasPrefix(svg, "<svg"))
	assert.Contains(t, svg, `width="64"`)
	assert.Contains(t, svg, ">JD</text>")
	assert.Contains(t, svg, p.Gradient.From)

	g := string(RenderSVG(NewPlaceholder("Jane Doe", "", StyleGradient), 0))
	assert.Contains(t, g, "linearGradient")
	assert.Contains(t, g, `width="128"`)
	assert.Contains(t, g, `offset="100%"`)

	icon := string(RenderSVG(NewPlaceholder("Jane Doe", "", StyleIcon), 5000))
	assert.NotContains(t, icon, "JD")
	assert.Contains(t, icon, `width="1024"`)

	unknown := RenderSVG(Placeholder{Initials: "JD", Style: "sparkles"}, 64)
	assert.Contains(t, string(unknown), ">JD</text>")
}

func TestRenderSVG_EscapesText(t *testing.T) {
	svg := string(RenderSVG(NewPlaceholder("<b> x", "", StyleInitials), 64))
	assert.NotContains(t, svg, "<<")
	assert.Contains(t, svg, "&lt;X")
}
