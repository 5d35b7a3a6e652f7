package display

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
)

type Style string

const (
	StyleInitials Style = "initials"
	StyleIcon     Style = "icon"
	StyleGradient Style = "gradient"
)

// ParseStyle maps unknown or empty values to StyleInitials.
func ParseStyle(s string) Style {
	switch Style(strings.ToLower(strings.TrimSpace(s))) {
	case StyleIcon:
		return StyleIcon
	case StyleGradient:
		return StyleGradient
	default:
		return StyleInitials
	}
}

const (
	fallbackGlyph = "?"
	paletteSeed   = 0x61766174 // "avat"

	DefaultSize = 128
	MaxSize     = 1024
)

type Gradient struct {
	From string `json:"from"`
	To   string `json:"to"`
}

var palette = []Gradient{
	{"#e74c3c", "#c0392b"},
	{"#e67e22", "#d35400"},
	{"#f1c40f", "#f39c12"},
	{"#2ecc71", "#27ae60"},
	{"#1abc9c", "#16a085"},
	{"#3498db", "#2980b9"},
	{"#9b59b6", "#8e44ad"},
	{"#e91e63", "#ad1457"},
	{"#00bcd4", "#00838f"},
	{"#607d8b", "#37474f"},
	{"#8bc34a", "#558b2f"},
	{"#673ab7", "#4527a0"},
}

// Placeholder is a procedurally generated avatar. It is a pure function of name, email
// and style.
type Placeholder struct {
	Initials string   `json:"initials"`
	Style    Style    `json:"style"`
	Gradient Gradient `json:"gradient"`
}

func NewPlaceholder(name, email string, style Style) Placeholder {
	return Placeholder{
		Initials: Initials(name, email),
		Style:    ParseStyle(string(style)),
		Gradient: GradientFor(name, email),
	}
}

// Initials returns the first letters of the first two words of name, the first letter of a
// one-word name, the first letter of the email local part, or "?".
func Initials(name, email string) string {
	words := strings.Fields(name)
	switch {
	case len(words) >= 2:
		return strings.ToUpper(firstRune(words[0]) + firstRune(words[1]))
	case len(words) == 1:
		return strings.ToUpper(firstRune(words[0]))
	}
	if local := localPart(email); local != "" {
		return strings.ToUpper(firstRune(local))
	}
	return fallbackGlyph
}

// GradientFor picks a palette entry from the same identity string Initials reads, so one
// identity always gets one colour pair.
func GradientFor(name, email string) Gradient {
	seed := identity(name, email)
	d := xxhash.NewWithSeed(paletteSeed)
	_, _ = d.WriteString(seed)
	return palette[d.Sum64()%uint64(len(palette))]
}

func identity(name, email string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	return localPart(email)
}

func localPart(email string) string {
	email = strings.TrimSpace(email)
	if i := strings.IndexByte(email, '@'); i >= 0 {
		email = email[:i]
	}
	return strings.TrimSpace(email)
}

func firstRune(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError && size <= 1 {
		return ""
	}
	return string(r)
}

func clampSize(size int) int {
	if size <= 0 {
		return DefaultSize
	}
	if size > MaxSize {
		return MaxSize
	}
	return size
}

// RenderSVG draws p as a square SVG of the given size in pixels.
func RenderSVG(p Placeholder, size int) []byte {
	size = clampSize(size)
	half := size / 2
	text := html.EscapeString(p.Initials)
	fontSize := size * 2 / 5

	var body string
	switch ParseStyle(string(p.Style)) {
	case StyleIcon:
		body = fmt.Sprintf(`<rect width="%[1]d" height="%[1]d" rx="%[2]d" fill="%[3]s"/>
  <circle cx="%[2]d" cy="%[4]d" r="%[5]d" fill="#fff"/>
  <path d="M%[6]d %[7]d a%[8]d %[8]d 0 0 1 %[9]d 0" fill="#fff"/>`,
			size, half, p.Gradient.From,
			size*3/8, size/6,
			size/5, size*17/20, size*3/10, size*3/5)
	case StyleGradient:
		body = fmt.Sprintf(`<defs><linearGradient id="g" x1="0" y1="0" x2="1" y2="1">
    <stop offset="0%%" stop-color="%[4]s"/><stop offset="100%%" stop-color="%[5]s"/>
  </linearGradient></defs>
  <rect width="%[1]d" height="%[1]d" rx="%[2]d" fill="url(#g)"/>
  <text x="%[2]d" y="%[2]d" dy=".35em" text-anchor="middle" font-family="sans-serif" font-size="%[3]d" font-weight="600" fill="#fff">%[6]s</text>`,
			size, half, fontSize, p.Gradient.From, p.Gradient.To, text)
	default:
		body = fmt.Sprintf(`<rect width="%[1]d" height="%[1]d" rx="%[2]d" fill="%[4]s"/>
  <text x="%[2]d" y="%[2]d" dy=".35em" text-anchor="middle" font-family="sans-serif" font-size="%[3]d" font-weight="600" fill="#fff">%[5]s</text>`,
			size, half, fontSize, p.Gradient.From, text)
	}

	return []byte(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%[1]d" height="%[1]d" viewBox="0 0 %[1]d %[1]d">
  %[2]s
</svg>`, size, body))
}
