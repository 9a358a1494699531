package render

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var placeholder = regexp.MustCompile(`\{\{(\w+)\}\}`)

// TemplateContext holds the values a certificate text can refer to.
type TemplateContext struct {
	Name  string
	Date  time.Time
	Index int // 1-based position of the name in the batch
	Total int
}

// lookup returns the value of a placeholder and whether it is known.
func (c TemplateContext) lookup(key string) (string, bool) {
	switch key {
	case "Name":
		return c.Name, true
	case "Initials":
		return ExtractInitials(c.Name), true
	case "Date":
		d := c.Date
		if d.IsZero() {
			d = time.Now()
		}
		return d.Format(time.DateOnly), true
	case "Index":
		return strconv.Itoa(c.Index), true
	case "Total":
		return strconv.Itoa(c.Total), true
	}
	return "", false
}

// ExpandTemplateVariables substitutes {{Name}}, {{Initials}}, {{Date}}
// (YYYY-MM-DD), {{Index}} and {{Total}} in text. Unknown placeholders are
// left untouched.
func ExpandTemplateVariables(text string, ctx TemplateContext) string {
	return placeholder.ReplaceAllStringFunc(text, func(match string) string {
		if v, ok := ctx.lookup(placeholder.FindStringSubmatch(match)[1]); ok {
			return v
		}
		return match
	})
}

// ExtractInitials returns the upper-cased first letter of every word,
// "Ada King Lovelace" -> "AKL".
func ExtractInitials(name string) string {
	var b strings.Builder
	for _, word := range strings.Fields(name) {
		r := []rune(word)
		b.WriteRune(r[0])
	}
	return strings.ToUpper(b.String())
}
