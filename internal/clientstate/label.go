package clientstate

import (
	"regexp"
	"time"
)

const (
	defaultLabel   = "Optimization"
	maxLabelRunes  = 40
	timestampStyle = "Jan 2, 3:04 PM"
)

var reviewTitle = regexp.MustCompile(`(?i)CV Review for ([^\r\n\x{2028}\x{2029}]*)`)

// DeriveLabel extracts the text after the first "CV Review for" up to the end
// of its line, falling back to "Optimization". Labels longer than 40
// characters are cut to 40 and suffixed with "...".
func DeriveLabel(result string) string {
	label := defaultLabel
	if m := reviewTitle.FindStringSubmatch(result); m != nil {
		label = m[1]
	}
	runes := []rune(label)
	if len(runes) > maxLabelRunes {
		return string(runes[:maxLabelRunes]) + "..."
	}
	return label
}

// FormatTimestamp renders t as e.g. "Jan 17, 10:05 PM" in loc.
func FormatTimestamp(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(timestampStyle)
}
