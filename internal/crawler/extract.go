package crawler

import (
	"regexp"
	"strings"
)

// ws matches Unicode whitespace. Go's \s is ASCII only and misses the
// non-breaking spaces that &nbsp; leaves in rendered text.
const ws = `[\s\p{Z}\x{0085}\v]+`

var (
	foundedPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Founded` + ws + `(in` + ws + `)?(\d{4})`),
		regexp.MustCompile(`(?i)Established` + ws + `(in` + ws + `)?(\d{4})`),
		regexp.MustCompile(`(?i)Since` + ws + `(\d{4})`),
	}
	aboutUsPattern = regexp.MustCompile(`(?i)[^.]*about us[^.]*`)
	emailPattern   = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]+`)
	whitespaceRun  = regexp.MustCompile(ws)
)

// Facts are the pattern-matched fields pulled from aggregate text.
type Facts struct {
	FoundedInfo *string
	AboutUs     *string
	Email       *string
}

// ExtractFacts runs every extractor over text.
func ExtractFacts(text string) Facts {
	return Facts{
		FoundedInfo: ExtractFounded(text),
		AboutUs:     ExtractAboutUs(text),
		Email:       ExtractEmail(text),
	}
}

// ExtractFounded returns the first founding phrase, trying each pattern in turn.
func ExtractFounded(text string) *string {
	for _, re := range foundedPatterns {
		if m := re.FindString(text); m != "" {
			return &m
		}
	}
	return nil
}

// ExtractAboutUs returns the first period-delimited run mentioning "about us".
func ExtractAboutUs(text string) *string {
	m := aboutUsPattern.FindString(text)
	if m == "" {
		return nil
	}
	m = strings.TrimSpace(m)
	return &m
}

// ExtractEmail returns the first email-shaped substring.
func ExtractEmail(text string) *string {
	m := emailPattern.FindString(text)
	if m == "" {
		return nil
	}
	return &m
}

// CollapseWhitespace folds every whitespace run into a single space.
func CollapseWhitespace(text string) string {
	return whitespaceRun.ReplaceAllString(text, " ")
}
