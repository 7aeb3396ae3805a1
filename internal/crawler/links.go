package crawler

import (
	"net/url"
	"sort"
	"strings"
)

// RelevanceKeywords mark navigation links that tend to lead to company
// background pages.
var RelevanceKeywords = []string{
	"about",
	"company",
	"corporate",
	"group",
	"leadership",
	"management",
	"investor",
	"who",
	"overview",
	"profile",
}

const (
	textKeywordWeight = 2
	urlKeywordWeight  = 3
)

// ScoreLinks resolves anchors against baseURL, keeps the ones on the same
// site and ranks them by keyword relevance. Zero scores are dropped and ties
// keep page order.
func ScoreLinks(baseURL string, anchors []Anchor) []CandidateLink {
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || base.Host == "" {
		return nil
	}
	host := siteHost(base.Hostname())

	var out []CandidateLink
	for _, a := range anchors {
		link, ok := resolveLink(base, host, a.Href)
		if !ok {
			continue
		}
		if score := scoreLink(link, a.Text); score > 0 {
			out = append(out, CandidateLink{URL: link, Score: score})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

func resolveLink(base *url.URL, host, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	resolved := base.ResolveReference(ref)
	if resolved.Host == "" {
		return "", false
	}
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", false
	}
	if siteHost(resolved.Hostname()) != host {
		return "", false
	}
	resolved.Fragment = ""
	resolved.RawFragment = ""
	return resolved.String(), true
}

func scoreLink(link, text string) int {
	text = strings.ToLower(strings.TrimSpace(text))
	lowerURL := strings.ToLower(link)
	score := 0
	for _, kw := range RelevanceKeywords {
		if strings.Contains(text, kw) {
			score += textKeywordWeight
		}
		if strings.Contains(lowerURL, kw) {
			score += urlKeywordWeight
		}
	}
	return score
}

// siteHost normalizes a hostname (port already stripped) for same-site
// comparison. Only a leading "www." is folded; other subdomains stay distinct.
func siteHost(hostname string) string {
	return strings.TrimPrefix(strings.ToLower(hostname), "www.")
}
