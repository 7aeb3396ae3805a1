package crawler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAggregatorVisitsAtMostCapDistinctURLs(t *testing.T) {
	t.Parallel()

	page := newFakePage(map[string]fakeSite{
		"https://acme.test/a": {text: "page a"},
		"https://acme.test/b": {text: "page b"},
		"https://acme.test/c": {text: "page c"},
		"https://acme.test/d": {text: "page d"},
	})
	links := []CandidateLink{
		{URL: "https://acme.test/a", Score: 9},
		{URL: "https://acme.test/a", Score: 8},
		{URL: "https://acme.test/b", Score: 7},
		{URL: "https://acme.test/c", Score: 6},
		{URL: "https://acme.test/d", Score: 5},
	}
	agg := NewAggregator(AggregatorConfig{MaxSubpages: 3}, &fakeClock{}, nil)

	text := agg.Aggregate(context.Background(), page, "home", links, nil, nil)

	require.Equal(t, []string{
		"https://acme.test/a",
		"https://acme.test/b",
		"https://acme.test/c",
	}, page.navigated)
	require.Equal(t, "home page a page b page c", text)
}

func TestAggregatorSkipsAlreadySeen(t *testing.T) {
	t.Parallel()

	page := newFakePage(map[string]fakeSite{
		"https://acme.test/about": {text: "about"},
	})
	seen := map[string]struct{}{"https://acme.test": {}}
	links := []CandidateLink{
		{URL: "https://acme.test", Score: 5},
		{URL: "https://acme.test/about", Score: 4},
	}
	agg := NewAggregator(AggregatorConfig{}, &fakeClock{}, nil)

	text := agg.Aggregate(context.Background(), page, "home", links, seen, nil)

	require.Equal(t, []string{"https://acme.test/about"}, page.navigated)
	require.Equal(t, "home about", text)
}

func TestAggregatorToleratesFailingPage(t *testing.T) {
	t.Parallel()

	page := newFakePage(map[string]fakeSite{
		"https://acme.test/one":   {text: "first content"},
		"https://acme.test/two":   {navErr: errors.New("timeout")},
		"https://acme.test/three": {text: "third content"},
	})
	links := []CandidateLink{
		{URL: "https://acme.test/one", Score: 3},
		{URL: "https://acme.test/two", Score: 2},
		{URL: "https://acme.test/three", Score: 1},
	}
	steps := &stepLog{}
	agg := NewAggregator(AggregatorConfig{MaxSubpages: 3}, &fakeClock{}, nil)

	text := agg.Aggregate(context.Background(), page, "home", links, nil, steps.record)

	require.Contains(t, text, "first content")
	require.Contains(t, text, "third content")
	require.Contains(t, steps.steps, "Crawling: https://acme.test/two")
	require.Contains(t, steps.steps, "Could not crawl https://acme.test/two: navigate: timeout")
}

func TestAggregatorTextFailureSkipsPage(t *testing.T) {
	t.Parallel()

	page := newFakePage(map[string]fakeSite{
		"https://acme.test/one": {textErr: errors.New("detached")},
		"https://acme.test/two": {text: "kept"},
	})
	links := []CandidateLink{
		{URL: "https://acme.test/one", Score: 3},
		{URL: "https://acme.test/two", Score: 2},
	}
	agg := NewAggregator(AggregatorConfig{}, &fakeClock{}, nil)

	text := agg.Aggregate(context.Background(), page, "home", links, nil, nil)

	require.Equal(t, "home kept", text)
}

func TestAggregatorSettlesAndUsesTimeout(t *testing.T) {
	t.Parallel()

	page := newFakePage(map[string]fakeSite{"https://acme.test/a": {text: "a"}})
	clock := &fakeClock{}
	agg := NewAggregator(AggregatorConfig{
		NavTimeout:  90 * time.Second,
		SettleDelay: 2 * time.Second,
	}, clock, nil)

	agg.Aggregate(context.Background(), page, "", []CandidateLink{{URL: "https://acme.test/a", Score: 1}}, nil, nil)

	require.Equal(t, []time.Duration{90 * time.Second}, page.timeouts)
	require.Equal(t, []time.Duration{2 * time.Second}, clock.sleeps)
}

func TestAggregatorCollapsesWhitespace(t *testing.T) {
	t.Parallel()

	page := newFakePage(map[string]fakeSite{"https://acme.test/a": {text: "\n  sub\tpage \n"}})
	agg := NewAggregator(AggregatorConfig{}, &fakeClock{}, nil)

	text := agg.Aggregate(context.Background(), page, "home\n\ntext",
		[]CandidateLink{{URL: "https://acme.test/a", Score: 1}}, nil, nil)

	require.False(t, strings.Contains(text, "  "))
	require.Equal(t, "home text sub page ", text)
}

func TestAggregatorStopsOnCanceledContext(t *testing.T) {
	t.Parallel()

	page := newFakePage(map[string]fakeSite{"https://acme.test/a": {text: "a"}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	agg := NewAggregator(AggregatorConfig{}, &fakeClock{}, nil)

	text := agg.Aggregate(ctx, page, "home", []CandidateLink{{URL: "https://acme.test/a", Score: 1}}, nil, nil)

	require.Empty(t, page.navigated)
	require.Equal(t, "home", text)
}
