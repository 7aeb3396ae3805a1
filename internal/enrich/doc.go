// Package enrich turns a company's name, website and "about" text into the
// nine-section intelligence report attached to each result. A Completer
// talks to the language-model provider; the Adapter builds the prompt,
// enforces the timeout and maps the reply onto crawler.Enrichment. Failures
// never propagate: they yield an empty enrichment and a log line.
package enrich
