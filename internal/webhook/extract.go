package webhook

import (
	"regexp"
	"strings"
)

var urlPattern = regexp.MustCompile(`https?://[^\s<>"]+`)

// Sentence punctuation that chat text glues onto a URL.
const trailingPunct = ".,;:!?)"

// ExtractCandidates pulls candidate URLs out of free-form message text.
// Explicit http(s) URLs each become one candidate, with trailing
// sentence punctuation stripped. When the text contains none, the
// whole message is a single candidate: the engine's normalization
// handles scheme-less input like "example.com/page", and the worker
// answers everything else with usage guidance.
func ExtractCandidates(text string) []string {
	if urls := urlPattern.FindAllString(text, -1); len(urls) > 0 {
		for i, u := range urls {
			urls[i] = strings.TrimRight(u, trailingPunct)
		}

		return urls
	}

	return []string{text}
}
