package aiquery

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	bareKeyRe   = regexp.MustCompile(`([{,]\s*)(\w+):`)
	bareValueRe = regexp.MustCompile(`:\s*([^",\[\]{}]+)([,}])`)
	intentRe    = regexp.MustCompile(`(?i)intent["']?\s*:\s*["']?(\w+)["']?`)
)

// Analysis is the structured reading of a question.
type Analysis struct {
	Intent          string   `json:"intent"`
	TimePeriod      string   `json:"time_period,omitempty"`
	CustomDate      string   `json:"custom_date,omitempty"`
	Categories      []string `json:"categories,omitempty"`
	Payees          []string `json:"payees,omitempty"`
	TransactionType string   `json:"transaction_type,omitempty"`
}

// ExtractJSON returns the last complete JSON object in a model response that
// decodes as an Analysis. Without one it falls back to the bare intent, and
// reports false.
func ExtractJSON(response string) (Analysis, bool) {
	var (
		found bool
		last  Analysis
		depth int
		start = -1
	)
	for i, c := range response {
		switch c {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				if a, ok := decodeAnalysis(response[start : i+1]); ok {
					last, found = a, true
				}
				start = -1
			}
		}
	}
	if found {
		return last, true
	}
	if m := intentRe.FindStringSubmatch(response); m != nil {
		return Analysis{Intent: strings.ToLower(m[1])}, false
	}
	return Analysis{}, false
}

func decodeAnalysis(s string) (Analysis, bool) {
	var a Analysis
	if err := json.Unmarshal([]byte(s), &a); err == nil {
		return a, true
	}
	// Models sometimes emit JavaScript-style objects with bare keys and values.
	clean := bareKeyRe.ReplaceAllString(s, `$1"$2":`)
	clean = bareValueRe.ReplaceAllString(clean, `: "$1"$2`)
	if err := json.Unmarshal([]byte(clean), &a); err == nil {
		return a, true
	}
	return Analysis{}, false
}
