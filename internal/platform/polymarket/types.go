package polymarket

import (
	"encoding/json"
	"strings"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "active" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// APIMarket represents a market as returned by the Polymarket Gamma API.
type APIMarket struct {
	ID           string     `json:"id"`
	Question     string     `json:"question"`
	ConditionID  string     `json:"conditionId"`
	Slug         string     `json:"slug"`
	Active       flexBool   `json:"active"`
	Closed       flexBool   `json:"closed"`
	Outcomes     string     `json:"outcomes"`     // JSON-encoded: e.g. "[\"Yes\",\"No\"]"
	ClobTokenIDs string     `json:"clobTokenIds"` // JSON-encoded: e.g. "[\"123\",\"456\"]"
	Events       []APIEvent `json:"events"`
}

// APIEvent is the parent event of a Gamma market. Only the tags are used.
type APIEvent struct {
	ID    string   `json:"id"`
	Title string   `json:"title"`
	Tags  []APITag `json:"tags"`
}

// APITag is a Gamma tag entry.
type APITag struct {
	Label string `json:"label"`
	Slug  string `json:"slug"`
}

// decodeStringList parses a JSON-encoded string array. Gamma ships outcome
// labels and token IDs this way. An empty or malformed value yields nil.
func decodeStringList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}

// outcomeLabels returns the market's outcome labels, index aligned with
// tokenIDs.
func (m *APIMarket) outcomeLabels() []string { return decodeStringList(m.Outcomes) }

func (m *APIMarket) tokenIDs() []string { return decodeStringList(m.ClobTokenIDs) }

func (m *APIMarket) tags() []string {
	var tags []string
	for _, ev := range m.Events {
		for _, tag := range ev.Tags {
			if tag.Label != "" {
				tags = append(tags, tag.Label)
			}
		}
	}
	return tags
}
