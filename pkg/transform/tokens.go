package transform

import "encoding/json"

// charsPerToken approximates tokenizer density for JSON text.
const charsPerToken = 4

// EstimateTokens approximates the token count of the JSON encoding of
// records.
func EstimateTokens(records []Record) int {
	data, err := json.Marshal(records)
	if err != nil {
		return 0
	}
	return (len(data) + charsPerToken - 1) / charsPerToken
}
