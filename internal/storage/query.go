package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// quoteFTSQuery turns free text into an FTS5 expression where every
// whitespace-separated token is a quoted literal, so operators, column
// filters and wildcards in user input carry no meaning. Adjacent quoted
// strings are an implicit AND. Returns "" when there are no tokens.
func quoteFTSQuery(query string) string {
	tokens := strings.Fields(query)
	if len(tokens) == 0 {
		return ""
	}

	quoted := make([]string, len(tokens))
	for i, tok := range tokens {
		quoted[i] = `"` + strings.ReplaceAll(tok, `"`, `""`) + `"`
	}
	return strings.Join(quoted, " ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern wraps query for a literal substring LIKE using '\' as the
// escape character.
func likePattern(query string) string {
	return "%" + likeEscaper.Replace(query) + "%"
}

// encodeList serializes a metadata list to the JSON text stored in the
// sections table. Nil encodes as an empty array.
func encodeList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(list); err != nil {
		return "", fmt.Errorf("failed to encode list: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

func decodeList(text string) ([]string, error) {
	if text == "" {
		return []string{}, nil
	}
	var list []string
	if err := json.Unmarshal([]byte(text), &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []string{}
	}
	return list, nil
}
