package pdnd

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"

	sserr "github.com/StricklySoft/pdnd-client/pkg/errors"
)

// Filter is one query parameter of a GetAPI call.
type Filter struct {
	Key   string
	Value string
}

// Filters are query parameters sent in the order they are listed.
type Filters []Filter

// Set replaces the value of key, keeping its position, or appends it.
func (f Filters) Set(key, value string) Filters {
	for i := range f {
		if f[i].Key == key {
			f[i].Value = value
			return f
		}
	}
	return append(f, Filter{Key: key, Value: value})
}

// Get returns the value of key and whether it is present.
func (f Filters) Get(key string) (string, bool) {
	for _, p := range f {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// Encode returns the filters in "k1=v1&k2=v2" form, escaped for a URL
// query, in their listed order.
func (f Filters) Encode() string {
	var b strings.Builder
	for i, p := range f {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}

// ParseFilters turns "k1=v1&k2=v2" into filters. Each pair is split on its
// first "="; values are taken literally and escaped again when the query is
// built. A repeated key keeps the position of its first occurrence and the
// value of its last. An empty string yields no filters.
func ParseFilters(s string) (Filters, error) {
	filters := Filters{}
	if strings.TrimSpace(s) == "" {
		return filters, nil
	}
	for _, pair := range strings.Split(s, "&") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, sserr.Newf(sserr.CodeConfiguration,
				"pdnd: filter %q is not in key=value form", pair)
		}
		filters = filters.Set(key, value)
	}
	return filters, nil
}

// appendQuery adds filters to base, joining with "&" when base already has
// a query string and "?" otherwise.
func appendQuery(base string, filters Filters) string {
	if len(filters) == 0 {
		return base
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + filters.Encode()
}

// PrettyJSON re-indents a JSON document with two spaces. Member order is
// kept and \uXXXX escapes of printable characters are written as the
// characters themselves. ok is false, and body is returned unchanged, when
// body is not JSON.
func PrettyJSON(body string) (pretty string, ok bool) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(body), "", "  "); err != nil {
		return body, false
	}
	return string(unescapeStrings(buf.Bytes())), true
}

// unescapeStrings rewrites every string literal of a valid JSON document
// that holds a \u escape.
func unescapeStrings(doc []byte) []byte {
	if !bytes.Contains(doc, []byte(`\u`)) {
		return doc
	}
	out := make([]byte, 0, len(doc))
	for i := 0; i < len(doc); {
		if doc[i] != '"' {
			out = append(out, doc[i])
			i++
			continue
		}
		j := i + 1
		for j < len(doc) && doc[j] != '"' {
			if doc[j] == '\\' {
				j++
			}
			j++
		}
		end := min(j+1, len(doc))
		out = append(out, reencodeString(doc[i:end])...)
		i = end
	}
	return out
}

// reencodeString decodes a JSON string literal and encodes it again with
// only the escapes JSON requires.
func reencodeString(lit []byte) []byte {
	if !bytes.Contains(lit, []byte(`\u`)) {
		return lit
	}
	var s string
	if err := json.Unmarshal(lit, &s); err != nil {
		return lit
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return lit
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
}
