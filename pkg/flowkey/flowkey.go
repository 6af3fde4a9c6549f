package flowkey

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
)

const (
	fieldSeparator = ";"
	valueSeparator = "="
)

// Well-known match fields
const (
	DLSrc = "dl_src"
	DLDst = "dl_dst"
)

// ErrMalformedKey is returned when a flow key cannot be decoded
var ErrMalformedKey = errors.New("malformed flow key")

// Match is a set of header field constraints, e.g. {"dl_src": "11:22:33:44:55:66", "tp_dst": "80"}
type Match map[string]string

// Validate reports fields or values that cannot be encoded: empty field
// names and anything containing ';' or '='
func (m Match) Validate() error {
	for field, value := range m {
		if field == "" || strings.ContainsAny(field, fieldSeparator+valueSeparator) {
			return fmt.Errorf("%w: field %q", ErrMalformedKey, field)
		}
		if strings.ContainsAny(value, fieldSeparator+valueSeparator) {
			return fmt.Errorf("%w: value %q of %s", ErrMalformedKey, value, field)
		}
	}
	return nil
}

// Encode renders a match in canonical form: fields sorted, each as field=value, joined with ';'.
// Only matches passing Validate decode back to themselves.
func Encode(m Match) string {
	fields := lo.Keys(m)
	sort.Strings(fields)

	tokens := lo.Map(fields, func(field string, _ int) string {
		return field + valueSeparator + m[field]
	})
	return strings.Join(tokens, fieldSeparator)
}

// Decode parses a flow key back into a match. Values are kept as strings.
// The empty key decodes to the empty match.
func Decode(key string) (Match, error) {
	m := make(Match)
	if key == "" {
		return m, nil
	}
	for _, token := range strings.Split(key, fieldSeparator) {
		kv := strings.Split(token, valueSeparator)
		if len(kv) != 2 || kv[0] == "" {
			return nil, fmt.Errorf("%w: token %q", ErrMalformedKey, token)
		}
		if _, ok := m[kv[0]]; ok {
			return nil, fmt.Errorf("%w: duplicate field %q", ErrMalformedKey, kv[0])
		}
		m[kv[0]] = kv[1]
	}
	return m, nil
}

// Canonical re-encodes a user supplied key so that field order does not matter
func Canonical(key string) (string, error) {
	m, err := Decode(key)
	if err != nil {
		return "", err
	}
	return Encode(m), nil
}
