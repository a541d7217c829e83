package prep

import (
	"sort"
)

// Codes is the bijective value↔integer mapping of one categorical column.
// Codes are assigned in ascending sorted order of the string values.
type Codes struct {
	values []string
	index  map[string]int
}

func newCodes(cells []string) *Codes {
	seen := make(map[string]bool, len(cells))
	var values []string
	for _, c := range cells {
		if !seen[c] {
			seen[c] = true
			values = append(values, c)
		}
	}
	sort.Strings(values)

	index := make(map[string]int, len(values))
	for i, v := range values {
		index[v] = i
	}
	return &Codes{values: values, index: index}
}

// Encode returns the integer code of value
func (c *Codes) Encode(value string) (int, bool) {
	code, ok := c.index[value]
	return code, ok
}

// Decode returns the source value of code
func (c *Codes) Decode(code int) (string, bool) {
	if code < 0 || code >= len(c.values) {
		return "", false
	}
	return c.values[code], true
}

// Len returns the number of distinct values
func (c *Codes) Len() int {
	return len(c.values)
}

// EncodingTable holds the Codes of every categorical column. It is built once per
// request and never mutated afterwards.
type EncodingTable struct {
	columns map[string]*Codes
}

// Codes returns the mapping of a column, if it is categorical
func (t *EncodingTable) Codes(column string) (*Codes, bool) {
	if t == nil {
		return nil, false
	}
	c, ok := t.columns[column]
	return c, ok
}

// Has reports whether the column was encoded
func (t *EncodingTable) Has(column string) bool {
	_, ok := t.Codes(column)
	return ok
}

// Encode maps a categorical value to its code
func (t *EncodingTable) Encode(column, value string) (int, bool) {
	c, ok := t.Codes(column)
	if !ok {
		return 0, false
	}
	return c.Encode(value)
}

// Decode maps a code back to its categorical value
func (t *EncodingTable) Decode(column string, code int) (string, bool) {
	c, ok := t.Codes(column)
	if !ok {
		return "", false
	}
	return c.Decode(code)
}

// Columns lists the encoded columns in sorted order
func (t *EncodingTable) Columns() []string {
	if t == nil {
		return nil
	}
	out := make([]string, 0, len(t.columns))
	for name := range t.columns {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
