package budget

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// CategoryAmounts is a category -> cents mapping that remembers the order in
// which categories were first added. Alert generation and rendering iterate
// it in that order.
//
// The zero value is not usable; create one with NewCategoryAmounts. Read
// methods are safe on a nil receiver.
type CategoryAmounts struct {
	keys   []string
	amount map[string]int64
}

// CategoryAmount is one entry of a CategoryAmounts.
type CategoryAmount struct {
	Category string `json:"category"`
	Cents    int64  `json:"cents"`
}

func NewCategoryAmounts() *CategoryAmounts {
	return &CategoryAmounts{amount: make(map[string]int64)}
}

// Add accumulates cents into category.
func (c *CategoryAmounts) Add(category string, cents int64) {
	if _, ok := c.amount[category]; !ok {
		c.keys = append(c.keys, category)
	}
	c.amount[category] += cents
}

// Get returns the amount for category and whether it is present.
func (c *CategoryAmounts) Get(category string) (int64, bool) {
	if c == nil {
		return 0, false
	}
	v, ok := c.amount[category]
	return v, ok
}

// Value returns the amount for category, zero when absent.
func (c *CategoryAmounts) Value(category string) int64 {
	v, _ := c.Get(category)
	return v
}

func (c *CategoryAmounts) Len() int {
	if c == nil {
		return 0
	}
	return len(c.keys)
}

// Keys returns the categories in first-seen order.
func (c *CategoryAmounts) Keys() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.keys...)
}

// Entries returns the mapping as a slice in first-seen order.
func (c *CategoryAmounts) Entries() []CategoryAmount {
	if c == nil {
		return nil
	}
	out := make([]CategoryAmount, 0, len(c.keys))
	for _, k := range c.keys {
		out = append(out, CategoryAmount{Category: k, Cents: c.amount[k]})
	}
	return out
}

// MarshalJSON encodes the mapping as a JSON object, keys in first-seen order.
func (c *CategoryAmounts) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range c.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		fmt.Fprintf(&buf, ":%d", c.amount[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping the document's key order.
func (c *CategoryAmounts) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("category amounts: expected object, got %v", tok)
	}
	*c = CategoryAmounts{amount: make(map[string]int64)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var cents int64
		if err := dec.Decode(&cents); err != nil {
			return fmt.Errorf("category amounts: %q: %w", key, err)
		}
		c.Add(key, cents)
	}
	_, err = dec.Token()
	return err
}
