package fetch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Record is one decoded item of a page. Numbers are json.Number so identifiers
// and amounts keep their exact textual form.
type Record map[string]any

// Extractor pulls the records out of an envelope's data.
type Extractor func(data json.RawMessage) ([]Record, error)

// KeyFunc derives the dedup identity of a record.
type KeyFunc func(Record) string

// ListAt extracts the array found by walking the object keys in path.
// A missing or null array is an empty page.
func ListAt(path ...string) Extractor {
	return func(data json.RawMessage) ([]Record, error) {
		var node any
		if err := decode(data, &node); err != nil {
			return nil, fmt.Errorf("decoding page: %w", err)
		}
		for _, key := range path {
			obj, ok := node.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("decoding page: %q is not an object", key)
			}
			node = obj[key]
		}
		if node == nil {
			return nil, nil
		}
		items, ok := node.([]any)
		if !ok {
			return nil, fmt.Errorf("decoding page: %s is not an array", strings.Join(path, "."))
		}
		out := make([]Record, 0, len(items))
		for i, item := range items {
			obj, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("decoding page: item %d is not an object", i)
			}
			out = append(out, Record(obj))
		}
		return out, nil
	}
}

func decode(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

// String renders field of r as text. Missing fields render as "".
func (r Record) String(field string) string {
	switch v := r[field].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}

// Unix reads field as a unix-seconds timestamp.
func (r Record) Unix(field string) (time.Time, bool) {
	s := r.String(field)
	if s == "" {
		return time.Time{}, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return time.Time{}, false
		}
		n = int64(f)
	}
	return time.Unix(n, 0), true
}

const keySep = "\x1f"

// FieldKey builds a KeyFunc joining the textual values of fields.
func FieldKey(fields ...string) KeyFunc {
	return func(r Record) string {
		parts := make([]string, len(fields))
		for i, f := range fields {
			parts[i] = r.String(f)
		}
		return strings.Join(parts, keySep)
	}
}

// descriptionKeyRunes bounds the description's share of a wallet key. Long
// descriptions that differ only after this prefix collide; the bound is kept
// for compatibility with previously exported data.
const descriptionKeyRunes = 100

// WalletKey identifies a wallet transaction by create time, order number,
// amount, transaction type and the first 100 runes of its description.
// Amounts are compared numerically, so "12.50" and "12.5" are equal.
func WalletKey(r Record) string {
	desc := []rune(r.String("description"))
	if len(desc) > descriptionKeyRunes {
		desc = desc[:descriptionKeyRunes]
	}
	return strings.Join([]string{
		r.String("create_time"),
		r.String("order_sn"),
		normalizeAmount(r.String("amount")),
		r.String("transaction_type"),
		string(desc),
	}, keySep)
}

func normalizeAmount(s string) string {
	if s == "" {
		return ""
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return s
	}
	return d.String()
}

// recordKey is the fallback identity: the canonical JSON of the record.
func recordKey(r Record) string {
	b, err := json.Marshal(map[string]any(r))
	if err != nil {
		return fmt.Sprint(map[string]any(r))
	}
	return string(b)
}
