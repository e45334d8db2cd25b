package engine

import (
	"strings"
	"time"

	"github.com/donaldgifford/marketplace-sync/internal/fetch"
)

const rowTimeLayout = "2006-01-02 15:04"

// column renders one sink column of a record.
type column struct {
	header string
	value  func(r fetch.Record, loc *time.Location) string
}

type table []column

// rows renders a header row followed by one row per record.
func (t table) rows(records []fetch.Record, loc *time.Location) [][]string {
	out := make([][]string, 0, len(records)+1)
	header := make([]string, len(t))
	for i, c := range t {
		header[i] = c.header
	}
	out = append(out, header)
	for _, r := range records {
		row := make([]string, len(t))
		for i, c := range t {
			row[i] = c.value(r, loc)
		}
		out = append(out, row)
	}
	return out
}

func field(header string, path ...string) column {
	return column{header: header, value: func(r fetch.Record, _ *time.Location) string {
		return lookup(r, path).String(path[len(path)-1])
	}}
}

// fieldOr falls back to def when the field is empty.
func fieldOr(header, name, def string) column {
	return column{header: header, value: func(r fetch.Record, _ *time.Location) string {
		if v := r.String(name); v != "" {
			return v
		}
		return def
	}}
}

// unixField renders a unix-seconds field as local time.
func unixField(header, name string) column {
	return column{header: header, value: func(r fetch.Record, loc *time.Location) string {
		t, ok := r.Unix(name)
		if !ok {
			return r.String(name)
		}
		return t.In(loc).Format(rowTimeLayout)
	}}
}

// listField joins the scalar elements of an array field.
func listField(header, name string) column {
	return column{header: header, value: func(r fetch.Record, _ *time.Location) string {
		items, ok := r[name].([]any)
		if !ok {
			return r.String(name)
		}
		parts := make([]string, 0, len(items))
		for _, it := range items {
			parts = append(parts, fetch.Record{"v": it}.String("v"))
		}
		return strings.Join(parts, ", ")
	}}
}

// lookup walks all but the last element of path through nested objects and
// returns the object holding the final field. A missing step yields an empty
// record.
func lookup(r fetch.Record, path []string) fetch.Record {
	cur := r
	for _, k := range path[:len(path)-1] {
		next, ok := cur[k].(map[string]any)
		if !ok {
			return fetch.Record{}
		}
		cur = next
	}
	return cur
}
