package picker

import "fmt"

// Item is one candidate: the display text the matcher sees, the original
// value, and optional locator fields for record-shaped inputs.
type Item struct {
	Text    string
	Data    any
	Path    string
	Lnum    int
	Col     int
	EndLnum int
	EndCol  int
}

// normalizeBatch classifies raw inputs into Items and derives their display
// text. It runs once per batch; matching never re-derives text.
func normalizeBatch(values []any) ([]Item, []string) {
	items := make([]Item, len(values))
	strs := make([]string, len(values))
	for i, v := range values {
		items[i] = normalizeValue(v, true)
		strs[i] = items[i].Text
	}
	return items, strs
}

// normalizeValue maps one raw input to an Item. A func() any input is
// resolved exactly once, at batch-set time, and its result re-classified;
// allowDeferred guards that single resolution.
func normalizeValue(v any, allowDeferred bool) Item {
	switch t := v.(type) {
	case string:
		return Item{Text: t, Data: t}
	case Item:
		return derivedText(t)
	case *Item:
		if t == nil {
			return Item{}
		}
		return derivedText(*t)
	case map[string]any:
		return itemFromMap(t)
	case func() any:
		if allowDeferred && t != nil {
			return normalizeValue(t(), false)
		}
	case nil:
		return Item{}
	}
	return Item{Text: fmt.Sprint(v), Data: v}
}

func derivedText(it Item) Item {
	if it.Text == "" && it.Data != nil {
		it.Text = fmt.Sprint(it.Data)
	}
	return it
}

func itemFromMap(m map[string]any) Item {
	it := Item{Data: m}
	if s, ok := m["text"].(string); ok {
		it.Text = s
	} else {
		it.Text = fmt.Sprint(m)
	}
	if s, ok := m["path"].(string); ok {
		it.Path = s
	}
	it.Lnum = intField(m, "lnum")
	it.Col = intField(m, "col")
	it.EndLnum = intField(m, "end_lnum")
	it.EndCol = intField(m, "end_col")
	return it
}

func intField(m map[string]any, key string) int {
	switch n := m[key].(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}
