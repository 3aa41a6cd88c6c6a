package source

import (
	"github.com/tidwall/gjson"

	"github.com/dshills/quickpick/picker"
)

// Transform maps collected output lines to the raw item values handed to
// the session. A transform error fails the whole load; no partial batch is
// delivered.
type Transform func(lines []string) ([]any, error)

// TextLines keeps each line as its own item text.
func TextLines() Transform {
	return func(lines []string) ([]any, error) {
		values := make([]any, len(lines))
		for i, line := range lines {
			values[i] = line
		}
		return values, nil
	}
}

// JSONLines decodes each line as a JSON object: textField becomes the item
// text, the locator fields path, lnum, col, end_lnum and end_col carry over
// when present, and the raw line rides along as the item data. Lines that
// are not JSON objects, or that lack textField, pass through as plain text.
func JSONLines(textField string) Transform {
	return func(lines []string) ([]any, error) {
		values := make([]any, len(lines))
		for i, line := range lines {
			values[i] = jsonValue(line, textField)
		}
		return values, nil
	}
}

func jsonValue(line, textField string) any {
	if !gjson.Valid(line) {
		return line
	}
	parsed := gjson.Parse(line)
	if !parsed.IsObject() {
		return line
	}
	text := parsed.Get(textField)
	if !text.Exists() {
		return line
	}
	return picker.Item{
		Text:    text.String(),
		Data:    line,
		Path:    parsed.Get("path").String(),
		Lnum:    int(parsed.Get("lnum").Int()),
		Col:     int(parsed.Get("col").Int()),
		EndLnum: int(parsed.Get("end_lnum").Int()),
		EndCol:  int(parsed.Get("end_col").Int()),
	}
}
