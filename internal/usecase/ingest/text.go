package ingest

import (
	"errors"
	"strings"

	"github.com/buger/jsonparser"
)

// skipped fields never feed the embedding input.
var skipped = map[string]bool{
	"id":        true,
	"image":     true,
	"embedding": true,
}

// EmbeddingText renders a raw product record as "key: value" pairs in
// document order, joined by ", ". Arrays render as "[a, b]"; nested
// objects keep their raw JSON.
func EmbeddingText(raw []byte) (string, error) {
	var parts []string
	err := jsonparser.ObjectEach(raw, func(key, value []byte, dataType jsonparser.ValueType, _ int) error {
		k := string(key)
		if skipped[k] {
			return nil
		}
		v, err := renderValue(value, dataType)
		if err != nil {
			return err
		}
		parts = append(parts, k+": "+v)
		return nil
	})
	if err != nil {
		return "", err
	}
	return strings.Join(parts, ", "), nil
}

func renderValue(value []byte, dataType jsonparser.ValueType) (string, error) {
	switch dataType {
	case jsonparser.String:
		return jsonparser.ParseString(value)
	case jsonparser.Array:
		var items []string
		var itemErr error
		_, err := jsonparser.ArrayEach(value, func(v []byte, t jsonparser.ValueType, _ int, _ error) {
			if itemErr != nil {
				return
			}
			s, err := renderValue(v, t)
			if err != nil {
				itemErr = err
				return
			}
			items = append(items, s)
		})
		if err := errors.Join(err, itemErr); err != nil {
			return "", err
		}
		return "[" + strings.Join(items, ", ") + "]", nil
	default:
		return string(value), nil
	}
}
