package definitions

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-json"
)

func parseJSON(data []byte) (*Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	node, err := readJSON(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after top-level value")
	}
	return node, nil
}

func readJSON(dec *json.Decoder) (*Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := NewObject()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("unexpected object key %v", keyTok)
				}
				value, err := readJSON(dec)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", key, err)
				}
				obj.Set(key, value)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		case '[':
			list := &Node{Kind: List}
			for dec.More() {
				item, err := readJSON(dec)
				if err != nil {
					return nil, fmt.Errorf("[%d]: %w", len(list.Items), err)
				}
				list.Items = append(list.Items, item)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return list, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return &Node{Kind: Scalar, Value: int(i)}, nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, err
		}
		return &Node{Kind: Scalar, Value: f}, nil
	default:
		// string, bool or nil
		return &Node{Kind: Scalar, Value: t}, nil
	}
}
