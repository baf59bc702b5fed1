package editlogs

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Segment is one step of a diff path: a field name or an array index.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

func Key(k string) Segment {
	return Segment{Key: k}
}

func Index(i int) Segment {
	return Segment{Index: i, IsIndex: true}
}

func (s Segment) String() string {
	if s.IsIndex {
		return strconv.Itoa(s.Index)
	}
	return s.Key
}

// Path is persisted as an array mixing strings and integers.
type Path []Segment

func (p Path) Strings() []string {
	out := make([]string, len(p))
	for i, s := range p {
		out[i] = s.String()
	}
	return out
}

func (p Path) String() string {
	return strings.Join(p.Strings(), ".")
}

func (p Path) Equal(o Path) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

func (p Path) append(s Segment) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, s)
}

func (p Path) raw() []any {
	out := make([]any, len(p))
	for i, s := range p {
		if s.IsIndex {
			out[i] = s.Index
		} else {
			out[i] = s.Key
		}
	}
	return out
}

func pathFromRaw(raw []any) (Path, error) {
	p := make(Path, 0, len(raw))
	for _, r := range raw {
		switch v := r.(type) {
		case string:
			p = append(p, Key(v))
		case int:
			p = append(p, Index(v))
		case int32:
			p = append(p, Index(int(v)))
		case int64:
			p = append(p, Index(int(v)))
		case float64:
			p = append(p, Index(int(v)))
		default:
			return nil, fmt.Errorf("unexpected path segment %v (%T)", r, r)
		}
	}
	return p, nil
}

func (p Path) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(p.raw())
}

func (p *Path) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	var raw []any
	if err := (bson.RawValue{Type: t, Value: data}).Unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := pathFromRaw(raw)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func (p Path) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.raw())
}

func (p *Path) UnmarshalJSON(data []byte) error {
	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := pathFromRaw(raw)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
