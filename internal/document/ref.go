package document

import (
	"encoding/hex"
	"sort"
	"strconv"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RefID returns the bare identifier carried by a reference value, whatever
// its shape: an ObjectID, a hex string, a populated document, a 12 byte
// binary or one of the serialized ObjectID forms found in old edit logs.
func RefID(v any) (string, bool) {
	switch r := v.(type) {
	case nil:
		return "", false
	case primitive.ObjectID:
		return r.Hex(), true
	case *primitive.ObjectID:
		if r == nil {
			return "", false
		}
		return r.Hex(), true
	case string:
		return r, r != ""
	case primitive.Binary:
		return bytesID(r.Data)
	case []byte:
		return bytesID(r)
	}

	if m, ok := AsMap(v); ok {
		return mapRefID(m)
	}
	if s, ok := AsSlice(v); ok {
		return numbersID(s)
	}
	return "", false
}

// IsBinaryRef reports whether v is one of the serialized ObjectID shapes
// that leaked into historical diffs instead of a plain id string.
func IsBinaryRef(v any) bool {
	switch v.(type) {
	case primitive.Binary, []byte:
		_, ok := RefID(v)
		return ok
	}
	m, ok := AsMap(v)
	if !ok {
		return false
	}
	if t, _ := m["_bsontype"].(string); t == "ObjectID" || t == "ObjectId" {
		return true
	}
	if _, ok := m["buffer"]; ok {
		return true
	}
	if t, _ := m["type"].(string); t == "Buffer" {
		return true
	}
	return false
}

func mapRefID(m map[string]any) (string, bool) {
	if t, _ := m["_bsontype"].(string); t == "ObjectID" || t == "ObjectId" {
		if id, ok := m["id"]; ok {
			return RefID(id)
		}
	}
	if buf, ok := m["buffer"]; ok {
		return RefID(buf)
	}
	if t, _ := m["type"].(string); t == "Buffer" {
		return RefID(m["data"])
	}
	if id, ok := m["_id"]; ok {
		return RefID(id)
	}
	if id, ok := m["id"]; ok {
		return RefID(id)
	}
	if len(m) == 12 {
		return indexedBytesID(m)
	}
	return "", false
}

func bytesID(b []byte) (string, bool) {
	if len(b) != 12 {
		return "", false
	}
	return hex.EncodeToString(b), true
}

func numbersID(s []any) (string, bool) {
	if len(s) != 12 {
		return "", false
	}
	b := make([]byte, 12)
	for i, x := range s {
		n, ok := toByte(x)
		if !ok {
			return "", false
		}
		b[i] = n
	}
	return hex.EncodeToString(b), true
}

// indexedBytesID reads {"0": 93, "1": 12, ...} maps.
func indexedBytesID(m map[string]any) (string, bool) {
	keys := make([]int, 0, len(m))
	for k := range m {
		i, err := strconv.Atoi(k)
		if err != nil {
			return "", false
		}
		keys = append(keys, i)
	}
	sort.Ints(keys)

	b := make([]byte, 12)
	for pos, i := range keys {
		if i != pos {
			return "", false
		}
		n, ok := toByte(m[strconv.Itoa(i)])
		if !ok {
			return "", false
		}
		b[pos] = n
	}
	return hex.EncodeToString(b), true
}

func toByte(v any) (byte, bool) {
	var n int64
	switch x := v.(type) {
	case int:
		n = int64(x)
	case int32:
		n = int64(x)
	case int64:
		n = x
	case float64:
		n = int64(x)
		if float64(n) != x {
			return 0, false
		}
	default:
		return 0, false
	}
	if n < 0 || n > 255 {
		return 0, false
	}
	return byte(n), true
}

// ObjectID converts any reference shape into an ObjectID.
func ObjectID(v any) (primitive.ObjectID, bool) {
	if oid, ok := v.(primitive.ObjectID); ok {
		return oid, true
	}
	id, ok := RefID(v)
	if !ok {
		return primitive.NilObjectID, false
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return oid, true
}
