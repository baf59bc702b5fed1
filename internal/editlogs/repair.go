package editlogs

import (
	"context"
	"fmt"
	"reflect"

	"rim/internal/document"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Repair cleans diffs recorded before references were compared by id:
//   - an adjacent D/N pair on one path where a side is a legacy binary
//     reference becomes a single E,
//   - D/N pairs carrying the same normalized value cancel out,
//   - E changes whose sides normalize to the same value are dropped.
func Repair(changes []Change) []Change {
	merged := make([]Change, 0, len(changes))
	for i := 0; i < len(changes); i++ {
		if i+1 < len(changes) {
			if e, ok := mergeBinaryPair(changes[i], changes[i+1]); ok {
				merged = append(merged, e)
				i++
				continue
			}
		}
		merged = append(merged, changes[i])
	}

	used := make([]bool, len(merged))
	for i := range merged {
		if used[i] {
			continue
		}
		for j := i + 1; j < len(merged); j++ {
			if used[j] {
				continue
			}
			if cancels(merged[i], merged[j]) {
				used[i], used[j] = true, true
				break
			}
		}
	}

	out := make([]Change, 0, len(merged))
	for i, c := range merged {
		if used[i] {
			continue
		}
		if c.Kind == Edited && equivalent(c.LHS, c.RHS) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// flat reduces array changes to their item so pairs can be compared on the
// element path.
type flat struct {
	kind  Kind
	path  string
	value any
}

func flatten(c Change) flat {
	if c.Kind == Array && c.Item != nil && c.Index != nil {
		f := flatten(*c.Item)
		f.path = c.Path.append(Index(*c.Index)).String()
		return f
	}
	f := flat{kind: c.Kind, path: c.Path.String()}
	switch c.Kind {
	case Deleted:
		f.value = c.LHS
	case New:
		f.value = c.RHS
	}
	return f
}

func complementary(a, b flat) (del, ins flat, ok bool) {
	if a.path != b.path {
		return flat{}, flat{}, false
	}
	switch {
	case a.kind == Deleted && b.kind == New:
		return a, b, true
	case a.kind == New && b.kind == Deleted:
		return b, a, true
	}
	return flat{}, flat{}, false
}

func mergeBinaryPair(a, b Change) (Change, bool) {
	fa, fb := flatten(a), flatten(b)
	del, ins, ok := complementary(fa, fb)
	if !ok {
		return Change{}, false
	}
	if !document.IsBinaryRef(del.value) && !document.IsBinaryRef(ins.value) {
		return Change{}, false
	}

	path := a.Path
	if a.Kind == Array && a.Index != nil {
		path = a.Path.append(Index(*a.Index))
	}
	return Change{Kind: Edited, Path: path, LHS: normalize(del.value), RHS: normalize(ins.value)}, true
}

func cancels(a, b Change) bool {
	del, ins, ok := complementary(flatten(a), flatten(b))
	if !ok {
		return false
	}
	return equivalent(del.value, ins.value)
}

// equivalent compares normalized values. A populated reference matches the
// bare id it was populated from.
func equivalent(a, b any) bool {
	na, nb := normalize(a), normalize(b)
	if reflect.DeepEqual(na, nb) {
		return true
	}
	if id, ok := na.(string); ok {
		return populatedMatches(b, id)
	}
	if id, ok := nb.(string); ok {
		return populatedMatches(a, id)
	}
	return false
}

func populatedMatches(v any, id string) bool {
	m, ok := document.AsMap(v)
	if !ok {
		return false
	}
	populated, ok := populatedID(m)
	return ok && populated == id
}

// normalize renders ids as hex strings and numbers as float64.
func normalize(v any) any {
	if v == nil {
		return nil
	}
	switch t := v.(type) {
	case primitive.ObjectID:
		return t.Hex()
	case string, bool:
		return t
	}
	if document.IsBinaryRef(v) {
		id, _ := document.RefID(v)
		return id
	}
	if f, ok := toFloat(v); ok {
		return f
	}
	if m, ok := document.AsMap(v); ok {
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[k] = normalize(val)
		}
		return out
	}
	if items, ok := document.AsSlice(v); ok {
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = normalize(item)
		}
		return out
	}
	return v
}

// populatedID recognizes a populated reference: a document carrying its own
// id next to other fields.
func populatedID(m map[string]any) (string, bool) {
	raw, ok := m["_id"]
	if !ok {
		raw, ok = m["id"]
	}
	if !ok {
		return "", false
	}
	return document.RefID(raw)
}

// RecordError ties a repair failure to the entry it happened on.
type RecordError struct {
	ID  primitive.ObjectID
	Err error
}

func (r RecordError) Error() string {
	return fmt.Sprintf("%s: %v", r.ID.Hex(), r.Err)
}

type RepairReport struct {
	Scanned  int
	Repaired int
	Emptied  int
	Errors   []RecordError
}

// RepairBatch runs Repair over every update entry of model (all models when
// empty). Failures are collected per record and do not stop the pass.
func RepairBatch(ctx context.Context, store Store, model string, dryRun bool, log zerolog.Logger) (RepairReport, error) {
	var report RepairReport

	err := store.ForEach(ctx, Scan{Model: model, Action: ActionUpdate}, func(e Entry, decodeErr error) error {
		report.Scanned++
		if decodeErr != nil {
			report.Errors = append(report.Errors, RecordError{ID: e.ID, Err: decodeErr})
			return nil
		}

		fixed := Repair(e.Diff)
		if sameChanges(fixed, e.Diff) {
			return nil
		}

		report.Repaired++
		if len(fixed) == 0 {
			report.Emptied++
		}
		log.Debug().Str("entry", e.ID.Hex()).Int("before", len(e.Diff)).Int("after", len(fixed)).Msg("diff repaired")

		if dryRun {
			return nil
		}
		if err := store.SetFields(ctx, e.ID, map[string]any{"diff": fixed}); err != nil {
			report.Errors = append(report.Errors, RecordError{ID: e.ID, Err: err})
		}
		return nil
	})

	return report, err
}

func sameChanges(a, b []Change) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !reflect.DeepEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

type BackfillReport struct {
	Scanned int
	Updated int
	Skipped int
	Errors  []RecordError
}

// BackfillWhoID sets whoID from who.id on entries written before the field
// existed. Entries whose actor id is not an ObjectID are skipped.
func BackfillWhoID(ctx context.Context, store Store, dryRun bool) (BackfillReport, error) {
	var report BackfillReport

	err := store.ForEach(ctx, Scan{MissingWhoID: true}, func(e Entry, decodeErr error) error {
		report.Scanned++
		if decodeErr != nil {
			report.Errors = append(report.Errors, RecordError{ID: e.ID, Err: decodeErr})
			return nil
		}

		id, err := primitive.ObjectIDFromHex(e.Who.ID)
		if err != nil {
			report.Skipped++
			return nil
		}

		report.Updated++
		if dryRun {
			return nil
		}
		if err := store.SetFields(ctx, e.ID, map[string]any{"whoID": id}); err != nil {
			report.Errors = append(report.Errors, RecordError{ID: e.ID, Err: err})
		}
		return nil
	})

	return report, err
}
