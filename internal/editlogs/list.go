package editlogs

import (
	"context"
	"sort"
	"time"

	"rim/internal/format"
	"rim/internal/permissions"
)

const (
	EditCreate = "create"
	EditUpdate = "update"
	EditDelete = "delete"
)

// FieldChange is one line of a reshaped entry.
type FieldChange struct {
	Path        string `json:"path"`
	ValueBefore any    `json:"valueBefore,omitempty"`
	ValueAfter  any    `json:"valueAfter,omitempty"`
	EditType    string `json:"editType"`
}

// View is the client shape of an entry.
type View struct {
	Who    Who           `json:"who"`
	Date   time.Time     `json:"date"`
	Item   string        `json:"item"`
	Action string        `json:"action"`
	Diff   []FieldChange `json:"diff"`
}

// List reads the entries of q, most recent first, reshaped for conf.
func (e *Engine) List(ctx context.Context, q Query, conf permissions.Confidentials) ([]View, error) {
	if _, err := e.formatter.Entity(q.Model); err != nil {
		return nil, err
	}

	entries, err := e.store.List(ctx, q)
	if err != nil {
		return nil, err
	}

	views := make([]View, 0, len(entries))
	for _, entry := range entries {
		views = append(views, Reshape(entry, conf))
	}
	return views, nil
}

// Reshape turns an entry into its client view, removing what conf hides.
// Creates and deletes list the snapshot fields as created or deleted.
func Reshape(entry Entry, conf permissions.Confidentials) View {
	v := View{
		Who:    entry.Who,
		Date:   entry.Date,
		Item:   entry.Item.Hex(),
		Action: entry.Action,
		Diff:   []FieldChange{},
	}

	switch entry.Action {
	case ActionCreate, ActionDelete:
		keys := make([]string, 0, len(entry.Data))
		for k := range entry.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if k == "_id" || k == "__v" {
				continue
			}
			c := Change{Kind: New, Path: Path{Key(k)}, RHS: entry.Data[k]}
			if entry.Action == ActionDelete {
				c = Change{Kind: Deleted, Path: Path{Key(k)}, LHS: entry.Data[k]}
			}
			if fc, ok := fieldChange(c, conf); ok {
				v.Diff = append(v.Diff, fc)
			}
		}
	default:
		for _, c := range entry.Diff {
			if fc, ok := fieldChange(c, conf); ok {
				v.Diff = append(v.Diff, fc)
			}
		}
	}
	return v
}

func fieldChange(c Change, conf permissions.Confidentials) (FieldChange, bool) {
	path := c.Path
	kind := c.Kind
	lhs, rhs := c.LHS, c.RHS
	if c.Kind == Array && c.Item != nil && c.Index != nil {
		path = c.Path.append(Index(*c.Index))
		kind = c.Item.Kind
		lhs, rhs = c.Item.LHS, c.Item.RHS
	}

	segments := path.Strings()
	if conf.Hides(segments) {
		return FieldChange{}, false
	}

	fc := FieldChange{Path: path.String(), EditType: editType(kind)}
	if lhs != nil {
		fc.ValueBefore = format.FilterAt(conf, segments, lhs)
	}
	if rhs != nil {
		fc.ValueAfter = format.FilterAt(conf, segments, rhs)
	}
	return fc, true
}

func editType(k Kind) string {
	switch k {
	case New:
		return EditCreate
	case Deleted:
		return EditDelete
	default:
		return EditUpdate
	}
}
