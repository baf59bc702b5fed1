// Package editlogs records every create, update and delete of an entity as an
// append-only edit-log entry: a snapshot for creates and deletes, a
// structural diff for updates.
package editlogs

import (
	"context"
	"errors"
	"time"

	"rim/internal/document"
	"rim/internal/format"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrUserNotFound = errors.New("user not found")

// UserLookup resolves the acting user at write time.
type UserLookup interface {
	FindWho(ctx context.Context, id string) (Who, error)
}

// Mutation describes one entity write as seen by the hooks. Original is nil
// on create.
type Mutation struct {
	Model    string
	Item     primitive.ObjectID
	Original map[string]any
	Current  map[string]any
	ActorID  string
}

type Engine struct {
	formatter *format.Formatter
	users     UserLookup
	writer    *Writer
	store     Store
	log       zerolog.Logger
	now       func() time.Time
}

func NewEngine(formatter *format.Formatter, users UserLookup, writer *Writer, store Store, log zerolog.Logger) *Engine {
	return &Engine{
		formatter: formatter,
		users:     users,
		writer:    writer,
		store:     store,
		log:       log,
		now:       time.Now,
	}
}

// ComputeDiff compares the comparison views of both versions. A diff that
// only restamps the actor field is reported as empty.
func (e *Engine) ComputeDiff(entity string, original, current map[string]any) ([]Change, error) {
	lhs, err := e.formatter.Cleanup(entity, original)
	if err != nil {
		return nil, err
	}
	rhs, err := e.formatter.Cleanup(entity, current)
	if err != nil {
		return nil, err
	}

	changes := Diff(lhs, rhs)
	if OnlyTouches(changes, ActorField) {
		return nil, nil
	}
	return changes, nil
}

// BeforeSave builds the pending entry of a create or update. It returns nil
// when there is nothing to record.
func (e *Engine) BeforeSave(ctx context.Context, m Mutation) (*Entry, error) {
	if m.Original == nil {
		entry := e.entry(ctx, m, ActionCreate)
		entry.Data = snapshot(m.Current)
		return entry, nil
	}

	changes, err := e.ComputeDiff(m.Model, m.Original, m.Current)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return nil, nil
	}

	entry := e.entry(ctx, m, ActionUpdate)
	entry.Diff = changes
	return entry, nil
}

// AfterSave runs once the primary write succeeded.
func (e *Engine) AfterSave(entry *Entry) {
	if entry == nil {
		return
	}
	e.writer.Enqueue(*entry)
}

func (e *Engine) BeforeRemove(ctx context.Context, m Mutation) (*Entry, error) {
	if _, err := e.formatter.Entity(m.Model); err != nil {
		return nil, err
	}

	data := m.Original
	if data == nil {
		data = m.Current
	}

	entry := e.entry(ctx, m, ActionDelete)
	entry.Data = snapshot(data)
	return entry, nil
}

func (e *Engine) AfterRemove(entry *Entry) {
	e.AfterSave(entry)
}

func (e *Engine) entry(ctx context.Context, m Mutation, action string) *Entry {
	entry := &Entry{
		Model:  m.Model,
		Item:   m.Item,
		Date:   e.now().UTC(),
		Action: action,
		Who:    e.resolveWho(ctx, m),
	}
	if id, ok := document.ObjectID(m.ActorID); ok {
		entry.WhoID = id
	}
	return entry
}

func (e *Engine) resolveWho(ctx context.Context, m Mutation) Who {
	if m.ActorID == "" {
		e.log.Error().Str("model", m.Model).Str("item", m.Item.Hex()).Msg("mutation without actor")
		return Who{Roles: []string{}}
	}

	who, err := e.users.FindWho(ctx, m.ActorID)
	if err != nil {
		e.log.Error().Err(err).Str("model", m.Model).Str("item", m.Item.Hex()).Str("actor", m.ActorID).Msg("resolving edit-log actor")
		return Who{Roles: []string{}}
	}
	if who.Roles == nil {
		who.Roles = []string{}
	}
	return who
}

// snapshot copies the top level of doc without the per-request envelope.
func snapshot(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		if k == "opts" {
			continue
		}
		out[k] = v
	}
	return out
}
