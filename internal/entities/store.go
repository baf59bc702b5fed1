// Package entities persists schema-driven documents. Every mutation runs
// load, mutate, validate, the before hook, the write and the after hook in
// that order, so edit-log entries are only recorded for writes that happened.
package entities

import (
	"context"
	"errors"

	"rim/internal/document"
	"rim/internal/editlogs"
	"rim/internal/format"
	"rim/internal/permissions"
	"rim/internal/schema"

	"github.com/rs/zerolog"
	"github.com/tiendc/go-deepcopy"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrForbidden = errors.New("caller may not edit this entity")

// Hooks observe the mutation pipeline.
type Hooks interface {
	BeforeSave(ctx context.Context, m editlogs.Mutation) (*editlogs.Entry, error)
	AfterSave(entry *editlogs.Entry)
	BeforeRemove(ctx context.Context, m editlogs.Mutation) (*editlogs.Entry, error)
	AfterRemove(entry *editlogs.Entry)
}

// Instance is a loaded document together with the snapshot taken at load.
type Instance struct {
	Model string
	ID    primitive.ObjectID
	Doc   map[string]any

	original map[string]any
}

func newInstance(model string, doc map[string]any) *Instance {
	inst := &Instance{Model: model, Doc: doc}
	if id, ok := doc["_id"].(primitive.ObjectID); ok {
		inst.ID = id
	}
	if err := deepcopy.Copy(&inst.original, doc); err != nil {
		inst.original = nil
	}
	return inst
}

// Original is the document as it was loaded, nil for new instances.
func (i *Instance) Original() map[string]any {
	return i.original
}

type Store struct {
	schemas     *schema.Registry
	formatter   *format.Formatter
	perms       *permissions.Filter
	hooks       Hooks
	collections Collections
	log         zerolog.Logger
}

func NewStore(schemas *schema.Registry, formatter *format.Formatter, perms *permissions.Filter, hooks Hooks, collections Collections, log zerolog.Logger) *Store {
	return &Store{
		schemas:     schemas,
		formatter:   formatter,
		perms:       perms,
		hooks:       hooks,
		collections: collections,
		log:         log,
	}
}

// EnsureIndexes applies the index models of every compiled entity.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	for _, name := range s.schemas.Names() {
		storage, err := s.schemas.CompileStorage(name)
		if err != nil {
			return err
		}
		if err := s.collections(name).EnsureIndexes(ctx, storage.Indexes()); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Load(ctx context.Context, model string, id primitive.ObjectID) (*Instance, error) {
	if _, err := s.schemas.Entity(model); err != nil {
		return nil, err
	}

	doc, err := s.collections(model).FindOne(ctx, id)
	if err != nil {
		return nil, err
	}
	return newInstance(model, doc), nil
}

func (s *Store) List(ctx context.Context, model string, skip, limit int64) ([]*Instance, error) {
	if _, err := s.schemas.Entity(model); err != nil {
		return nil, err
	}

	docs, err := s.collections(model).Find(ctx, skip, limit)
	if err != nil {
		return nil, err
	}

	out := make([]*Instance, len(docs))
	for i, doc := range docs {
		out[i] = newInstance(model, doc)
	}
	return out, nil
}

// Create parses the client payload, fills defaults and stores a new document.
func (s *Store) Create(ctx context.Context, caller permissions.Caller, model string, payload map[string]any) (*Instance, error) {
	storage, err := s.schemas.CompileStorage(model)
	if err != nil {
		return nil, err
	}

	conf, err := s.perms.Confidentials(caller, model)
	if err != nil {
		return nil, err
	}

	doc, err := s.formatter.Parse(model, payload)
	if err != nil {
		return nil, err
	}
	dropNulls(doc)
	conf.Restore(nil, doc)
	doc["_id"] = primitive.NewObjectID()
	storage.ApplyDefaults(doc)
	stamp(storage.Entity, doc, caller)

	if !s.perms.Editable(caller, model, doc) {
		return nil, ErrForbidden
	}
	if err := storage.Validate(doc); err != nil {
		return nil, err
	}

	inst := &Instance{Model: model, ID: doc["_id"].(primitive.ObjectID), Doc: doc}

	entry, err := s.hooks.BeforeSave(ctx, s.mutation(inst, caller))
	if err != nil {
		return nil, err
	}
	if err := s.collections(model).Insert(ctx, doc); err != nil {
		return nil, err
	}
	s.hooks.AfterSave(entry)

	return newInstance(model, doc), nil
}

// Update applies payload to the stored document: top-level keys replace a
// field, dotted keys replace one sub-field and null removes what is
// addressed. Paths hidden from the caller keep their stored values.
func (s *Store) Update(ctx context.Context, caller permissions.Caller, model string, id primitive.ObjectID, payload map[string]any) (*Instance, error) {
	storage, err := s.schemas.CompileStorage(model)
	if err != nil {
		return nil, err
	}

	inst, err := s.Load(ctx, model, id)
	if err != nil {
		return nil, err
	}
	if !s.perms.Editable(caller, model, inst.Doc) {
		return nil, ErrForbidden
	}

	conf, err := s.perms.Confidentials(caller, model)
	if err != nil {
		return nil, err
	}

	doc, err := s.formatter.Patch(model, inst.Doc, payload)
	if err != nil {
		return nil, err
	}
	doc["_id"] = inst.ID
	conf.Restore(inst.Doc, doc)
	inst.Doc = doc
	stamp(storage.Entity, inst.Doc, caller)

	if err := storage.Validate(inst.Doc); err != nil {
		return nil, err
	}

	entry, err := s.hooks.BeforeSave(ctx, s.mutation(inst, caller))
	if err != nil {
		return nil, err
	}
	if err := s.collections(model).Replace(ctx, id, inst.Doc); err != nil {
		return nil, err
	}
	s.hooks.AfterSave(entry)

	return newInstance(model, inst.Doc), nil
}

func (s *Store) Delete(ctx context.Context, caller permissions.Caller, model string, id primitive.ObjectID) error {
	inst, err := s.Load(ctx, model, id)
	if err != nil {
		return err
	}
	if !s.perms.Editable(caller, model, inst.Doc) {
		return ErrForbidden
	}

	entry, err := s.hooks.BeforeRemove(ctx, s.mutation(inst, caller))
	if err != nil {
		return err
	}
	if err := s.collections(model).Delete(ctx, id); err != nil {
		return err
	}
	s.hooks.AfterRemove(entry)

	return nil
}

func (s *Store) mutation(inst *Instance, caller permissions.Caller) editlogs.Mutation {
	return editlogs.Mutation{
		Model:    inst.Model,
		Item:     inst.ID,
		Original: inst.original,
		Current:  inst.Doc,
		ActorID:  caller.ID,
	}
}

// stamp records the caller as the last editor on entities tracking one.
func stamp(entity *schema.Entity, doc map[string]any, caller permissions.Caller) {
	if entity.Field(editlogs.ActorField) == nil {
		return
	}
	if id, ok := document.ObjectID(caller.ID); ok {
		doc[editlogs.ActorField] = id
	}
}

func dropNulls(doc map[string]any) {
	for k, v := range doc {
		if v == nil {
			delete(doc, k)
		}
	}
}
