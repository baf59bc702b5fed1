// Package schema compiles the declarative entity definitions into typed
// descriptor trees, storage schemas (validation, defaults, indexes) and
// front schemas served to clients.
package schema

import (
	"fmt"
	"sync"

	"rim/internal/definitions"
	"rim/internal/enums"
)

type frontKey struct {
	entity              string
	includeConfidential bool
}

// Registry compiles every entity once and caches derived schemas. It is built
// at startup and handed to the components that need it.
type Registry struct {
	names    []string
	entities map[string]*Entity
	storage  map[string]*StorageSchema

	mu    sync.Mutex
	front map[frontKey]*FrontSchema
}

// NewRegistry compiles all schema definitions. Any authoring problem is
// reported through a *CompileError listing every offending path.
func NewRegistry(src definitions.Source, enumRegistry *enums.Registry) (*Registry, error) {
	names, err := src.Names(definitions.Schemas)
	if err != nil {
		return nil, err
	}

	r := &Registry{
		names:    names,
		entities: map[string]*Entity{},
		storage:  map[string]*StorageSchema{},
		front:    map[frontKey]*FrontSchema{},
	}

	errs := &CompileError{}
	for _, name := range names {
		node, err := src.Load(definitions.Schemas, name)
		if err != nil {
			return nil, err
		}
		if node.Kind != definitions.Object {
			errs.add(name, "", "schema root must be an object")
			continue
		}

		c := &compiler{entity: name, enums: enumRegistry, errs: errs}
		fields := c.fields(node, "")
		entity := &Entity{Name: name, Fields: fields, byName: index(fields)}

		r.entities[name] = entity
		r.storage[name] = &StorageSchema{Entity: entity, enums: enumRegistry}
	}

	if err := errs.err(); err != nil {
		return nil, err
	}
	return r, nil
}

// Names lists the compiled entities in alphabetical order.
func (r *Registry) Names() []string {
	return r.names
}

func (r *Registry) Entity(name string) (*Entity, error) {
	e, ok := r.entities[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrUnknownEntity)
	}
	return e, nil
}

func (r *Registry) CompileStorage(name string) (*StorageSchema, error) {
	s, ok := r.storage[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrUnknownEntity)
	}
	return s, nil
}

func (r *Registry) CompileFront(name string, includeConfidential bool) (*FrontSchema, error) {
	entity, err := r.Entity(name)
	if err != nil {
		return nil, err
	}

	key := frontKey{entity: name, includeConfidential: includeConfidential}

	r.mu.Lock()
	defer r.mu.Unlock()

	if fs, ok := r.front[key]; ok {
		return fs, nil
	}

	fs := newFrontSchema(entity, includeConfidential)
	r.front[key] = fs
	return fs, nil
}
