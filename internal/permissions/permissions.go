// Package permissions decides what a caller may see and edit. It performs no
// I/O: every decision is computed from the caller, the compiled schema and
// the scope paths loaded at startup.
package permissions

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"rim/internal/definitions"
	"rim/internal/document"
	"rim/internal/schema"
)

const (
	CentralAdmin  = "admin"
	CentralReader = "reader"

	OrganizationAdmin  = "admin"
	OrganizationMember = "member"
)

type Caller struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	CentralRole       string            `json:"centralRole,omitempty"`
	OrganizationRoles map[string]string `json:"organizationRoles,omitempty"`
}

func (c Caller) IsCentral() bool {
	return c.CentralRole == CentralAdmin || c.CentralRole == CentralReader
}

// Roles flattens the caller roles for audit attribution, e.g.
// ["admin"] or ["member@5f...", "admin@60..."].
func (c Caller) Roles() []string {
	roles := []string{}
	if c.CentralRole != "" {
		roles = append(roles, c.CentralRole)
	}

	orgs := make([]string, 0, len(c.OrganizationRoles))
	for org := range c.OrganizationRoles {
		orgs = append(orgs, org)
	}
	sort.Strings(orgs)
	for _, org := range orgs {
		roles = append(roles, c.OrganizationRoles[org]+"@"+org)
	}
	return roles
}

type Opts struct {
	Editable         bool     `json:"editable"`
	RestrictedFields []string `json:"restrictedFields"`
	Path             string   `json:"path"`
}

type Filter struct {
	schemas *schema.Registry
	scopes  map[string][]string

	mu       sync.Mutex
	matchers map[string][]matcher
}

// New reads the per-entity scope paths from the permissions definition. A
// missing definition leaves every scoped caller without edit rights.
func New(src definitions.Source, schemas *schema.Registry) (*Filter, error) {
	f := &Filter{
		schemas:  schemas,
		scopes:   map[string][]string{},
		matchers: map[string][]matcher{},
	}

	node, err := src.Load("", definitions.PermissionsFile)
	if errors.Is(err, definitions.ErrNotFound) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("permissions: %w", err)
	}

	scopes, ok := node.Get("scopes")
	if !ok {
		return f, nil
	}
	if scopes.Kind != definitions.Object {
		return nil, errors.New("permissions: scopes must be an object")
	}
	for _, entity := range scopes.Keys() {
		paths, _ := scopes.Get(entity)
		if paths.Kind != definitions.List {
			return nil, fmt.Errorf("permissions: scopes.%s must be a list", entity)
		}
		for _, p := range paths.Items {
			if s, ok := p.String(); ok {
				f.scopes[entity] = append(f.scopes[entity], s)
			}
		}
	}
	return f, nil
}

// Confidentials describes the redaction applying to caller on entity.
func (f *Filter) Confidentials(caller Caller, entity string) (Confidentials, error) {
	if caller.IsCentral() {
		return Confidentials{Viewable: true, Paths: []string{}}, nil
	}

	matchers, err := f.compiled(entity)
	if err != nil {
		return Confidentials{}, err
	}

	paths := make([]string, len(matchers))
	for i, m := range matchers {
		paths[i] = m.pattern
	}
	return Confidentials{Paths: paths, matchers: matchers}, nil
}

func (f *Filter) compiled(entity string) ([]matcher, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if m, ok := f.matchers[entity]; ok {
		return m, nil
	}

	e, err := f.schemas.Entity(entity)
	if err != nil {
		return nil, err
	}

	patterns := e.ConfidentialPatterns()
	matchers := make([]matcher, len(patterns))
	for i, p := range patterns {
		matchers[i] = compile(p)
	}
	f.matchers[entity] = matchers
	return matchers, nil
}

// Editable reports whether caller may modify doc.
func (f *Filter) Editable(caller Caller, entity string, doc map[string]any) bool {
	switch caller.CentralRole {
	case CentralAdmin:
		return true
	case CentralReader:
		return false
	}

	for _, path := range f.scopes[entity] {
		for _, v := range Values(doc, compile(path).segments) {
			id, ok := document.RefID(v)
			if !ok {
				continue
			}
			switch caller.OrganizationRoles[id] {
			case OrganizationAdmin, OrganizationMember:
				return true
			}
		}
	}
	return false
}

// Opts builds the volatile envelope attached to an instance for caller.
func (f *Filter) Opts(caller Caller, entity string, doc map[string]any) (Opts, error) {
	conf, err := f.Confidentials(caller, entity)
	if err != nil {
		return Opts{}, err
	}

	path := "/" + entity
	if id, ok := document.RefID(doc["_id"]); ok {
		path += "/" + id
	}

	return Opts{
		Editable:         f.Editable(caller, entity, doc),
		RestrictedFields: conf.Paths,
		Path:             path,
	}, nil
}
