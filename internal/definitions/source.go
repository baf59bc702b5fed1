package definitions

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Definition kinds, one directory each under the definitions root.
const (
	Schemas    = "schemas"
	Layouts    = "layouts"
	Enums      = "enums"
	References = "references"
)

// PermissionsFile lives at the definitions root.
const PermissionsFile = "permissions"

var ErrNotFound = errors.New("definition not found")

var extensions = []string{".json", ".yml", ".yaml"}

// Source gives access to definition documents by kind and name.
type Source interface {
	Load(kind, name string) (*Node, error)
	Names(kind string) ([]string, error)
}

// Dir reads definitions from a directory tree.
type Dir struct {
	Root string
}

func NewDir(root string) *Dir {
	return &Dir{Root: root}
}

func (d *Dir) Load(kind, name string) (*Node, error) {
	base := filepath.Join(d.Root, kind, name)
	if kind == "" {
		base = filepath.Join(d.Root, name)
	}

	for _, ext := range extensions {
		data, err := os.ReadFile(base + ext)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}

		node, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s%s: %w", base, ext, err)
		}
		return node, nil
	}

	return nil, fmt.Errorf("%s/%s: %w", kind, name, ErrNotFound)
}

func (d *Dir) Names(kind string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(d.Root, kind))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if !isDefinitionExt(ext) {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ext)
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func isDefinitionExt(ext string) bool {
	for _, e := range extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Memory is an in-process Source keyed by "kind/name".
type Memory map[string]string

func (m Memory) Load(kind, name string) (*Node, error) {
	key := kind + "/" + name
	if kind == "" {
		key = name
	}
	data, ok := m[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	node, err := Parse([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return node, nil
}

func (m Memory) Names(kind string) ([]string, error) {
	var names []string
	prefix := kind + "/"
	for key := range m {
		if strings.HasPrefix(key, prefix) {
			names = append(names, strings.TrimPrefix(key, prefix))
		}
	}
	sort.Strings(names)
	return names, nil
}
