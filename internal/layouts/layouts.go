// Package layouts derives the grouped field rows used by editors and lists
// from optional layout hints and the front schema.
package layouts

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"rim/internal/definitions"
	"rim/internal/schema"
)

// Fallback languages for synthesized labels when no field carries one.
var Languages = []string{"fr", "en"}

type Row struct {
	Label  map[string]string `json:"label"`
	Fields []Field           `json:"fields"`
}

type Field struct {
	Name   string `json:"name"`
	Layout []Row  `json:"layout,omitempty"`
}

type cacheKey struct {
	entity              string
	includeConfidential bool
}

type Deriver struct {
	src     definitions.Source
	schemas *schema.Registry

	mu    sync.Mutex
	cache map[cacheKey][]Row
}

func New(src definitions.Source, schemas *schema.Registry) *Deriver {
	return &Deriver{
		src:     src,
		schemas: schemas,
		cache:   map[cacheKey][]Row{},
	}
}

// Derive returns the layout of entity. Explicit rows come first in authored
// order, then one row per schema field no hint mentions.
func (d *Deriver) Derive(entity string, includeConfidential bool) ([]Row, error) {
	key := cacheKey{entity: entity, includeConfidential: includeConfidential}

	d.mu.Lock()
	defer d.mu.Unlock()

	if rows, ok := d.cache[key]; ok {
		return rows, nil
	}

	front, err := d.schemas.CompileFront(entity, includeConfidential)
	if err != nil {
		return nil, err
	}

	hints, err := d.src.Load(definitions.Layouts, entity)
	if errors.Is(err, definitions.ErrNotFound) {
		hints = nil
	} else if err != nil {
		return nil, err
	}

	rows, err := derive(front.Fields, hints)
	if err != nil {
		return nil, fmt.Errorf("layout %s: %w", entity, err)
	}

	d.cache[key] = rows
	return rows, nil
}

type hintEntry struct {
	name   string
	layout *definitions.Node
}

type hintRow struct {
	label   map[string]string
	entries []hintEntry
}

func derive(scope []*schema.FrontField, hints *definitions.Node) ([]Row, error) {
	byName := make(map[string]*schema.FrontField, len(scope))
	for _, ff := range scope {
		byName[ff.Name] = ff
	}

	parsed, err := parseHints(hints)
	if err != nil {
		return nil, err
	}

	mentioned := map[string]bool{}
	var rows []Row

	for _, hr := range parsed {
		var fields []Field
		for _, entry := range hr.entries {
			if excluded, ok := strings.CutPrefix(entry.name, "-"); ok {
				mentioned[excluded] = true
				continue
			}
			if mentioned[entry.name] {
				continue
			}
			mentioned[entry.name] = true

			ff, ok := byName[entry.name]
			if !ok {
				continue
			}
			field, err := layoutField(ff, entry.layout)
			if err != nil {
				return nil, err
			}
			fields = append(fields, field)
		}

		if len(fields) == 0 {
			continue
		}
		rows = append(rows, newRow(hr.label, fields, byName))
	}

	for _, ff := range scope {
		if mentioned[ff.Name] {
			continue
		}
		field, err := layoutField(ff, nil)
		if err != nil {
			return nil, err
		}
		rows = append(rows, newRow(nil, []Field{field}, byName))
	}

	return rows, nil
}

func layoutField(ff *schema.FrontField, hints *definitions.Node) (Field, error) {
	field := Field{Name: ff.Name}
	if !ff.IsDocument() {
		return field, nil
	}

	sub, err := derive(ff.Children, hints)
	if err != nil {
		return Field{}, fmt.Errorf("%s: %w", ff.Name, err)
	}
	field.Layout = sub
	return field, nil
}

func newRow(label map[string]string, fields []Field, byName map[string]*schema.FrontField) Row {
	if len(label) == 0 {
		label = synthesizeLabel(fields, byName)
	}
	return Row{Label: label, Fields: fields}
}

// synthesizeLabel joins the field labels of a row per language.
func synthesizeLabel(fields []Field, byName map[string]*schema.FrontField) map[string]string {
	langs := map[string]bool{}
	for _, f := range fields {
		for lang := range byName[f.Name].Label {
			langs[lang] = true
		}
	}

	ordered := make([]string, 0, len(langs))
	for lang := range langs {
		ordered = append(ordered, lang)
	}
	sort.Strings(ordered)
	if len(ordered) == 0 {
		ordered = Languages
	}

	label := make(map[string]string, len(ordered))
	for _, lang := range ordered {
		parts := make([]string, len(fields))
		for i, f := range fields {
			parts[i] = byName[f.Name].LabelIn(lang)
		}
		label[lang] = strings.Join(parts, ", ")
	}
	return label
}

func parseHints(node *definitions.Node) ([]hintRow, error) {
	if node == nil {
		return nil, nil
	}
	if node.Kind != definitions.List {
		return nil, errors.New("layout hints must be a list of rows")
	}

	rows := make([]hintRow, 0, len(node.Items))
	for i, item := range node.Items {
		row, err := parseRow(item)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseRow(node *definitions.Node) (hintRow, error) {
	switch node.Kind {
	case definitions.Scalar:
		entry, err := parseEntry(node)
		return hintRow{entries: []hintEntry{entry}}, err
	case definitions.List:
		entries, err := parseEntries(node)
		return hintRow{entries: entries}, err
	}

	if fields, ok := node.Get("fields"); ok {
		entries, err := parseEntries(fields)
		label, _ := node.Get("label")
		return hintRow{label: labelMap(label), entries: entries}, err
	}

	entry, err := parseEntry(node)
	return hintRow{entries: []hintEntry{entry}}, err
}

func parseEntries(node *definitions.Node) ([]hintEntry, error) {
	if node.Kind != definitions.List {
		entry, err := parseEntry(node)
		return []hintEntry{entry}, err
	}

	entries := make([]hintEntry, 0, len(node.Items))
	for _, item := range node.Items {
		entry, err := parseEntry(item)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func parseEntry(node *definitions.Node) (hintEntry, error) {
	if s, ok := node.String(); ok {
		return hintEntry{name: s}, nil
	}

	nameNode, ok := node.Get("name")
	if !ok {
		return hintEntry{}, errors.New("field entry must be a name or {name, layout}")
	}
	name, _ := nameNode.String()
	layout, _ := node.Get("layout")
	return hintEntry{name: name, layout: layout}, nil
}

func labelMap(node *definitions.Node) map[string]string {
	if node == nil {
		return nil
	}
	if s, ok := node.String(); ok {
		out := make(map[string]string, len(Languages))
		for _, lang := range Languages {
			out[lang] = s
		}
		return out
	}
	out := map[string]string{}
	for _, lang := range node.Keys() {
		v, _ := node.Get(lang)
		if s, ok := v.String(); ok {
			out[lang] = s
		}
	}
	return out
}
