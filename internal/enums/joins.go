package enums

import (
	"errors"

	"rim/internal/definitions"
)

// joinedValues builds a side-table registry from its code list and reference
// table. The result is memoized, including failures which yield nil.
func (r *Registry) joinedValues(name string) []Value {
	r.mu.Lock()
	defer r.mu.Unlock()

	if values, ok := r.joined[name]; ok {
		return values
	}

	values := r.buildJoin(name, joins[name])
	r.joined[name] = values
	return values
}

func (r *Registry) buildJoin(name string, j join) []Value {
	table, err := r.src.Load(definitions.References, j.table)
	if err != nil {
		return nil
	}

	byCode := map[string]*definitions.Node{}
	var order []string
	for _, record := range table.Items {
		code, _ := record.Get("code")
		c, ok := code.String()
		if !ok {
			continue
		}
		if _, dup := byCode[c]; !dup {
			order = append(order, c)
		}
		byCode[c] = record
	}

	codes, err := r.codeList(name)
	if err != nil {
		codes = order
	}

	values := make([]Value, 0, len(codes))
	for _, code := range codes {
		record, ok := byCode[code]
		if !ok {
			values = append(values, Value{Value: code, Label: map[string]string{}})
			continue
		}
		label, _ := record.Get(j.labelKey)
		values = append(values, Value{Value: code, Label: labels(label)})
	}
	return values
}

// codeList reads the optional enums/<name> list restricting the join.
func (r *Registry) codeList(name string) ([]string, error) {
	node, err := r.src.Load(definitions.Enums, name)
	if err != nil {
		return nil, err
	}
	if node.Kind != definitions.List {
		return nil, errors.New("code list must be a list")
	}

	codes := make([]string, 0, len(node.Items))
	for _, item := range node.Items {
		if s, ok := item.String(); ok {
			codes = append(codes, s)
		}
	}
	return codes, nil
}
