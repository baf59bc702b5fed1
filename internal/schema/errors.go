package schema

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownEntity = errors.New("unknown entity")

type Problem struct {
	Entity  string
	Path    string
	Message string
}

func (p Problem) String() string {
	return fmt.Sprintf("%s.%s: %s", p.Entity, p.Path, p.Message)
}

// CompileError lists every authoring problem found in the schema definitions.
type CompileError struct {
	Problems []Problem
}

func (e *CompileError) Error() string {
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		parts[i] = p.String()
	}
	return fmt.Sprintf("schema compilation failed (%d problems): %s", len(e.Problems), strings.Join(parts, "; "))
}

func (e *CompileError) add(entity, path, format string, args ...any) {
	e.Problems = append(e.Problems, Problem{
		Entity:  entity,
		Path:    path,
		Message: fmt.Sprintf(format, args...),
	})
}

func (e *CompileError) err() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}
