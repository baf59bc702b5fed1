package internal

import (
	"rim/internal/definitions"
	"rim/internal/enums"
	"rim/internal/format"
	"rim/internal/layouts"
	"rim/internal/logger"
	"rim/internal/permissions"
	"rim/internal/schema"

	"github.com/rs/zerolog"
)

// Core holds the artifacts compiled from the definitions. They are built
// once at startup and shared read-only afterwards.
type Core struct {
	Enums     *enums.Registry
	Schemas   *schema.Registry
	Layouts   *layouts.Deriver
	Perms     *permissions.Filter
	Formatter *format.Formatter
}

// LoadCore compiles every definition of src. Any schema authoring error is
// returned and should abort startup.
func LoadCore(src definitions.Source, log zerolog.Logger) (*Core, error) {
	enumRegistry, err := enums.New(src)
	if err != nil {
		return nil, err
	}

	schemas, err := schema.NewRegistry(src, enumRegistry)
	if err != nil {
		return nil, err
	}

	perms, err := permissions.New(src, schemas)
	if err != nil {
		return nil, err
	}

	return &Core{
		Enums:     enumRegistry,
		Schemas:   schemas,
		Layouts:   layouts.New(src, schemas),
		Perms:     perms,
		Formatter: format.New(schemas, logger.Component(log, "format")),
	}, nil
}
