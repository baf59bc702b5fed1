// Package commands implements rimctl, the operator tool for definitions,
// users and edit-log maintenance.
package commands

import (
	"fmt"
	"strings"

	"rim/internal"
	"rim/internal/db"
	"rim/internal/definitions"
	"rim/internal/env"
	"rim/internal/logger"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	envRoot         string
	definitionsRoot string
)

// NewRootCommand assembles every rimctl subcommand.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "rimctl",
		Short:         "Operate a RIM deployment",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envRoot, "env-root", "", "directory containing the .env file")
	root.PersistentFlags().StringVar(&definitionsRoot, "definitions", "", "definitions root, defaults to DEFINITIONS_ROOT")

	root.AddCommand(newSchemaCommand())
	root.AddCommand(newLayoutCommand())
	root.AddCommand(newEditLogsCommand())
	root.AddCommand(newUsersCommand())
	root.AddCommand(newVersionCommand())
	return root
}

// loadCore compiles the definitions without touching any store.
func loadCore() (*internal.Core, error) {
	root := strings.TrimSpace(definitionsRoot)
	if root == "" {
		env.Init(envRoot, "")
		root = env.DEFINITIONS_ROOT
	}

	core, err := internal.LoadCore(definitions.NewDir(root), zerolog.Nop())
	if err != nil {
		return nil, fmt.Errorf("compile definitions in %s: %w", root, err)
	}
	return core, nil
}

// connect loads the environment and opens MongoDB. The returned function
// closes the connection.
func connect() (zerolog.Logger, func(), error) {
	env.Init(envRoot, "")

	log, err := logger.New().Level(env.LOG_LEVEL).Format("console").Make()
	if err != nil {
		return zerolog.Nop(), nil, err
	}

	if err := db.InitDB(); err != nil {
		return log, nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	return log, db.Close, nil
}
