package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/valyala/fasthttp"
)

func newVersionCommand() *cobra.Command {
	var host string

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show the version of the running server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, body, err := fasthttp.Get(nil, fmt.Sprintf("http://%s/rim/version", host))
			if err != nil || status != fasthttp.StatusOK {
				fmt.Fprintln(cmd.OutOrStdout(), "No version detected")
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(string(body)))
			return nil
		},
	}
	cmd.Flags().StringVar(&host, "host", "localhost:8080", "server host:port to query")
	return cmd
}
