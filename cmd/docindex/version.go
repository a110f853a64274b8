package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/krakend/docsearch-mcp/internal/indexing"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version and index schema information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "docindex %s\n", okColor.Sprint(version))
			fmt.Fprintf(out, "  index schema: v%d\n", indexing.IndexSchemaVersion)
			fmt.Fprintf(out, "  go:           %s\n", runtime.Version())
		},
	}
}
