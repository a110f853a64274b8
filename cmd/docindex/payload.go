package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/krakend/docsearch-mcp/internal/searchindex"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <payload>",
		Short: "Validate a payload and summarise its contents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ix, err := searchindex.LoadFile(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			counts := ix.CategoryCounts()
			fmt.Fprintf(out, "%s %s is valid\n", okColor.Sprint("✓"), args[0])
			if ix.Variable() != "" {
				fmt.Fprintf(out, "  Variable:  %s\n", ix.Variable())
			}
			fmt.Fprintf(out, "  Fragments: %d (%d page, %d section)\n", ix.Size(),
				counts[searchindex.CategoryPage], counts[searchindex.CategorySection])
			fmt.Fprintf(out, "  Pages:     %d\n", len(ix.PageTitles()))
			fmt.Fprintln(out)
			for _, title := range ix.PageTitles() {
				fmt.Fprintf(out, "  %s\n", title)
			}
			return nil
		},
	}
}

func newPagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pages <payload> [page]",
		Short: "Print the page outline, or the fragments of one page",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ix, err := searchindex.LoadFile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				for _, page := range ix.Pages() {
					fmt.Fprintf(out, "%s %s\n", titleColor.Sprint(page.Title), dimColor.Sprintf("(%s, %d fragments)", page.Location, page.Fragments))
					for _, sec := range page.Sections {
						fmt.Fprintf(out, "  - %s\n", sec.Title)
					}
				}
				return nil
			}

			found := false
			for f := range ix.FragmentsForPage(args[1]) {
				found = true
				fmt.Fprintf(out, "%s %s\n", titleColor.Sprint(f.Title), dimColor.Sprintf("[%s] %s", f.Category, f.Location))
				if text := strings.TrimSpace(f.Text); text != "" {
					fmt.Fprintf(out, "  %s\n", text)
				}
			}
			if !found {
				return fmt.Errorf("page %q not found in %s", args[1], args[0])
			}
			return nil
		},
	}
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <payload>",
		Short: "Re-encode a payload as JSON or as a JavaScript assignment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ix, err := searchindex.LoadFile(args[0])
			if err != nil {
				return err
			}

			variable, _ := cmd.Flags().GetString("js")
			outPath, _ := cmd.Flags().GetString("output")

			encode := ix.Encode
			if cmd.Flags().Changed("js") {
				encode = func(w io.Writer) error { return ix.EncodeJS(w, variable) }
			}

			if outPath == "" {
				w := bufio.NewWriter(cmd.OutOrStdout())
				if err := encode(w); err != nil {
					return err
				}
				return w.Flush()
			}

			f, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", outPath, err)
			}
			if err := writeAndClose(f, encode); err != nil {
				return fmt.Errorf("failed to write %s: %w", outPath, err)
			}
			return nil
		},
	}
	cmd.Flags().String("js", "", "wrap the payload in a JavaScript assignment to this variable (empty uses documenterSearchIndex)")
	cmd.Flags().Lookup("js").NoOptDefVal = searchindex.DocumenterVariable
	cmd.Flags().StringP("output", "o", "", "write to a file instead of stdout")
	return cmd
}

// writeAndClose encodes into wc and closes it, returning the close error
func writeAndClose(wc io.WriteCloser, encode func(io.Writer) error) error {
	w := bufio.NewWriter(wc)
	if err := encode(w); err != nil {
		wc.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		wc.Close()
		return err
	}
	return wc.Close()
}
