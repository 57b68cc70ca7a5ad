package main

import (
	"fmt"
	"io"
	"os"

	"pulse/internal/app"
	"pulse/internal/transfer"

	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportOutput string

	importFormat string
	importUser   bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the current user and posts as JSON or YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := transfer.ParseFormat(exportFormat)
		if err != nil {
			return err
		}
		return withRuntime(cmd.Context(), func(rt *app.Runtime) error {
			if exportOutput == "" || exportOutput == "-" {
				return transfer.Encode(cmd.OutOrStdout(), rt.Export(), format)
			}
			f, err := os.Create(exportOutput)
			if err != nil {
				return err
			}
			return encodeAndClose(f, rt.Export(), format)
		})
	},
}

// encodeAndClose writes doc to w and closes it. A failed close fails the
// export since buffered data may not have reached disk.
func encodeAndClose(w io.WriteCloser, doc transfer.Document, format transfer.Format) (err error) {
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return transfer.Encode(w, doc, format)
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace all posts with those in an export file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format := transfer.FormatFromPath(args[0])
		if importFormat != "" {
			parsed, err := transfer.ParseFormat(importFormat)
			if err != nil {
				return err
			}
			format = parsed
		}

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		doc, err := transfer.Decode(f, format)
		if err != nil {
			return err
		}

		return withRuntime(cmd.Context(), func(rt *app.Runtime) error {
			if err := rt.Import(cmd.Context(), doc, importUser); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d posts\n", len(doc.Posts))
			return nil
		})
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "output format: json or yaml")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file, stdout when empty")

	importCmd.Flags().StringVarP(&importFormat, "format", "f", "", "input format, guessed from the extension when empty")
	importCmd.Flags().BoolVar(&importUser, "with-user", false, "also log in the exported user")
}
