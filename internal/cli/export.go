package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var exportDir string

var exportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Export a session as PDF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := loadApp(cmd.Context())
		if err != nil {
			return err
		}

		filename, data, err := application.Export.ExportSession(args[0])
		if err != nil {
			return err
		}

		if err := os.MkdirAll(exportDir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		path := filepath.Join(exportDir, filename)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportDir, "output", "o", ".", "Directory to write the PDF to")
	rootCmd.AddCommand(exportCmd)
}
