package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"study-quiz-service/internal/app"
)

// NewImportCmd loads a quiz export file into the configured quiz store.
func NewImportCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import quizzes from an export file (version 1.0)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, store, err := commandEnv(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer store.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			file, err := app.DecodeExport(f)
			if err != nil {
				return err
			}
			n, err := app.ImportQuizzes(cmd.Context(), store.writer, file)
			if err != nil {
				return err
			}
			log.WithField("count", n).Info("quizzes imported")
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d quizzes\n", n)
			return nil
		},
	}
}

// NewExportCmd writes quizzes in the export format.
func NewExportCmd(configPath *string) *cobra.Command {
	var (
		category string
		out      string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export quizzes as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, store, err := commandEnv(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer store.Close()

			file, err := app.ExportQuizzes(cmd.Context(), store.quizzes, category, time.Now())
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(file)
		},
	}
	cmd.Flags().StringVar(&category, "category", "all", "category to export")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

// NewDeleteCmd removes a quiz and evicts it from the quiz cache.
func NewDeleteCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <quiz-id>",
		Short: "Delete a quiz; results already recorded for it are kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid quiz id %q", args[0])
			}
			_, log, store, err := commandEnv(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := app.NewCatalog(store.deleter, store.caches, app.WithLogger(log)).DeleteQuiz(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted quiz %d\n", id)
			return nil
		},
	}
}
