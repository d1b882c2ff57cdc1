package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xiaot623/pagesmith/internal/domain"
	"github.com/xiaot623/pagesmith/internal/htmldoc"
	"github.com/xiaot623/pagesmith/internal/service"
)

func newExportCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export <session-id>",
		Short: "Save a session's current page as an HTML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			history, err := c.History(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			doc, err := lastPage(history)
			if err != nil {
				return err
			}

			body, err := c.Export(cmd.Context(), domain.ExportRequest{HTMLContent: doc})
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, body, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%d bytes)\n", output, len(body))
			return err
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", service.ExportFilename, "output file")
	return cmd
}

// lastPage returns the most recent page the assistant produced.
func lastPage(history []domain.Message) (string, error) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == domain.RoleAssistant && htmldoc.IsValid(history[i].Content) {
			return history[i].Content, nil
		}
	}
	return "", errors.New("session has no page yet")
}
