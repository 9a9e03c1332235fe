package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ronak8180/DocuMind/internal/history"
	"github.com/ronak8180/DocuMind/internal/index"
	"github.com/ronak8180/DocuMind/internal/logging"
)

// NewSessionsCmd constructs the `documind sessions` command group for
// inspecting and deleting chat sessions from the terminal.
func NewSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List and manage chat sessions",
	}

	cmd.AddCommand(newSessionsListCmd(), newSessionsDeleteCmd())
	return cmd
}

func newSessionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all chat sessions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New()

			hs, err := openHistory(log)
			if err != nil {
				return fmt.Errorf("sessions: %w", err)
			}
			defer func() { _ = hs.Close() }()

			sessions, err := hs.ListSessions(cmd.Context())
			if err != nil {
				return fmt.Errorf("sessions: %w", err)
			}
			if len(sessions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No sessions.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tCREATED")
			for _, s := range sessions {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", s.ID, s.Title, s.CreatedAt.Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}
}

func newSessionsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [session-id]",
		Short: "Delete a session, its transcript, index, and stored uploads",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New()
			ctx := logging.WithLogger(cmd.Context(), log)
			id := args[0]

			hs, err := openHistory(log)
			if err != nil {
				return fmt.Errorf("sessions: %w", err)
			}
			defer func() { _ = hs.Close() }()

			if _, err := hs.GetSession(ctx, id); err != nil {
				if errors.Is(err, history.ErrSessionNotFound) {
					return fmt.Errorf("sessions: no such session: %s", id)
				}
				return fmt.Errorf("sessions: %w", err)
			}
			if err := hs.DeleteSession(ctx, id); err != nil {
				return fmt.Errorf("sessions: %w", err)
			}

			manager, _, err := buildIndexManager(log)
			if err != nil {
				return fmt.Errorf("sessions: %w", err)
			}
			defer func() { _ = manager.Close() }()

			if err := manager.Delete(ctx, id); err != nil {
				return fmt.Errorf("sessions: failed to delete index: %w", err)
			}

			uploadDir := filepath.Join(getEnvOrDefault("DOCUMIND_UPLOAD_DIR", "uploads"), index.Normalize(id))
			if err := os.RemoveAll(uploadDir); err != nil {
				log.Warn("could not remove upload dir", "dir", uploadDir, "error", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s\n", id)
			return nil
		},
	}
}
