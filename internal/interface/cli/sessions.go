package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	sessionrepo "github.com/appforge-dev/appforge/internal/infra/repository/session"
)

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage build sessions",
		RunE: func(c *cobra.Command, _ []string) error { return listSessions(c) },
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all sessions",
		RunE:  func(c *cobra.Command, _ []string) error { return listSessions(c) },
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "switch <id>",
		Short: "Make a session the active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			registry := sessionrepo.NewRegistry(appFs, controlHome())
			s, err := registry.SwitchSession(args[0])
			if err != nil {
				return err
			}
			c.Printf("active session: %s (%s)\n", s.ID, s.Name)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a session and its generated files",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			registry := sessionrepo.NewRegistry(appFs, controlHome())
			removed, err := registry.DeleteSession(args[0])
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("session not found: %s", args[0])
			}
			c.Printf("deleted session %s\n", args[0])
			return nil
		},
	})
	return cmd
}

func listSessions(c *cobra.Command) error {
	registry := sessionrepo.NewRegistry(appFs, controlHome())
	idx := registry.LoadIndex()
	if len(idx.Sessions) == 0 {
		c.Println("no sessions")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(c.OutOrStdout())
	t.AppendHeader(table.Row{"", "ID", "Name", "Stage", "Updated"})
	for _, s := range idx.Sessions {
		active := ""
		if idx.ActiveSessionID != nil && *idx.ActiveSessionID == s.ID {
			active = "*"
		}
		t.AppendRow(table.Row{active, s.ID, s.Name, s.Stage, s.UpdatedAt.Format("2006-01-02 15:04")})
	}
	t.SetStyle(table.StyleLight)
	t.Render()
	return nil
}
