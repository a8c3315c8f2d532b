package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"spotfinder_go_backend/internal/models"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var sessionsFormat string

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)
)

// sessionSummary is one row of the sessions listing.
type sessionSummary struct {
	ID        string    `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	Color     string    `json:"color,omitempty" yaml:"color,omitempty"`
	Messages  int       `json:"messages" yaml:"messages"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updated_at"`
}

func summarize(sessions []models.ChatSession) []sessionSummary {
	out := make([]sessionSummary, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionSummary{
			ID:        s.ID,
			Title:     s.Title,
			Color:     string(s.Color),
			Messages:  len(s.Messages),
			UpdatedAt: s.UpdatedAt,
		})
	}
	return out
}

func writeSessions(w io.Writer, format string, sessions []models.ChatSession) error {
	summaries := summarize(sessions)
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(summaries); err != nil {
			return fmt.Errorf("failed to encode sessions as yaml: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	case "table", "":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, s := range summaries {
			fmt.Fprintf(tw, "%s\t%s\t%d msgs\t%s\n",
				titleStyle.Render(s.Title),
				idStyle.Render(s.ID),
				s.Messages,
				s.UpdatedAt.Local().Format("2006-01-02 15:04"))
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown format %q (use table, yaml or json)", format)
	}
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List saved sessions, most recent first",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := loadApp(cmd.Context())
		if err != nil {
			return err
		}
		return writeSessions(cmd.OutOrStdout(), sessionsFormat, application.Conversation.ListSessions())
	},
}

func init() {
	sessionsCmd.Flags().StringVarP(&sessionsFormat, "format", "f", "table", "Output format: table, yaml or json")
	rootCmd.AddCommand(sessionsCmd)
}
