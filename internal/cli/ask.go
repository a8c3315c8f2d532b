package cli

import (
	"context"
	"fmt"

	"spotfinder_go_backend/internal/models"
	"spotfinder_go_backend/internal/services"

	"github.com/spf13/cobra"
)

var (
	askThink     bool
	askLang      string
	askLat       float64
	askLng       float64
	askSessionID string
)

var askCmd = &cobra.Command{
	Use:   "ask <query>",
	Short: "Ask a question and print the grounded answer",
	Long: `Ask a question. Without --session the question starts a new chat session;
with --session it continues that session.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := loadApp(cmd.Context())
		if err != nil {
			return err
		}
		svc := application.Conversation

		if err := applyAskOptions(cmd, svc); err != nil {
			return err
		}

		session, err := svc.Submit(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to submit query: %w", err)
		}
		if len(session.Messages) == 0 {
			return nil
		}

		last := session.Messages[len(session.Messages)-1]
		fmt.Fprint(cmd.OutOrStdout(), renderMessage(last))
		fmt.Fprintln(cmd.OutOrStdout(), idStyle.Render("session "+session.ID))
		return nil
	},
}

func applyAskOptions(cmd *cobra.Command, svc *services.ConversationService) error {
	if askSessionID != "" {
		if _, err := svc.SelectSession(askSessionID); err != nil {
			return fmt.Errorf("failed to select session %s: %w", askSessionID, err)
		}
	} else {
		svc.NewChat()
	}

	if askLang != "" {
		if _, err := svc.SetLanguage(models.Language(askLang)); err != nil {
			return err
		}
	}
	svc.SetDeepThink(askThink)

	if cmd.Flags().Changed("lat") && cmd.Flags().Changed("lng") {
		loc := models.Location{Latitude: askLat, Longitude: askLng}
		locator := services.LocatorFunc(func(context.Context) (models.Location, error) {
			return loc, nil
		})
		if _, err := svc.ToggleLocation(cmd.Context(), locator); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	askCmd.Flags().BoolVar(&askThink, "think", false, "Use the deep-think model")
	askCmd.Flags().StringVar(&askLang, "lang", "", "Answer language (en or fr)")
	askCmd.Flags().Float64Var(&askLat, "lat", 0, "Latitude to bias Maps results")
	askCmd.Flags().Float64Var(&askLng, "lng", 0, "Longitude to bias Maps results")
	askCmd.Flags().StringVarP(&askSessionID, "session", "s", "", "Continue an existing session")
	rootCmd.AddCommand(askCmd)
}
