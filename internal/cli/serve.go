package cli

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and WebSocket API",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := loadApp(cmd.Context())
		if err != nil {
			return err
		}
		if servePort != "" {
			cfg.Port = servePort
		}

		log.Info().Str("port", cfg.Port).Msg("Server starting")
		return application.Router().Run(":" + cfg.Port)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "Port to listen on (defaults to PORT)")
	rootCmd.AddCommand(serveCmd)
}
