package cli

import (
	"github.com/spf13/cobra"

	"github.com/qepting91/misinfo-collector/internal/config"
	"github.com/qepting91/misinfo-collector/internal/dashboard"
	"github.com/qepting91/misinfo-collector/internal/logging"
)

var dashboardPort string

var dashboardCmd = &cobra.Command{
	Use:   "dashboard [--port 8080]",
	Short: "Serves charts over the collected data.",
	RunE: func(cmd *cobra.Command, args []string) error {
		config.LoadEnv()
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if dashboardPort != "" {
			cfg.Dashboard.Port = dashboardPort
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		logger, err := logging.New(logging.Options{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			Name:   "dashboard",
			Stdout: true,
		})
		if err != nil {
			return err
		}
		srv := &dashboard.Server{
			RedditDir: cfg.Output.RedditDir,
			TweetsDir: cfg.Output.TweetsDir,
			MetaDir:   cfg.Output.MetaDir,
			Logger:    logger.Logger,
		}
		return srv.ListenAndServe(cmd.Context(), cfg.Dashboard.Port)
	},
}

func init() {
	dashboardCmd.Flags().StringVar(&dashboardPort, "port", "", "listen port (default from config or PORT)")
	rootCmd.AddCommand(dashboardCmd)
}
