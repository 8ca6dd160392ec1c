package main

import (
	"github.com/spf13/cobra"

	"github.com/mrsinham/randimage/internal/config"
	"github.com/mrsinham/randimage/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve random images over HTTP",
	Example: `  randimage serve --port 8080
  curl -o img.png 'http://127.0.0.1:8080/api/image?width=320&height=200&seed=42'

  # require a token on /api
  RANDIMAGE_SERVER_TOKEN=s3cret randimage serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("host", "", "Listen address (default from config: 127.0.0.1)")
	serveCmd.Flags().Int("port", 0, "Listen port (default from config: 8080)")
	serveCmd.Flags().String("token", "", "Bearer token required on /api")
	serveCmd.Flags().String("max-size", "", "Largest raw pixel buffer per request, e.g. 64MB")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return usageError(err)
	}
	f := cmd.Flags()
	if f.Changed("host") {
		cfg.Server.Host, _ = f.GetString("host")
	}
	if f.Changed("port") {
		cfg.Server.Port, _ = f.GetInt("port")
	}
	if f.Changed("token") {
		cfg.Server.Token, _ = f.GetString("token")
	}
	if f.Changed("max-size") {
		cfg.Generate.MaxSize, _ = f.GetString("max-size")
	}
	if err := cfg.Validate(); err != nil {
		return usageError(err)
	}

	encOpts, err := cfg.Generate.EncodeOptions()
	if err != nil {
		return usageError(err)
	}
	maxBytes, err := cfg.Generate.MaxBytes()
	if err != nil {
		return usageError(err)
	}

	log := newLogger(mustBool(cmd, "verbose"), mustBool(cmd, "quiet"))
	srv := server.New(cfg.Server, server.Options{
		Encode:   encOpts,
		MaxBytes: maxBytes,
		Version:  version,
		Logger:   log,
	})
	if cfg.Server.Token == "" {
		log.Warn("no token configured, /api is public")
	}
	return srv.ListenAndServe(cmd.Context())
}
