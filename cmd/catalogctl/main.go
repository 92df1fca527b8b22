// Command catalogctl operates the catalog pipeline from a terminal: product memory, the model
// response cache, spreadsheet import, template inspection and one-shot generation.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"catalog-workers/internal/app"
	"catalog-workers/internal/common/config"
	"catalog-workers/internal/common/database"
	"catalog-workers/internal/common/logger"
	"catalog-workers/internal/common/observability"
)

var (
	// Global flags
	configPath string
	verbose    bool
	timeout    time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "catalogctl",
	Short: "Operate the catalog spreadsheet pipeline",
	Long: `catalogctl talks to the same stores the workers use.

Without --config it loads configs/config.yaml merged with config.<APP_ENVIRONMENT>.yaml
and the environment, exactly like the worker manager.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Overall command timeout")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

// session is a loaded config, a logger and the connections the config asks for.
type session struct {
	cfg   *config.Config
	log   logger.Logger
	conns *database.Connections
}

func (s *session) Close() {
	_ = s.conns.Close()
}

// openSession connects once, without the worker manager's retries: a CLI should fail fast.
func openSession(ctx context.Context) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	log := logger.NewZapAdapter(logger.NewWithOutput(level, "console", "stderr"))

	conns, err := database.Open(ctx, cfg, database.Options{Attempts: 1}, log)
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, log: log, conns: conns}, nil
}

// build opens a session and assembles the pipeline. obs may be nil.
func build(ctx context.Context, obs *observability.Observability) (*session, *app.App, error) {
	s, err := openSession(ctx)
	if err != nil {
		return nil, nil, err
	}
	a, err := app.Build(ctx, s.cfg, app.ClientsFrom(s.conns), obs, s.log)
	if err != nil {
		s.Close()
		return nil, nil, err
	}
	return s, a, nil
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, timeout)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
