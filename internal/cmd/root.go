package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	controller "github.com/koscakluka/foundry-core/core"
	"github.com/koscakluka/foundry-core/core/api"
	"github.com/koscakluka/foundry-core/core/stream"
	"github.com/koscakluka/foundry-core/internal/config"
	"github.com/koscakluka/foundry-core/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "foundry",
	Short: "Drive protocol-drafting sessions",
	Long: `Foundry creates protocol-drafting sessions, runs the drafting agents
against them, follows their activity live and submits human-reviewed
drafts when a run halts for review.`,
	SilenceUsage: true,
}

// cfg is the configuration loaded before any command runs.
var cfg *config.Config

// logFile is the open logging.file, if any.
var logFile *os.File

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	closeLogFile()
	return err
}

// flagKeys maps global flags to the config keys they override.
var flagKeys = map[string]string{
	"api-url":   "api.base_url",
	"transport": "stream.transport",
	"log-level": "logging.level",
	"log-file":  "logging.file",
}

func init() {
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error { return initConfig(cmd) }

	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "config file (default is $XDG_CONFIG_HOME/foundry/config.yaml)")
	flags.String("api-url", "", "backend API base URL")
	flags.String("transport", "", "run stream transport: sse or websocket")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.String("log-file", "", "append logs to this file instead of stderr")
}

func initConfig(cmd *cobra.Command) error {
	flags := rootCmd.PersistentFlags()
	cfgFile, err := flags.GetString("config")
	if err != nil {
		return err
	}
	if err := config.Init(cfgFile); err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	for flag, key := range flagKeys {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return err
		}
	}

	loaded, err := config.Load()
	if err != nil {
		return err
	}
	cfg = loaded
	return setupLogging(cmd)
}

// setupLogging sends the logs of every package to stderr or logging.file,
// filtered at logging.level.
func setupLogging(cmd *cobra.Command) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Logging.Level)); err != nil {
		return err
	}

	closeLogFile()
	out := cmd.ErrOrStderr()
	switch {
	case cfg.Logging.File != "":
		file, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		logFile = file
		out = file
	case cmd.Name() == consoleCommandName:
		out = io.Discard
	}

	handler := slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
	logging.Install(handler)
	return nil
}

func closeLogFile() {
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

func newClient() (*api.Client, error) {
	return api.NewClient(cfg.API.BaseURL, api.WithRequestTimeout(cfg.API.RequestTimeout))
}

func newDialer(client *api.Client) stream.Dialer {
	if cfg.Stream.Transport == config.TransportWebsocket {
		return stream.NewWebsocketDialer(client)
	}
	return stream.NewSSEDialer(client)
}

func newController(ctx context.Context, opts ...controller.ControllerOption) (*controller.Controller, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}
	opts = append([]controller.ControllerOption{
		controller.WithRefreshInterval(cfg.Directory.RefreshInterval),
		controller.WithBaseContext(ctx),
	}, opts...)
	return controller.New(client, newDialer(client), opts...), nil
}
