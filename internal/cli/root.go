// Package cli implements the couponagent terminal commands.
package cli

import (
	"fmt"

	"couponagent/internal/config"
	"couponagent/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	logLevel string
	quiet    bool
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "couponagent",
	Short: "KFC coupon recommendation agent",
	Long:  "Chat about party size and cravings, get matching KFC coupon bundles. Run without a subcommand to start chatting.",
	RunE:  runChat,

	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (default: $LOG_LEVEL or info)")
	RootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log warnings and errors")
}

// env is what every command needs before doing work
type env struct {
	cfg    *config.Config
	logger *zap.Logger
}

func loadEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	debug := cfg.Agent.Debug
	if quiet {
		cfg.Logging.Level = "warn"
		debug = false
	}

	zlog, err := logger.New(cfg.Logging, debug)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return &env{cfg: cfg, logger: zlog}, nil
}
