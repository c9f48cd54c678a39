package cmd

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/telekom/mailbox-report/pkg/mbxreport/config"
)

type Config struct {
	ConfigPath   string
	OutputWriter io.Writer
}

type runtimeState struct {
	configPath string
	cfg        *config.Config
	debug      bool
	writer     io.Writer
	logger     *zap.SugaredLogger
}

type runtimeKey struct{}

func DefaultConfig() Config {
	return Config{
		ConfigPath:   config.DefaultConfigPath(),
		OutputWriter: os.Stdout,
	}
}

func NewRootCommand(cfg Config) *cobra.Command {
	rt := &runtimeState{configPath: cfg.ConfigPath, writer: cfg.OutputWriter}

	root := &cobra.Command{
		Use:   "mbxreport",
		Short: "Mailbox quota report generator",
		Long: "mbxreport queries the mail-administration API for mailbox usage, " +
			"renders a color-coded HTML quota report, and optionally mails it.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if rt.writer == nil {
				rt.writer = os.Stdout
			}
			if rt.configPath == "" {
				rt.configPath = config.DefaultConfigPath()
			}
			if !rt.debug {
				rt.debug = strings.EqualFold(os.Getenv("MBXREPORT_DEBUG"), "true")
			}
			if err := rt.initLogger(); err != nil {
				return err
			}

			if cmd.Name() == "version" || cmd.Name() == "completion" {
				return nil
			}

			loaded, err := config.Load(rt.configPath)
			if err != nil {
				if !os.IsNotExist(err) {
					return err
				}
				// No config file is fine: selection comes from flags and the
				// mail settings can be given on the command line.
				defaults := config.DefaultConfig()
				loaded = &defaults
				rt.logger.Debugw("No config file found, using defaults", "path", rt.configPath)
			}
			if err := loaded.Validate(); err != nil {
				return err
			}
			rt.cfg = loaded
			return nil
		},
	}

	root.PersistentFlags().StringVar(&rt.configPath, "config", rt.configPath, "Path to config file")
	root.PersistentFlags().BoolVar(&rt.debug, "debug", false, "Enable debug level logging")

	root.SetContext(context.WithValue(context.Background(), runtimeKey{}, rt))

	root.AddCommand(
		NewReportCommand(),
		NewVersionCommand(),
	)

	return root
}

func getRuntime(cmd *cobra.Command) (*runtimeState, error) {
	rt, ok := cmd.Context().Value(runtimeKey{}).(*runtimeState)
	if !ok || rt == nil {
		return nil, errors.New("runtime not initialized")
	}
	return rt, nil
}

func (rt *runtimeState) initLogger() error {
	if rt.logger != nil {
		return nil
	}
	zapCfg := zap.NewProductionConfig()
	if rt.debug {
		zapCfg = zap.NewDevelopmentConfig()
	}
	logger, err := zapCfg.Build()
	if err != nil {
		return err
	}
	rt.logger = logger.Sugar()
	return nil
}

func (rt *runtimeState) Writer() io.Writer {
	if rt.writer != nil {
		return rt.writer
	}
	return os.Stdout
}

func (rt *runtimeState) Logger() *zap.SugaredLogger {
	if rt.logger == nil {
		rt.logger = zap.NewNop().Sugar()
	}
	return rt.logger
}
