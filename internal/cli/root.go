// Package cli implements the projcheck command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pebbe/proj/v9"
	"github.com/pebbe/proj/v9/internal/config"
	"github.com/pebbe/proj/v9/internal/logger"
	"github.com/pebbe/proj/v9/native"
	"github.com/pebbe/proj/v9/selftest"
	"github.com/pebbe/proj/v9/wasm"
)

// An exit code other than 1, or 1 without an error message
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd(&app{open: openModule}).ExecuteContext(ctx)
	stop()
	os.Exit(exitCode(err))
}

type opener func(ctx context.Context, cfg config.Config, log *zap.Logger) (proj.Module, error)

// State shared by the commands, set up before any of them runs
type app struct {
	open opener
	cfg  config.Config
	log  *zap.Logger
}

func openModule(ctx context.Context, cfg config.Config, log *zap.Logger) (proj.Module, error) {
	if cfg.Backend == config.BackendWASM {
		opts := []wasm.Option{wasm.WithLogger(log)}
		if cfg.DataDir != "" {
			opts = append(opts, wasm.WithDataDir(cfg.DataDir))
		}
		m, err := wasm.LoadFile(ctx, cfg.WASMPath, opts...)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
	m, err := native.Open()
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (a *app) env(m proj.Module) selftest.Env {
	return selftest.Env{
		Module:      m,
		Log:         a.log,
		Tolerance:   a.cfg.Tolerance,
		KeeperDebug: a.cfg.KeeperDebug,
		SearchPaths: a.cfg.SearchPaths,
	}
}

// withContext loads the module, creates a context on it and passes it to
// fn. Both are released when fn returns.
func (a *app) withContext(cmd *cobra.Command, fn func(ctx *proj.Context) error) error {
	m, err := a.open(cmd.Context(), a.cfg, a.log)
	if err != nil {
		return err
	}
	defer m.Close()

	env := a.env(m)
	ctx, err := env.NewContext()
	if err != nil {
		return err
	}
	defer ctx.Close()
	return fn(ctx)
}

func newRootCmd(a *app) *cobra.Command {
	var (
		configPath  string
		backend     string
		wasmPath    string
		logLevel    string
		keeperDebug bool
	)

	cmd := &cobra.Command{
		Use:          "projcheck",
		Short:        "Check and query a PROJ library, linked or compiled to WebAssembly",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("backend") {
				cfg.Backend = backend
			}
			if flags.Changed("wasm") {
				cfg.WASMPath = wasmPath
			}
			if flags.Changed("log-level") {
				cfg.Log.Level = logLevel
			}
			if flags.Changed("keeper-debug") {
				cfg.KeeperDebug = keeperDebug
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			a.cfg = cfg

			if a.log == nil {
				a.log, err = logger.New(logger.Config{
					Level:  cfg.Log.Level,
					Format: cfg.Log.Format,
					Output: cfg.Log.Output,
				})
				if err != nil {
					return err
				}
			}
			a.log.Debug("configuration loaded",
				zap.String("file", configPath),
				zap.String("backend", cfg.Backend))
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "YAML configuration file")
	pf.StringVar(&backend, "backend", config.BackendNative, "PROJ backend: native|wasm")
	pf.StringVar(&wasmPath, "wasm", "", "PROJ compiled to WebAssembly, for the wasm backend")
	pf.StringVar(&logLevel, "log-level", "info", "Log level: debug|info|warn|error")
	pf.BoolVar(&keeperDebug, "keeper-debug", false, "Log every scratch allocation and release")

	cmd.AddCommand(
		runCmd(a),
		infoCmd(a),
		transCmd(a),
		axesCmd(a),
		projinfoCmd(a),
		listCRSCmd(a),
		versionCmd(),
	)
	return cmd
}
