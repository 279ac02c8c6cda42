package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/visa_estimator/backend/internal/config"
	"github.com/visa_estimator/backend/internal/db"
	"github.com/visa_estimator/backend/internal/service"
)

type app struct {
	v        *viper.Viper
	cfgFile  string
	cfg      config.Config
	logger   zerolog.Logger
	store    *db.Store
	pipeline *service.Pipeline
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	root := &cobra.Command{
		Use:   "pipeline",
		Short: "Offline data and training stages for the visa processing estimator",
		Long: `pipeline runs the offline stages that produce the artifacts the server loads:

  generate    synthetic raw dataset
  preprocess  imputation and the encoding set
  features    engineered dataset
  train       model bundle
  report      data summary
  seed-db     reference dataset into Postgres`,
		SilenceUsage:       true,
		PersistentPreRunE:  a.init,
		PersistentPostRunE: a.close,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "env file (default .env)")
	flags.String("data-dir", "", "data directory")
	flags.String("artifact", "", "model bundle path")
	flags.Int64("seed", 0, "random seed")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	_ = a.v.BindPFlag("DATA_DIR", flags.Lookup("data-dir"))
	_ = a.v.BindPFlag("ARTIFACT_PATH", flags.Lookup("artifact"))
	_ = a.v.BindPFlag("RANDOM_SEED", flags.Lookup("seed"))
	_ = a.v.BindPFlag("LOG_LEVEL", flags.Lookup("log-level"))

	root.AddCommand(
		a.generateCmd(),
		a.preprocessCmd(),
		a.featuresCmd(),
		a.trainCmd(),
		a.reportCmd(),
		a.seedDBCmd(),
		a.allCmd(),
	)
	return root
}

func (a *app) init(cmd *cobra.Command, _ []string) error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	}
	cfg, err := config.LoadWith(a.v)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg

	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	a.logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Str("service", "visa-pipeline").Logger()

	if cfg.DatabaseURL != "" {
		store, err := db.New(cmd.Context(), cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect db: %w", err)
		}
		if err := store.EnsureSchema(cmd.Context()); err != nil {
			store.Close()
			return fmt.Errorf("ensure schema: %w", err)
		}
		a.store = store
	}
	a.pipeline = &service.Pipeline{Config: cfg, Store: a.store, Logger: a.logger}
	return nil
}

func (a *app) close(*cobra.Command, []string) error {
	if a.store != nil {
		a.store.Close()
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
