package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spec-kit/provisioning-assistant/internal/app"
	"github.com/spec-kit/provisioning-assistant/internal/config"
	"github.com/spec-kit/provisioning-assistant/internal/observability"
)

const envPrefix = "PROVISION"

func newRootCmd() *cobra.Command {
	v := viper.New()
	root := &cobra.Command{
		Use:           "provisionctl",
		Short:         "Operate the provisioning assistant from a terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String("store-driver", "", "durable store: sqlite or postgres")
	flags.String("sqlite-path", "", "sqlite database file")
	flags.String("postgres-dsn", "", "postgres connection string")
	flags.String("redis-addr", "", "redis address, empty to disable")
	flags.String("catalog-seed", "", "catalog seed file applied at startup")
	flags.String("log-level", "", "log level")
	flags.StringP("output", "o", "yaml", "output format: yaml or json")
	_ = v.BindPFlags(flags)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root.AddCommand(
		newMigrateCmd(v),
		newSeedCatalogCmd(v),
		newAddApproverCmd(v),
		newRequestCmd(v),
		newCheckCmd(v),
		newDecisionCmd(v, "approve"),
		newDecisionCmd(v, "reject"),
		newTicketCmd(v),
	)
	return root
}

// loadConfig reads the environment config and layers PROVISION_* values and flags over it.
func loadConfig(v *viper.Viper) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if s := v.GetString("store-driver"); s != "" {
		s = strings.ToLower(s)
		if s != config.StoreDriverPostgres && s != config.StoreDriverSQLite {
			return nil, fmt.Errorf("invalid store driver %q", s)
		}
		cfg.Store.Driver = s
	}
	if s := v.GetString("sqlite-path"); s != "" {
		cfg.Store.SQLitePath = s
	}
	if s := v.GetString("postgres-dsn"); s != "" {
		cfg.Postgres.DSN = s
	}
	if v.IsSet("redis-addr") {
		cfg.Redis.Addr = v.GetString("redis-addr")
	}
	if s := v.GetString("catalog-seed"); s != "" {
		cfg.Catalog.SeedPath = s
	}
	if s := v.GetString("log-level"); s != "" {
		cfg.Logger.Level = s
	}
	return cfg, nil
}

func openContainer(ctx context.Context, v *viper.Viper, opts app.Options) (*app.Container, *zap.Logger, error) {
	cfg, err := loadConfig(v)
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	c, err := app.New(ctx, cfg, logger, opts)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}
	return c, logger, nil
}

func render(w io.Writer, v *viper.Viper, value any) error {
	switch strings.ToLower(v.GetString("output")) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(value)
	case "yaml", "":
		// reuse the json field names so both formats agree.
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		var generic any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(generic)
	default:
		return fmt.Errorf("unknown output format %q", v.GetString("output"))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return observability.NewLogger(cfg.Logger)
}
