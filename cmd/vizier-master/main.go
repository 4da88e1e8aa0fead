// Command vizier-master is the process entrypoint: it parses flags,
// resolves configuration, selects a Datastore backend, dials a Policy,
// and wires an internal/orchestrator.Orchestrator. With no
// --policy-endpoint it boots against the in-process
// policy.RandomPolicy default; a --policy-endpoint requests a remote
// Policy, which this build cannot yet dial. It exposes no RPC
// transport of its own; it exists to show the pieces assembled the way
// a real deployment would assemble them.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/oss-vizier/core/internal/config"
	"github.com/oss-vizier/core/internal/db"
	"github.com/oss-vizier/core/internal/db/postgres"
	"github.com/oss-vizier/core/internal/orchestrator"
	"github.com/oss-vizier/core/internal/policy"
)

const bannerTemplate = `vizier-master starting
  datastore: {{ .Datastore }}
  early stop recycle period: {{ .RecyclePeriod }}
  log level: {{ .LogLevel | upper }}
`

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vizier-master",
		Short: "Coordination core for black-box hyperparameter optimization",
		RunE:  run,
	}
	config.BindFlags(cmd.Flags())
	cmd.Flags().String("policy-endpoint", "", "address of the remote Policy backend")
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	log := logrus.New()
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("parsing log level %q: %w", cfg.LogLevel, err)
	}
	log.SetLevel(level)

	if err := printBanner(cmd, cfg); err != nil {
		return err
	}

	store, err := openDatastore(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}

	endpoint, _ := cmd.Flags().GetString("policy-endpoint")
	pol, err := policy.Dial(endpoint)
	if err != nil {
		return fmt.Errorf("dialing Policy backend: %w", err)
	}

	orchestrator.New(store, pol,
		orchestrator.WithLogger(log),
		orchestrator.WithEarlyStopRecyclePeriod(cfg.EarlyStopRecyclePeriod),
	)

	log.Info("vizier-master wired; no RPC transport is exposed by this build")
	return nil
}

func openDatastore(ctx context.Context, cfg config.Config, log *logrus.Logger) (db.Datastore, error) {
	if cfg.DatabaseURL == "" {
		log.Info("database_url is empty; using the in-memory datastore")
		return db.NewMemory(), nil
	}
	log.WithField("database_url", redactDSN(cfg.DatabaseURL)).Info("connecting to postgres")
	return postgres.Open(ctx, cfg.DatabaseURL, log)
}

// redactDSN replaces everything before the first "@" with "***" so the
// logged line does not carry URL-embedded credentials. A DSN without an
// "@" is returned unchanged.
func redactDSN(dsn string) string {
	if i := strings.Index(dsn, "@"); i >= 0 {
		return "***" + dsn[i:]
	}
	return dsn
}

func printBanner(cmd *cobra.Command, cfg config.Config) error {
	tpl, err := template.New("banner").Funcs(sprig.TxtFuncMap()).Parse(bannerTemplate)
	if err != nil {
		return fmt.Errorf("parsing banner template: %w", err)
	}
	datastoreLabel := "memory"
	if cfg.DatabaseURL != "" {
		datastoreLabel = "postgres"
	}
	return tpl.Execute(cmd.OutOrStdout(), struct {
		Datastore     string
		RecyclePeriod string
		LogLevel      string
	}{
		Datastore:     datastoreLabel,
		RecyclePeriod: cfg.EarlyStopRecyclePeriod.String(),
		LogLevel:      cfg.LogLevel,
	})
}
