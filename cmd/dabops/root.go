package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mattjoyce/dabops/internal/batch"
	"github.com/mattjoyce/dabops/internal/bundle"
	"github.com/mattjoyce/dabops/internal/config"
	"github.com/mattjoyce/dabops/internal/log"
	"github.com/mattjoyce/dabops/internal/state"
	"github.com/mattjoyce/dabops/internal/storage"
	"github.com/mattjoyce/dabops/internal/tui"
	"github.com/mattjoyce/dabops/internal/workspace"
)

// Commands declare how much configuration they need through this annotation.
const (
	configAnnotation = "dabops/config"
	configNone       = "none"
	configRaw        = "raw"
)

// flagBindings maps config keys to the persistent flags that override them.
// Flags win over environment and file.
var flagBindings = map[string]string{
	"service.log_level":   "log-level",
	"service.log_format":  "log-format",
	"workspace.local_dir": "local-dir",
	"state.path":          "history-db",
}

// cli carries the streams and the resolved configuration shared by every
// command of one invocation.
type cli struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	configPath string
	cfg        *config.Config
	renderer   *tui.Renderer
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "dabops",
		Short: "Generate Databricks asset bundles from existing workflows",
		Long: `dabops discovers workflows in a Databricks workspace and translates each
into an asset bundle document that recreates it as infrastructure-as-code.

Configuration is read from --config, $DABOPS_CONFIG, ~/.config/dabops/config.yaml,
/etc/dabops/config.yaml or ./config.yaml, then overridden by environment
variables and flags.`,
		Version:       currentVersionInfo().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
	}

	root.SetVersionTemplate("dabops {{.Version}}\n")

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "Path to configuration file")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.String("log-format", "", "Log format (json, text)")
	flags.String("local-dir", "", "Serve workflows from a directory of Jobs API exports")
	flags.String("history-db", "", "Path to the SQLite history database")

	root.AddCommand(
		newListCmd(c),
		newShowCmd(c),
		newGenerateCmd(c),
		newHistoryCmd(c),
		newServeCmd(c),
		newConfigCmd(c),
		newVersionCmd(c),
	)
	return root
}

// setup resolves configuration for cmd and configures logging.
func (c *cli) setup(cmd *cobra.Command) error {
	c.renderer = tui.NewRenderer(tui.NewDefaultTheme())
	mode := cmd.Annotations[configAnnotation]
	if mode == configNone {
		return nil
	}

	cfg, err := config.Resolve(c.configPath)
	if err != nil {
		return err
	}
	if err := applyFlags(cfg, cmd); err != nil {
		return err
	}
	if mode != configRaw {
		if err := config.Validate(cfg); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
	}
	c.cfg = cfg
	log.Setup(cfg.Service.LogLevel, cfg.Service.LogFormat)
	return nil
}

// applyFlags overlays explicitly set persistent flags on cfg.
func applyFlags(cfg *config.Config, cmd *cobra.Command) error {
	v := viper.New()
	for key, name := range flagBindings {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind --%s: %w", name, err)
		}
	}

	if v.IsSet("service.log_level") {
		cfg.Service.LogLevel = v.GetString("service.log_level")
	}
	if v.IsSet("service.log_format") {
		cfg.Service.LogFormat = v.GetString("service.log_format")
	}
	if v.IsSet("workspace.local_dir") {
		cfg.Workspace.LocalDir = v.GetString("workspace.local_dir")
	}
	if v.IsSet("state.path") {
		cfg.State.Path = v.GetString("state.path")
	}
	return nil
}

// workspaceClient builds the configured client, fronted by the listing cache
// when enabled.
func (c *cli) workspaceClient() (workspace.Client, error) {
	var (
		client workspace.Client
		host   string
	)
	if dir := c.cfg.Workspace.LocalDir; dir != "" {
		fsClient, err := workspace.NewFSClient(dir, c.cfg.Workspace.User)
		if err != nil {
			return nil, err
		}
		client, host = fsClient, "file://"+dir
	} else {
		rest, err := workspace.NewRESTClient(workspace.RESTConfig{
			Host:              c.cfg.Workspace.Host,
			Token:             c.cfg.Workspace.Token,
			Timeout:           c.cfg.Workspace.RequestTimeout,
			RequestsPerSecond: c.cfg.Workspace.RequestsPerSecond,
		}, log.WithComponent("workspace"))
		if err != nil {
			return nil, err
		}
		client, host = rest, c.cfg.Workspace.Host
	}

	if c.cfg.Cache.Enabled && c.cfg.Cache.TTL > 0 {
		client = workspace.NewCachedClient(client, host, c.cfg.Cache.TTL)
	}
	return client, nil
}

// generator wires a batch generator for client. The workspace host and user
// feed the full-mode envelope; when they cannot be read the envelope falls
// back to its defaults.
func (c *cli) generator(ctx context.Context, client workspace.Client, recorder batch.HistoryRecorder) (*batch.Generator, error) {
	info, err := client.Info(ctx)
	if err != nil {
		if errors.Is(err, workspace.ErrAuthentication) {
			return nil, err
		}
		log.Warn("workspace info unavailable", "error", err)
	}

	translator := bundle.NewTranslator(bundle.Options{
		TargetEnv:     c.cfg.Bundle.TargetEnv,
		WorkspaceHost: info.Host,
		CurrentUser:   info.User,
		GitOriginURL:  c.cfg.Bundle.GitOriginURL,
		GitBranch:     c.cfg.Bundle.GitBranch,
	}, nil, log.WithComponent("translator"))
	emitter := bundle.NewEmitter(log.WithComponent("emitter"))
	return batch.NewGenerator(client, translator, emitter, c.cfg.Bundle.OutputDir, recorder, log.WithComponent("batch")), nil
}

// openHistory opens the history database. It returns a nil store when
// state.path is empty.
func (c *cli) openHistory(ctx context.Context) (*state.HistoryStore, func(), error) {
	path := c.cfg.State.Path
	if path == "" {
		return nil, func() {}, nil
	}
	db, err := storage.OpenSQLite(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	return state.NewHistoryStore(db), func() { _ = db.Close() }, nil
}

func (c *cli) batchDefaults() batch.Options {
	return batch.Options{
		Mode:                bundle.ModeFull,
		IncludeDependencies: c.cfg.Bundle.IncludeDependencies,
		AutoSave:            c.cfg.Bundle.AutoSave,
	}
}
