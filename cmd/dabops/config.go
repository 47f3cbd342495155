package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mattjoyce/dabops/internal/config"
	"github.com/mattjoyce/dabops/internal/doctor"
	"github.com/mattjoyce/dabops/internal/workspace"
)

const redacted = "********"

func newConfigCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate configuration",
	}
	cmd.AddCommand(newConfigCheckCmd(c), newConfigShowCmd(c))
	return cmd
}

func newConfigCheckCmd(c *cli) *cobra.Command {
	var (
		connect bool
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:         "check",
		Short:       "Validate configuration and optionally test the workspace connection",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{configAnnotation: configRaw},
		RunE: func(cmd *cobra.Command, args []string) error {
			var client workspace.Client
			if connect {
				var err error
				if client, err = c.workspaceClient(); err != nil {
					fmt.Fprintf(c.errOut, "Connection test skipped: %v\n", err)
				}
			}

			result := doctor.New(c.cfg, client).Validate(cmd.Context())
			if jsonOut {
				out, err := doctor.FormatJSON(result)
				if err != nil {
					return err
				}
				fmt.Fprintln(c.out, out)
			} else {
				if c.cfg.SourceFile != "" {
					fmt.Fprintf(c.out, "Config: %s\n", c.cfg.SourceFile)
				} else {
					fmt.Fprintln(c.out, "Config: defaults and environment")
				}
				fmt.Fprint(c.out, doctor.FormatHuman(result))
			}
			if !result.Valid {
				return &exitError{code: 1}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&connect, "connect", false, "Test the workspace connection")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newConfigShowCmd(c *cli) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:         "show",
		Short:       "Print the effective configuration with secrets redacted",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{configAnnotation: configRaw},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *c.cfg
			if cfg.Workspace.Token != "" {
				cfg.Workspace.Token = redacted
			}
			if cfg.API.Auth.APIKey != "" {
				cfg.API.Auth.APIKey = redacted
			}
			if len(cfg.API.Auth.Tokens) > 0 {
				tokens := make([]config.APITokenConfig, len(cfg.API.Auth.Tokens))
				for i, t := range cfg.API.Auth.Tokens {
					tokens[i] = config.APITokenConfig{Token: redacted, Scopes: t.Scopes}
				}
				cfg.API.Auth.Tokens = tokens
			}
			if jsonOut {
				return c.printJSON(cfg)
			}
			data, err := yaml.Marshal(&cfg)
			if err != nil {
				return fmt.Errorf("render YAML: %w", err)
			}
			fmt.Fprint(c.out, string(data))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}
