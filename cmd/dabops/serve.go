package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mattjoyce/dabops/internal/api"
	"github.com/mattjoyce/dabops/internal/auth"
	"github.com/mattjoyce/dabops/internal/batch"
	"github.com/mattjoyce/dabops/internal/config"
	"github.com/mattjoyce/dabops/internal/events"
	"github.com/mattjoyce/dabops/internal/lock"
	"github.com/mattjoyce/dabops/internal/log"
	"github.com/mattjoyce/dabops/internal/scheduler"
	"github.com/mattjoyce/dabops/internal/workspace"
)

func newServeCmd(c *cli) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen != "" {
				c.cfg.API.Listen = listen
			}
			if c.cfg.API.Listen == "" {
				return errors.New("api.listen is required to serve")
			}
			if c.cfg.API.Auth.APIKey == "" && len(c.cfg.API.Auth.Tokens) == 0 {
				return errors.New("api.auth.api_key or api.auth.tokens is required to serve")
			}
			return c.runServe(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (default api.listen)")
	return cmd
}

func (c *cli) runServe(ctx context.Context) error {
	client, err := c.workspaceClient()
	if err != nil {
		return err
	}
	// One server per history database keeps generation serialized across
	// processes that share it.
	if path := c.cfg.State.Path; path != "" {
		l, err := lock.Acquire(lock.PathFor(path))
		if err != nil {
			return fmt.Errorf("acquire server lock: %w", err)
		}
		defer func() { _ = l.Release() }()
	}

	store, closeStore, err := c.openHistory(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	var history api.HistoryLister
	var recorder batch.HistoryRecorder
	if store != nil {
		history, recorder = store, store
	}
	gen, err := c.generator(ctx, client, recorder)
	if err != nil {
		return err
	}

	hub := events.NewHub(256)
	gen.OnProgress(func(p batch.Progress) {
		if p.Reason != "" {
			hub.Publish(events.TypeWorkflowFailed, p)
			return
		}
		hub.Publish(events.TypeWorkflowGenerated, p)
	})

	var pruner scheduler.HistoryPruner
	if store != nil {
		pruner = store
	}
	var warmer scheduler.ListingWarmer
	if cached, ok := client.(*workspace.CachedClient); ok {
		warmer = cached
	}
	interval := c.cfg.Service.TickInterval
	sched := scheduler.New(scheduler.Config{
		Interval:  interval,
		Jitter:    interval / 10,
		Retention: c.cfg.State.Retention,
	}, pruner, warmer, hub, log.Get())
	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	server := api.New(api.Config{
		Listen:       c.cfg.API.Listen,
		APIKey:       c.cfg.API.Auth.APIKey,
		Tokens:       apiTokens(c.cfg.API.Auth.Tokens),
		MaxWorkflows: c.cfg.Workspace.MaxWorkflows,
		Defaults:     c.batchDefaults(),
		Events:       hub,
	}, client, gen, history, log.WithComponent("api"))

	err = server.Start(ctx)
	if errors.Is(err, context.Canceled) {
		log.Info("shutdown complete")
		return nil
	}
	return err
}

func apiTokens(in []config.APITokenConfig) []auth.Token {
	out := make([]auth.Token, 0, len(in))
	for _, t := range in {
		out = append(out, auth.Token{Token: t.Token, Scopes: t.Scopes})
	}
	return out
}
