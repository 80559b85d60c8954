package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	purgeEntityTTL   time.Duration
	purgeMaxEntities int
	purgeMetaTTL     time.Duration
)

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove expired and excess cache records",
	RunE:  runPurge,
}

func init() {
	purgeCmd.Flags().DurationVar(&purgeEntityTTL, "entity-ttl", 0, "override cache.entity_ttl (e.g. 720h)")
	purgeCmd.Flags().IntVar(&purgeMaxEntities, "max-entities", 0, "override cache.max_entities")
	purgeCmd.Flags().DurationVar(&purgeMetaTTL, "meta-ttl", 0, "override cache.meta_ttl")
}

func runPurge(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.cache.Enabled() {
		return fmt.Errorf("cache is unavailable")
	}

	policy := a.purgePolicy()
	flags := cmd.Flags()
	if flags.Changed("entity-ttl") {
		policy.EntityTTL = purgeEntityTTL
	}
	if flags.Changed("meta-ttl") {
		policy.MetaTTL = purgeMetaTTL
	}
	if flags.Changed("max-entities") {
		policy.MaxEntities = purgeMaxEntities
	}

	report, err := a.cache.Purge(ctx, a.scope(), policy)
	if err != nil {
		return fmt.Errorf("purge failed: %w", err)
	}

	fmt.Printf("Expired entities: %s\n", humanize.Comma(int64(report.EntitiesExpired)))
	fmt.Printf("Evicted entities: %s\n", humanize.Comma(int64(report.EntitiesEvicted)))
	fmt.Printf("Expired meta:     %s\n", humanize.Comma(int64(report.MetaExpired)))
	return nil
}
