package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/c360studio/goldenthread/registry"
)

func cacheCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the registry record cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every cached registry record",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup(flags)
			if err != nil {
				return err
			}
			cache := registry.NewCache(cfg.CacheDir(), cfg.Registry.Cache.TTL)
			removed, err := cache.Clear()
			if err != nil {
				return err
			}
			fmt.Printf("removed %d cache entries from %s\n", removed, cfg.CacheDir())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "info",
		Short: "Show cache location, entry count, and staleness",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup(flags)
			if err != nil {
				return err
			}
			cache := registry.NewCache(cfg.CacheDir(), cfg.Registry.Cache.TTL)
			info, err := cache.Stat()
			if err != nil {
				return err
			}
			fmt.Printf("dir:     %s\n", info.Dir)
			fmt.Printf("entries: %d (%d expired)\n", info.Entries, info.Expired)
			fmt.Printf("size:    %d bytes\n", info.Bytes)
			fmt.Printf("ttl:     %s\n", cfg.Registry.Cache.TTL)
			return nil
		},
	})

	return cmd
}
