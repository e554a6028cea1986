package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"exportgen/internal/diag"
	"exportgen/internal/metadata"
	"exportgen/internal/ui"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the global module cache used for reference resolution",
}

var cacheAddCmd = &cobra.Command{
	Use:   "add <image>...",
	Short: "Install module images into the cache",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		cache := openCache(cfg)
		if cache == nil {
			return diag.Errorf(diag.UseBadConfig, "no cache directory configured and no home directory to default to")
		}
		paths, err := expandInputs(args)
		if err != nil {
			return err
		}
		for _, p := range paths {
			img, err := metadata.ReadFile(p)
			if err != nil {
				return diag.Wrap(diag.RefBadImage, err, "cannot read module image %s", p)
			}
			dest, err := cache.Put(img)
			if err != nil {
				return diag.Wrap(diag.IOWrite, err, "cannot install %s", p)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "installed %s -> %s\n", img.Identity.Name, dest)
		}
		return nil
	},
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached module images",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		cache := openCache(cfg)
		entries, err := cache.List()
		if err != nil {
			return diag.Wrap(diag.IORead, err, "cannot read cache index in %s", cache.Dir())
		}
		tbl := &ui.Table{
			Title:   fmt.Sprintf("%d cached modules in %s", len(entries), cache.Dir()),
			Columns: []string{"NAME", "VERSION", "TOKEN", "CULTURE"},
			Color:   !noColor(),
		}
		for _, e := range entries {
			token := hex.EncodeToString(e.Identity.PublicKeyToken)
			if token == "" {
				token = "null"
			}
			tbl.Append(e.Identity.Name, e.Identity.Version.String(), token, e.Identity.Culture)
		}
		return tbl.Render(cmd.OutOrStdout())
	},
}

var cacheDirCmd = &cobra.Command{
	Use:   "dir",
	Short: "Print the cache directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), openCache(cfg).Dir())
		return err
	},
}

func init() {
	cacheCmd.AddCommand(cacheAddCmd)
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheDirCmd)
}
