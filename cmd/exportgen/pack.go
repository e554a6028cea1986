package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"exportgen/internal/diag"
	"exportgen/internal/metadata"
	"exportgen/internal/pack"
)

var packCmd = &cobra.Command{
	Use:   "pack <description.toml>... [-o <image>]",
	Short: "Build module images from TOML descriptions",
	Long: `pack turns each TOML module description into a module image. The image
is written next to the description, named after the module with a .dll
extension, unless -o (single input) or --out-dir is given.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPack,
}

func init() {
	packCmd.Flags().StringP("output", "o", "", "output image path (single description only)")
	packCmd.Flags().String("out-dir", "", "directory for the produced images")
	packCmd.Flags().Bool("exe", false, "use the .exe extension for produced images")
}

func runPack(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	outDir, err := cmd.Flags().GetString("out-dir")
	if err != nil {
		return err
	}
	exe, err := cmd.Flags().GetBool("exe")
	if err != nil {
		return err
	}
	inputs, err := expandInputs(args)
	if err != nil {
		return err
	}
	if output != "" && len(inputs) > 1 {
		return diag.Errorf(diag.UseBadOption, "-o needs exactly one description, got %d", len(inputs))
	}

	opts := pack.Options{}
	if len(cfg.Export.Attributes) > 0 {
		opts.Marker = cfg.Export.Attributes[0]
	}
	ext := ".dll"
	if exe {
		ext = ".exe"
	}

	for _, in := range inputs {
		img, err := pack.File(in, opts)
		if err != nil {
			return err
		}
		dest := output
		if dest == "" {
			dir := outDir
			if dir == "" {
				dir = filepath.Dir(in)
			}
			dest = filepath.Join(dir, imageFileName(img.Identity.Name, ext))
		}
		if err := metadata.WriteFile(dest, img); err != nil {
			return diag.Wrap(diag.IOWrite, err, "cannot write image %s", dest)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "packed %s -> %s\n", in, dest)
	}
	return nil
}

// imageFileName keeps module names that already end in the extension.
func imageFileName(name, ext string) string {
	if strings.EqualFold(filepath.Ext(name), ext) {
		return name
	}
	return name + ext
}
