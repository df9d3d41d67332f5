package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mit-pdos/go-sfs/disk"
	"github.com/mit-pdos/go-sfs/logger"
	"github.com/mit-pdos/go-sfs/sfs"
	"github.com/mit-pdos/go-sfs/shell"
	"github.com/mit-pdos/go-sfs/super"
)

var errNoImage = errors.New("no disk image given (pass IMAGE or set image in the config)")

var mkfsCmd = &cobra.Command{
	Use:   "mkfs [IMAGE]",
	Short: "Create a disk image holding an empty file system",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := imageArg(args)
		if err != nil {
			return err
		}
		blocks := cfg.Volume.Blocks
		if cmd.Flags().Changed("blocks") {
			blocks, _ = cmd.Flags().GetUint64("blocks")
		}
		name := cfg.Volume.Name
		if cmd.Flags().Changed("name") {
			name, _ = cmd.Flags().GetString("name")
		}

		d, err := disk.Create(path, blocks)
		if err != nil {
			return err
		}
		defer d.Close()
		sb, err := super.Format(d, name)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d blocks, volume %q, data starts at block %d\n",
			path, sb.NBlocks, sb.VolName, sb.DataStart())
		return nil
	},
}

var shellCmd = &cobra.Command{
	Use:   "shell [IMAGE]",
	Short: "Run the interactive shell, optionally mounting IMAGE first",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sh := shell.New(cmd.OutOrStdout())
		if path, err := imageArg(args); err == nil {
			if err := sh.Mount(path); err != nil {
				return err
			}
		}
		logger.LogDebug("shell started", nil)
		return sh.Run(os.Stdin)
	},
}

var dumpCmd = &cobra.Command{
	Use:   "dump [IMAGE]",
	Short: "Print the metadata of every file and directory as YAML",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := imageArg(args)
		if err != nil {
			return err
		}
		fsys, err := sfs.MountImage(path)
		if err != nil {
			return err
		}
		defer fsys.Unmount()
		root, err := fsys.Dump()
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(root); err != nil {
			return err
		}
		return enc.Close()
	},
}

func init() {
	mkfsCmd.Flags().Uint64("blocks", 1024, "image size in blocks")
	mkfsCmd.Flags().String("name", "sfs", "volume name")
}
