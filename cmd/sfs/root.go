package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mit-pdos/go-sfs/config"
	"github.com/mit-pdos/go-sfs/logger"
	"github.com/mit-pdos/go-sfs/util"
)

var (
	cfgFile string
	cfg     *config.Config
	v       *viper.Viper = config.New()
)

var rootCmd = &cobra.Command{
	Use:   "sfs",
	Short: "Create and operate on simple file system disk images",
	Long: `sfs manages single-volume disk images made of 512-byte blocks: one
superblock, one inode per block, a free-block bitmap, and files of up to
143 blocks reached through direct and indirect pointers.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(v, cfgFile)
		if err != nil {
			return err
		}
		cfg = c
		util.Debug = cfg.DebugLevel

		lc := logger.DefaultConfig()
		lc.Debug = cfg.Debug
		if cfg.LogFormat != "" {
			lc.Format = cfg.LogFormat
		}
		lc.File = cfg.LogFile
		return logger.Init(lc)
	},
}

// Execute runs the root command
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		logger.LogError("command execution failed", err, nil)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./sfs.yaml or $HOME/.config/sfs/sfs.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().Uint64("debug-level", 0, "verbosity of internal trace messages")
	rootCmd.PersistentFlags().String("log-format", "human", "log format: json or human")

	v.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	v.BindPFlag("debug_level", rootCmd.PersistentFlags().Lookup("debug-level"))
	v.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(mkfsCmd, shellCmd, dumpCmd)
}

// imageArg returns the image named on the command line, falling back to
// the configured one.
func imageArg(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if cfg != nil && cfg.Image != "" {
		return cfg.Image, nil
	}
	return "", errNoImage
}
