package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/cppla/discourse/config"
	"github.com/cppla/discourse/utils"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		driver     string
	)
	root := &cobra.Command{
		Use:           "discourse",
		Short:         "College discussion board server",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			if driver != "" {
				if err := os.Setenv("GATEWAY_DRIVER", driver); err != nil {
					return err
				}
			}
			cfg, err := config.LoadFrom(configPath)
			if err != nil {
				return err
			}
			config.Set(cfg)
			return utils.InitLogger(cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to the JSON configuration file")
	root.PersistentFlags().StringVar(&driver, "gateway", "", "backend gateway: supabase, sql or memory")

	root.AddCommand(newServeCmd(), newMigrateCmd(), newVersionCmd(), newPostsCmd())
	return root
}
