package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/BlackMission/tencentauth/internal/config"
	"github.com/BlackMission/tencentauth/internal/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app carries what PersistentPreRunE loaded to the subcommands.
type app struct {
	configPath string
	envFiles   []string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "tencentauth",
		Short:         "QQ Connect sign-in broker",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(a.envFiles...); err != nil {
				return err
			}
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			logger.Init(logger.Config{Env: cfg.Log.Env, Level: cfg.Log.Level, ServiceName: "tencentauth"})
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", os.Getenv("TENCENTAUTH_CONFIG"), "YAML config file (env TENCENTAUTH_CONFIG)")
	root.PersistentFlags().StringSliceVar(&a.envFiles, "env-file", []string{".env"}, "dotenv files loaded before the environment is read")

	root.AddCommand(newServeCmd(a), newAuthorizeURLCmd(a))
	return root
}
