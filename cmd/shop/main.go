package main

import (
	"context"
	"fmt"
	"os"

	"ecshop/internal/config"

	"github.com/spf13/cobra"
)

var Version = "dev"

var services = []string{config.ServiceUser, config.ServiceOrder, config.ServicePayment}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "shop",
		Short:         "user / order / payment services of the shop",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tokenCmd())
	return rootCmd
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// 引数はサービス名1つだけ
func serviceArg() cobra.PositionalArgs {
	return cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs)
}
