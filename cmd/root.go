package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"catalog-builder/utils"
)

// NewRootCmd builds the command tree. Each call returns a fresh tree so
// tests can execute commands in isolation.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "catalog",
		Short:         "Build a static product catalog page from a CSV file",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newGenerateCmd())
	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		utils.NewLogger().Error("%v", err)
		os.Exit(1)
	}
}
