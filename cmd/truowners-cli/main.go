package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "truowners-cli",
		Short: "Служебные команды TruOwners",
	}

	rootCmd.AddCommand(
		migrateCmd(),
		seedPlansCmd(),
		createAdminCmd(),
		statusCountsCmd(),
		expireCmd(),
		reconcileCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
