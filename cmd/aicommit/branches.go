package main

import (
	"github.com/spf13/cobra"

	"github.com/matsen/aicommit/internal/apperr"
)

var branchesCmd = &cobra.Command{
	Use:   "branches",
	Short: "List local and remote branches",
	Args:  cobra.NoArgs,
	RunE:  runBranches,
}

func init() {
	rootCmd.AddCommand(branchesCmd)
}

func runBranches(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := setup(ctx, true)
	if err != nil {
		return err
	}

	branches, err := a.repo.Branches(ctx)
	if err != nil {
		return apperr.Repository(err)
	}
	return output(branches, func() string { return formatBranches(branches) })
}
