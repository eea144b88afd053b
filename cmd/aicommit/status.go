package main

import (
	"github.com/spf13/cobra"

	"github.com/matsen/aicommit/internal/apperr"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show staged, unstaged and untracked files",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := setup(ctx, true)
	if err != nil {
		return err
	}

	st, err := a.repo.Status(ctx)
	if err != nil {
		return apperr.Repository(err)
	}
	return output(st, func() string { return formatStatus(st) })
}
