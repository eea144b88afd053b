package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/aicommit/internal/apperr"
	"github.com/matsen/aicommit/internal/git"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:     "history",
	Aliases: []string{"log"},
	Short:   "Show recent commits",
	Args:    cobra.NoArgs,
	RunE:    runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "number", "n", git.DefaultHistoryLimit, "Number of commits to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	if historyLimit <= 0 {
		return fmt.Errorf("--number must be positive, got %d", historyLimit)
	}

	ctx := cmd.Context()
	a, err := setup(ctx, true)
	if err != nil {
		return err
	}

	commits, err := a.repo.History(ctx, historyLimit)
	if err != nil {
		return apperr.Repository(err)
	}
	if commits == nil {
		commits = []git.CommitInfo{}
	}
	return output(commits, func() string { return formatHistory(commits) })
}
