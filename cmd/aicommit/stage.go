package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matsen/aicommit/internal/apperr"
	"github.com/matsen/aicommit/internal/config"
	"github.com/matsen/aicommit/internal/review"
)

var stageCmd = &cobra.Command{
	Use:   "stage [paths...]",
	Short: "Stage files, interactively when no paths are given",
	Long: `Stage files for the next commit.

With paths, they are staged directly. Without paths, unstaged and untracked
files are listed and you choose which to stage by number.`,
	RunE: runStage,
}

func init() {
	rootCmd.AddCommand(stageCmd)
}

// StageResult is the response for the stage command.
type StageResult struct {
	Staged []string `json:"staged"`
}

func runStage(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := setup(ctx, true)
	if err != nil {
		return err
	}

	paths, err := repoPaths(a, args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		st, err := a.repo.Status(ctx)
		if err != nil {
			return apperr.Repository(err)
		}
		candidates := review.Candidates(st)
		if len(candidates) == 0 {
			return output(StageResult{Staged: []string{}}, func() string { return "Nothing to stage.\n" })
		}

		paths, err = review.NewStager(os.Stdin, os.Stderr).Select(ctx, candidates)
		switch {
		case errors.Is(err, review.ErrCanceled):
			return output(StageResult{Staged: []string{}}, func() string { return "Nothing staged.\n" })
		case err != nil:
			return err
		}
	}

	if err := a.repo.Stage(ctx, paths...); err != nil {
		return apperr.Repository(err)
	}
	return output(StageResult{Staged: paths}, func() string {
		return fmt.Sprintf("%s %d file(s)\n", successStyle.Render("Staged"), len(paths))
	})
}

// repoPaths makes command-line paths relative to the repository root. They
// are taken relative to --repo when given, else the current directory.
func repoPaths(a *app, args []string) ([]string, error) {
	if len(args) == 0 {
		return nil, nil
	}

	base := config.ExpandPath(repoPath)
	if base == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, apperr.Repository(err)
		}
		base = cwd
	}
	base, err := filepath.Abs(base)
	if err != nil {
		return nil, apperr.Repository(err)
	}

	paths := make([]string, 0, len(args))
	for _, arg := range args {
		rel, err := a.repo.RelPath(base, arg)
		if err != nil {
			return nil, apperr.Repository(err, "only files inside "+a.repo.Root()+" can be staged")
		}
		paths = append(paths, rel)
	}
	return paths, nil
}
