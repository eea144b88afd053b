// Package main provides the aicommit CLI entry point.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matsen/aicommit/internal/apperr"
	"github.com/matsen/aicommit/internal/config"
	"github.com/matsen/aicommit/internal/git"
	"github.com/matsen/aicommit/internal/logging"
)

// Version is set at build time via ldflags
var Version = "dev"

// Persistent flags.
var (
	repoPath    string
	promptsPath string
	envFile     string
	jsonOutput  bool
	verbose     bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		reportError(err)
		os.Exit(exitCode(err))
	}
}

var rootCmd = &cobra.Command{
	Use:   "aicommit",
	Short: "Generate commit messages with AI",
	Long: `aicommit sends the diff of your changes to an AI provider and commits
with the Conventional Commits message it proposes.

By default only staged changes are used and the message is shown for
review before committing. Providers: openai, google, azure, ollama.

Configuration is read from the environment, then <repo>/.env, then
$XDG_CONFIG_HOME/aicommit/.env.`,
	Args:          cobra.NoArgs,
	RunE:          runCommit,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&repoPath, "repo", "r", "", "Repository path (default: current directory)")
	pf.StringVar(&promptsPath, "prompts", "", "YAML file with custom prompt templates")
	pf.StringVar(&envFile, "env-file", "", "Load configuration from this env file only")
	pf.BoolVar(&jsonOutput, "json", false, "Output JSON instead of human-readable text")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")

	addGenerationFlags(rootCmd)
	rootCmd.Flags().BoolVarP(&autoConfirm, "yes", "y", false, "Commit without asking for confirmation")
	rootCmd.Flags().BoolVar(&autoConfirm, "auto-confirm", false, "Alias for --yes")
	rootCmd.Flags().BoolVar(&pushAfter, "push", false, "Push the current branch after committing")
	rootCmd.Flags().StringVar(&pushRemote, "remote", git.DefaultRemote, "Remote to push to")
	rootCmd.Flags().BoolVar(&noStatus, "no-status", false, "Do not print the change summary before generating")

	rootCmd.Version = Version
}

// app holds what most commands need: a logger, the loaded configuration and,
// when requireRepo is set, the repository.
type app struct {
	log      *zap.Logger
	cfg      config.Config
	repo     *git.Repo
	envFiles []string
}

// setup builds the logger, opens the repository and loads configuration.
// Env files are loaded before the configuration is read so that the repo's
// .env can be found. Without requireRepo, a missing repository is tolerated.
func setup(ctx context.Context, requireRepo bool) (*app, error) {
	a := &app{log: logging.New(os.Stderr, verbose)}

	start := repoPath
	if start == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, apperr.Repository(err)
		}
		start = cwd
	}

	repo, err := git.Open(ctx, config.ExpandPath(start), git.WithLogger(a.log))
	switch {
	case err == nil:
		a.repo = repo
	case requireRepo || !errors.Is(err, git.ErrNotGitRepo):
		return nil, apperr.Repository(err, "run aicommit inside a git repository or pass --repo")
	}

	if envFile != "" {
		if err := config.LoadEnvFile(envFile); err != nil {
			return nil, apperr.Config(err)
		}
		a.envFiles = []string{config.ExpandPath(envFile)}
	} else {
		root := ""
		if a.repo != nil {
			root = a.repo.Root()
		}
		loaded, err := config.LoadEnvFiles(config.DefaultEnvFiles(root)...)
		if err != nil {
			return nil, apperr.Config(err)
		}
		a.envFiles = loaded
	}

	cfg, err := config.FromEnv()
	if err != nil {
		return nil, apperr.Config(err, "fix the value in your environment or .env file")
	}
	a.cfg = cfg

	a.log.Debug("configuration loaded",
		zap.Strings("env_files", a.envFiles),
		zap.String("default_provider", cfg.DefaultProvider),
		zap.String("default_lang", cfg.DefaultLang))

	return a, nil
}
