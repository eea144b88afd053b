package main

import "github.com/matsen/aicommit/internal/apperr"

// Exit codes. A commit the user declined is a success.
const (
	ExitSuccess         = 0   // Success, including a declined commit
	ExitError           = 1   // General error (invalid arguments, runtime failure)
	ExitConfigError     = 2   // Missing or invalid configuration, unknown provider
	ExitRepositoryError = 3   // Not a git repository, nothing to commit
	ExitProviderError   = 4   // AI provider network, auth, rate-limit or response failure
	ExitCommitError     = 5   // git commit or push failed
	ExitInterrupted     = 130 // Interrupted with Ctrl-C
)

// exitCode maps an error to the process exit code.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	switch apperr.KindOf(err) {
	case apperr.KindConfig:
		return ExitConfigError
	case apperr.KindRepository:
		return ExitRepositoryError
	case apperr.KindProvider:
		return ExitProviderError
	case apperr.KindCommit:
		return ExitCommitError
	case apperr.KindInterrupted:
		return ExitInterrupted
	default:
		return ExitError
	}
}
