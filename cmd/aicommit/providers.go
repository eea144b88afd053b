package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matsen/aicommit/internal/config"
	"github.com/matsen/aicommit/internal/provider"
)

var offline bool

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List AI providers and whether they are configured",
	Long: `List the supported AI providers with their model and configuration state.

Ollama is also checked for a running server and an installed model unless
--offline is set.`,
	Args: cobra.NoArgs,
	RunE: runProviders,
}

func init() {
	providersCmd.Flags().BoolVar(&offline, "offline", false, "Do not contact the Ollama server")
	rootCmd.AddCommand(providersCmd)
}

// providerReport is a provider.Status plus the result of probing local
// servers. Nil means not checked.
type providerReport struct {
	provider.Status
	Reachable      *bool `json:"reachable,omitempty"`
	ModelInstalled *bool `json:"model_installed,omitempty"`
}

func runProviders(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := setup(ctx, false)
	if err != nil {
		return err
	}

	statuses := provider.Statuses(a.cfg)
	reports := make([]providerReport, 0, len(statuses))
	for _, st := range statuses {
		r := providerReport{Status: st}
		if st.Name == config.ProviderOllama && !offline {
			checkOllamaStatus(ctx, a, &r)
		}
		reports = append(reports, r)
	}
	return output(reports, func() string { return formatProviders(reports) })
}

func checkOllamaStatus(ctx context.Context, a *app, r *providerReport) {
	pc, err := a.cfg.Provider(config.ProviderOllama)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, ollamaCheckTimeout)
	defer cancel()

	o := provider.NewOllama(pc, provider.WithLogger(a.log))
	reachable := o.IsAvailable(ctx)
	r.Reachable = &reachable
	if !reachable {
		return
	}

	installed, err := o.HasModel(ctx)
	if err != nil {
		a.log.Debug("ollama model check failed", zap.Error(err))
		return
	}
	r.ModelInstalled = &installed
}
