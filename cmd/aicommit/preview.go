package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matsen/aicommit/internal/clipboard"
)

var copyToClipboard bool

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Generate a commit message without committing",
	Long: `Generate a commit message for the current changes and print it.

Nothing is staged or committed. Use --copy to put the message on the
clipboard, e.g. to paste it into an IDE's commit dialog.`,
	Args: cobra.NoArgs,
	RunE: runPreview,
}

func init() {
	addGenerationFlags(previewCmd)
	previewCmd.Flags().BoolVar(&copyToClipboard, "copy", false, "Copy the message to the clipboard")
	previewCmd.Flags().BoolVar(&noStatus, "no-status", false, "Do not print the change summary before generating")
	rootCmd.AddCommand(previewCmd)
}

func runPreview(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	// Checked before generating so the user knows up front.
	if copyToClipboard && !clipboard.IsAvailable() {
		fmt.Fprintf(os.Stderr, "%s no clipboard command found (pbcopy, wl-copy, xclip, xsel, clip); the message will only be printed\n", warnStyle.Render("warning:"))
		copyToClipboard = false
	}

	res, err := runGeneration(ctx, true)
	if err != nil {
		return err
	}

	if err := output(res, func() string { return formatResult(res) }); err != nil {
		return err
	}

	if copyToClipboard {
		// Clipboard failures only warn.
		if err := clipboard.Copy(ctx, res.Message().String()); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", warnStyle.Render("warning:"), err)
			return nil
		}
		if !jsonOutput {
			fmt.Fprintln(os.Stderr, faintStyle.Render("Copied to clipboard."))
		}
	}
	return nil
}
