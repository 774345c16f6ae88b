package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ecobin-network/ecobin/internal/infra/classifier"
)

func init() {
	rootCmd.AddCommand(detectCmd)
	detectCmd.Flags().StringP("file", "f", classifier.DefaultDetectionFile, "Detection file polled by the server")
}

// detectCmd stands in for the camera process: it writes the verdict file
// the server polls.
var detectCmd = &cobra.Command{
	Use:   "detect LABEL",
	Short: "Write a camera verdict to the detection file",
	Long: `Write what the bin camera sees. LABEL is a category (Plastic, Metal,
Paper), an object label (bottle, cup, can, book, paper), or "none" to clear.`,
	Args: cobra.ExactArgs(1),
	RunE: runDetect,
}

func runDetect(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("file")

	cat, ok := classifier.CategoryForLabel(args[0])
	if !ok && args[0] != "none" && args[0] != classifier.NoneLabel {
		return fmt.Errorf("unknown label %q", args[0])
	}
	if err := classifier.WriteDetection(path, cat); err != nil {
		return err
	}

	if cat == "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Waiting for waste... (%s cleared)\n", path)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅ Detected: %s (%s)\n", cat, path)
	return nil
}
