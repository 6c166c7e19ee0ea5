package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models available from the embedding service",
	RunE:  runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, _ []string) error {
	if embeddingService == nil {
		return errors.New("embedding service not configured")
	}
	ctx := cmd.Context()

	if !embeddingService.HealthCheck(ctx) {
		return errors.New("embedding service is unreachable")
	}

	models, err := embeddingService.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("listing models: %w", err)
	}

	if len(models) == 0 {
		cmd.Println("No models available.")
		return nil
	}

	defaultModel := cfg.Model()
	cmd.Println("Available models:")
	for _, m := range models {
		marker := " "
		if m.Name == defaultModel || m.Name == defaultModel+":latest" {
			marker = "*"
		}
		if m.Size > 0 {
			cmd.Printf("  %s %s (%s)\n", marker, m.Name, humanSize(m.Size))
		} else {
			cmd.Printf("  %s %s\n", marker, m.Name)
		}
	}
	return nil
}
