package main

// Run one optimization from files on disk:
//   go run ./cmd/prompttest --resume cv.tex --jd job.txt --out tuned.tex

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"cv-optimizer/internal/clientstate"
	"cv-optimizer/internal/llm"
	"cv-optimizer/internal/llm/gemini"
	"cv-optimizer/internal/llm/openai"
	"cv-optimizer/internal/optimize"
	"cv-optimizer/internal/shared/config"
	"cv-optimizer/internal/shared/telemetry"
)

var (
	resumePath string
	jdPath     string
	outPath    string
	provider   string
	model      string
	dryRun     bool
)

var rootCmd = &cobra.Command{
	Use:          "prompttest",
	Short:        "Send a LaTeX CV and a job description through the optimizer",
	Long:         "Reads a .tex résumé and a job description from disk, runs a single optimization and prints or writes the LaTeX result.",
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVar(&resumePath, "resume", "", "path to the LaTeX résumé")
	rootCmd.Flags().StringVar(&jdPath, "jd", "", "path to the job description")
	rootCmd.Flags().StringVar(&outPath, "out", "", "write the result to this path instead of stdout")
	rootCmd.Flags().StringVar(&provider, "provider", "", "override LLM_PROVIDER (deepseek, openai, gemini)")
	rootCmd.Flags().StringVar(&model, "model", "", "override LLM_MODEL")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the chat messages without calling the provider")
	_ = rootCmd.MarkFlagRequired("resume")
	_ = rootCmd.MarkFlagRequired("jd")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	defer telemetry.Sync()

	resume, err := os.ReadFile(resumePath)
	if err != nil {
		return fmt.Errorf("read resume: %w", err)
	}
	jd, err := os.ReadFile(jdPath)
	if err != nil {
		return fmt.Errorf("read job description: %w", err)
	}

	if dryRun {
		for _, m := range optimize.BuildMessages(string(resume), string(jd)) {
			fmt.Fprintf(cmd.OutOrStdout(), "--- %s ---\n%s\n", m.Role, m.Content)
		}
		return nil
	}

	// Flags override the environment before defaults are derived from it.
	if p := strings.TrimSpace(provider); p != "" {
		_ = os.Setenv("LLM_PROVIDER", p)
	}
	if m := strings.TrimSpace(model); m != "" {
		_ = os.Setenv("LLM_MODEL", m)
	}
	cfg := config.Load()

	client, err := buildClient(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	result, err := optimize.NewService(client).Optimize(cmd.Context(), string(resume), string(jd))
	if err != nil {
		return err
	}

	if outPath == "" {
		_, err = fmt.Fprintln(cmd.OutOrStdout(), result)
		return err
	}
	if err := os.WriteFile(outPath, []byte(result), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (label: %s)\n", outPath, clientstate.DeriveLabel(result))
	return nil
}

func buildClient(ctx context.Context, cfg config.Config) (llm.Client, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	switch cfg.LLMProvider {
	case "gemini":
		return gemini.NewClient(ctx, cfg.LLMAPIKey, cfg.LLMModel)
	default:
		return openai.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, nil)
	}
}
