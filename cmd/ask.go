package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/homewarden/homewarden/internal/risk"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from your indexed equipment documents",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, cancel, a, err := setupApp()
	if err != nil {
		return err
	}
	defer cancel()
	defer closeApp(a)

	prof, err := a.LoadProfile(ctx)
	if err != nil {
		a.Logger.Warn("house profile unavailable", "error", err)
	}

	question := strings.Join(args, " ")
	res, err := a.Asker.Ask(ctx, question, prof)
	if err != nil {
		return fmt.Errorf("answering question: %w", err)
	}

	fmt.Println(res.Answer)

	if res.RiskLevel == risk.LevelHigh {
		fmt.Println("\n[HIGH RISK - Professional Required]")
	}

	if len(res.Citations) > 0 {
		fmt.Println()
		sources := make([]string, 0, len(res.Citations))
		for _, c := range res.Citations {
			sources = append(sources, c.Source)
		}
		fmt.Printf("Sources: %s\n", strings.Join(sources, ", "))
	}

	return nil
}
