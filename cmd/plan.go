package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/homewarden/homewarden/internal/profile"
)

var planCmd = &cobra.Command{
	Use:   "plan [season]",
	Short: "Generate a seasonal maintenance checklist for your house",
	Long: `Generate a maintenance checklist for spring, summer, fall, or winter,
scoped to the systems in your house profile and grounded in their manuals.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	season, err := profile.ParseSeason(args[0])
	if err != nil {
		return err
	}

	ctx, cancel, a, err := setupApp()
	if err != nil {
		return err
	}
	defer cancel()
	defer closeApp(a)

	prof, err := a.LoadProfile(ctx)
	if err != nil {
		return fmt.Errorf("loading house profile (plan requires one): %w", err)
	}

	res, err := a.Planner.Plan(ctx, season, prof)
	if err != nil {
		return fmt.Errorf("generating plan: %w", err)
	}

	fmt.Println(res.Markdown)
	return nil
}
