package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var partsDevice string

var partsCmd = &cobra.Command{
	Use:   "parts [query]",
	Short: "Look up parts and consumables for your equipment",
	Long: `Identify part numbers, filter sizes, and replacement intervals from
your indexed documents. Recommendations carry a confidence level; part
numbers are only stated when a document confirms them.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runParts,
}

func init() {
	partsCmd.Flags().StringVar(&partsDevice, "device", "", "limit the lookup to one device type (e.g. furnace)")
	rootCmd.AddCommand(partsCmd)
}

func runParts(cmd *cobra.Command, args []string) error {
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

	res, err := a.Parts.Lookup(ctx, strings.Join(args, " "), partsDevice, prof)
	if err != nil {
		return fmt.Errorf("looking up parts: %w", err)
	}

	fmt.Println(res.Markdown)
	return nil
}
