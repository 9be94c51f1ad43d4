package cli

import (
	"context"
	"fmt"

	"github.com/aviary-sim/aviary/internal/directory"
	"github.com/aviary-sim/aviary/internal/models"
	"github.com/spf13/cobra"
)

var locationsCmd = &cobra.Command{
	Use:   "locations",
	Short: "List the world's locations",
	RunE:  runLocations,
}

func runLocations(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	dir := directory.New(api, logger)

	locations, err := dir.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("list locations: %w", err)
	}

	if len(locations) == 0 {
		fmt.Println("No locations found.")
		return nil
	}

	t := defaultTheme
	fmt.Println(t.headingStyle().Render(fmt.Sprintf("Locations (%d)", len(locations))))
	fmt.Println()
	for _, loc := range locations {
		line := fmt.Sprintf("- %s [%s]", t.accentStyle().Render(loc.Name), loc.Type)
		if loc.Type == models.LocationThread && loc.Parent != "" {
			line += " " + t.hintStyle().Render("in "+loc.Parent)
		}
		fmt.Println(line)
		if verbose {
			fmt.Printf("  %s\n", t.hintStyle().Render("id: "+loc.ID))
		}
	}
	return nil
}
