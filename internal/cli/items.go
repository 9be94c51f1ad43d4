package cli

import (
	"context"
	"fmt"

	"github.com/aviary-sim/aviary/internal/models"
	"github.com/spf13/cobra"
)

var (
	itemsLocation string
	itemsHolder   string
)

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "List items in the world store",
	Long: `List items, optionally filtered by location or holder.

Examples:
  aviary items
  aviary items --location Forest
  aviary items --holder Luna`,
	RunE: runItems,
}

func init() {
	itemsCmd.Flags().StringVarP(&itemsLocation, "location", "l", "", "filter by location name")
	itemsCmd.Flags().StringVarP(&itemsHolder, "holder", "H", "", "filter by holding avatar")
}

func runItems(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	s, err := getStore(ctx)
	if err != nil {
		return err
	}

	var items []models.Item
	switch {
	case itemsHolder != "":
		items, err = s.ItemsByHolder(ctx, itemsHolder)
	case itemsLocation != "":
		items, err = s.ItemsByLocation(ctx, itemsLocation)
	default:
		items, err = s.Items(ctx)
	}
	if err != nil {
		return fmt.Errorf("list items: %w", err)
	}

	if len(items) == 0 {
		fmt.Println("No items found.")
		return nil
	}

	t := defaultTheme
	fmt.Println(t.headingStyle().Render(fmt.Sprintf("Items (%d)", len(items))))
	fmt.Println()
	for _, item := range items {
		line := fmt.Sprintf("- %s @ %s", t.accentStyle().Render(item.Name), item.Location)
		if item.Held() {
			line += " " + t.hintStyle().Render("held by "+item.TakenBy)
		}
		fmt.Println(line)
		if verbose && item.Description != "" {
			fmt.Printf("  %s\n", t.hintStyle().Render(item.Description))
		}
	}
	return nil
}
