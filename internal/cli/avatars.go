package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/aviary-sim/aviary/internal/directory"
	"github.com/spf13/cobra"
)

var avatarsCmd = &cobra.Command{
	Use:   "avatars",
	Short: "List the avatar roster",
	Long: `List all avatars known to the directory with their current
locations and remembered haunts.`,
	RunE: runAvatars,
}

func runAvatars(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	dir := directory.New(api, logger)

	avatars, _, err := dir.InitializeAvatars(ctx)
	if err != nil {
		return fmt.Errorf("list avatars: %w", err)
	}

	if len(avatars) == 0 {
		fmt.Println("No avatars found.")
		return nil
	}

	t := defaultTheme
	fmt.Println(t.headingStyle().Render(fmt.Sprintf("Avatars (%d)", len(avatars))))
	fmt.Println()
	for _, avatar := range avatars {
		var flags []string
		if avatar.Force {
			flags = append(flags, "force")
		}
		if avatar.Summon {
			flags = append(flags, "summon")
		}
		suffix := ""
		if len(flags) > 0 {
			suffix = " [" + strings.Join(flags, ",") + "]"
		}

		fmt.Printf("%s %s @ %s%s\n",
			avatar.Emoji,
			t.accentStyle().Render(avatar.Name),
			avatar.Location.Name,
			suffix)
		if verbose {
			if avatar.Owner != "" {
				fmt.Printf("  %s\n", t.hintStyle().Render("owner: "+avatar.Owner))
			}
			if len(avatar.Remember) > 0 {
				fmt.Printf("  %s\n", t.hintStyle().Render("remembers: "+strings.Join(avatar.Remember, ", ")))
			}
		}
	}
	return nil
}
