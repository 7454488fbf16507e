package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/internmatch/internal/api"
	"github.com/kalambet/internmatch/internal/catalog"
	"github.com/kalambet/internmatch/internal/profile"
)

// --- skills ---

var profilesSkillsCmd = &cobra.Command{
	Use:   "skills",
	Short: "Add or remove skills on a profile",
}

var skillsAddCmd = &cobra.Command{
	Use:   "add <id> <skill>",
	Short: "Add a skill to a profile",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		rec, err := editSkill(commandContext(cmd), client, http.MethodPost, args[0], args[1])
		if err != nil {
			return err
		}
		printSuccess("Skills of %s: %s", rec.Name, strings.Join(rec.Skills, ", "))
		return nil
	},
}

var skillsRemoveCmd = &cobra.Command{
	Use:   "remove <id> <skill>",
	Short: "Remove a skill from a profile",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		rec, err := editSkill(commandContext(cmd), client, http.MethodDelete, args[0], args[1])
		if err != nil {
			return err
		}
		printSuccess("Skills of %s: %s", rec.Name, strings.Join(rec.Skills, ", "))
		return nil
	},
}

func editSkill(ctx context.Context, client *apiClient, method, id, skill string) (profile.Record, error) {
	path := "/profiles/" + url.PathEscape(id) + "/skills"
	var body any
	if method == http.MethodDelete {
		path += "/" + url.PathEscape(skill)
	} else {
		body = api.SkillRequest{Skill: skill}
	}

	resp, err := client.do(ctx, method, path, body)
	if err != nil {
		return profile.Record{}, err
	}
	var rec profile.Record
	if err := decodeJSON(resp, &rec); err != nil {
		return profile.Record{}, busyHint(err)
	}
	return rec, nil
}

// --- internships ---

var internshipsCmd = &cobra.Command{
	Use:   "internships",
	Short: "List recommended internships, best match first",
	RunE: func(cmd *cobra.Command, args []string) error {
		newOnly, _ := cmd.Flags().GetBool("new")
		minMatch, _ := cmd.Flags().GetInt("min-match")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return listInternships(commandContext(cmd), client, newOnly, minMatch, os.Stdout)
	},
}

func listInternships(ctx context.Context, client *apiClient, newOnly bool, minMatch int, w io.Writer) error {
	q := url.Values{}
	if newOnly {
		q.Set("new", "true")
	}
	if minMatch > 0 {
		q.Set("min_match", fmt.Sprint(minMatch))
	}
	path := "/internships"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	resp, err := client.get(ctx, path)
	if err != nil {
		return err
	}
	var items []catalog.Internship
	if err := decodeJSON(resp, &items); err != nil {
		return err
	}

	if len(items) == 0 {
		fmt.Fprintln(w, "No internships match.")
		return nil
	}
	for _, it := range items {
		badge := ""
		if it.IsNew {
			badge = " " + colorize(colorRed, "NEW")
		}
		fmt.Fprintf(w, "%s%%  %s, %s (%s, %s)%s\n", scoreLabel(it.MatchPercentage), it.Position, it.Company, it.Location, it.Duration, badge)
		fmt.Fprintf(w, "      %s\n", strings.Join(it.Requirements, ", "))
	}
	return nil
}

// --- notifications ---

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "Show recent notifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		markRead, _ := cmd.Flags().GetBool("mark-read")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return showNotifications(commandContext(cmd), client, limit, markRead, os.Stdout)
	},
}

func showNotifications(ctx context.Context, client *apiClient, limit int, markRead bool, w io.Writer) error {
	resp, err := client.get(ctx, fmt.Sprintf("/notifications?limit=%d", limit))
	if err != nil {
		return err
	}
	var feed api.NotificationsResponse
	if err := decodeJSON(resp, &feed); err != nil {
		return err
	}

	fmt.Fprintf(w, "%s unread\n", colorize(colorBold, fmt.Sprint(feed.Unread)))
	for _, n := range feed.Notifications {
		mark := " "
		if n.IsNew {
			mark = colorize(colorCyan, "•")
		}
		fmt.Fprintf(w, "%s %s\n", mark, n.Message)
	}

	if !markRead {
		return nil
	}
	resp, err = client.post(ctx, "/notifications/read", nil)
	if err != nil {
		return err
	}
	var marked map[string]int
	if err := decodeJSON(resp, &marked); err != nil {
		return err
	}
	printSuccess("Marked %d notifications as read", marked["marked"])
	return nil
}

// --- preferences ---

var preferencesCmd = &cobra.Command{
	Use:   "preferences",
	Short: "Show or update job preferences",
}

var preferencesShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show job preferences",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		p, err := fetchPreferences(commandContext(cmd), client)
		if err != nil {
			return err
		}
		printPreferences(os.Stdout, p)
		return nil
	},
}

var preferencesSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Replace one or more preference lists",
	Long: `Replace one or more preference lists. Lists not given keep their value.

Examples:
  internmatch preferences set --location "Austin, TX" --location Remote
  internmatch preferences set --industry Fintech --company-size Startup`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		ctx := commandContext(cmd)
		current, err := fetchPreferences(ctx, client)
		if err != nil {
			return err
		}

		next := mergePreferences(current, cmd)
		resp, err := client.do(ctx, http.MethodPut, "/preferences", next)
		if err != nil {
			return err
		}
		var saved catalog.Preferences
		if err := decodeJSON(resp, &saved); err != nil {
			return err
		}
		printSuccess("Preferences updated")
		printPreferences(os.Stdout, saved)
		return nil
	},
}

var preferencesResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the default job preferences",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.do(commandContext(cmd), http.MethodDelete, "/preferences", nil)
		if err != nil {
			return err
		}
		var p catalog.Preferences
		if err := decodeJSON(resp, &p); err != nil {
			return err
		}
		printSuccess("Preferences reset")
		printPreferences(os.Stdout, p)
		return nil
	},
}

func fetchPreferences(ctx context.Context, client *apiClient) (catalog.Preferences, error) {
	resp, err := client.get(ctx, "/preferences")
	if err != nil {
		return catalog.Preferences{}, err
	}
	var p catalog.Preferences
	if err := decodeJSON(resp, &p); err != nil {
		return catalog.Preferences{}, err
	}
	return p, nil
}

// mergePreferences replaces only the lists whose flag was given.
func mergePreferences(p catalog.Preferences, cmd *cobra.Command) catalog.Preferences {
	if cmd.Flags().Changed("location") {
		p.Locations, _ = cmd.Flags().GetStringArray("location")
	}
	if cmd.Flags().Changed("company-size") {
		p.CompanySizes, _ = cmd.Flags().GetStringArray("company-size")
	}
	if cmd.Flags().Changed("industry") {
		p.Industries, _ = cmd.Flags().GetStringArray("industry")
	}
	return p
}

func printPreferences(w io.Writer, p catalog.Preferences) {
	fmt.Fprintf(w, "  %s %s\n", colorize(colorBold, "Locations:"), strings.Join(p.Locations, "; "))
	fmt.Fprintf(w, "  %s %s\n", colorize(colorBold, "Company size:"), strings.Join(p.CompanySizes, ", "))
	fmt.Fprintf(w, "  %s %s\n", colorize(colorBold, "Industries:"), strings.Join(p.Industries, ", "))
}

func init() {
	profilesSkillsCmd.AddCommand(skillsAddCmd)
	profilesSkillsCmd.AddCommand(skillsRemoveCmd)
	profilesCmd.AddCommand(profilesSkillsCmd)

	internshipsCmd.Flags().Bool("new", false, "only listings marked new")
	internshipsCmd.Flags().Int("min-match", 0, "minimum match percentage")

	notificationsCmd.Flags().Int("limit", 20, "maximum number of notifications to show")
	notificationsCmd.Flags().Bool("mark-read", false, "mark all notifications as read after showing them")

	preferencesSetCmd.Flags().StringArray("location", nil, "preferred location (repeatable)")
	preferencesSetCmd.Flags().StringArray("company-size", nil, "preferred company size (repeatable)")
	preferencesSetCmd.Flags().StringArray("industry", nil, "industry of interest (repeatable)")

	preferencesCmd.AddCommand(preferencesShowCmd)
	preferencesCmd.AddCommand(preferencesSetCmd)
	preferencesCmd.AddCommand(preferencesResetCmd)
}
