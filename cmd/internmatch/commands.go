package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kalambet/internmatch/internal/api"
	"github.com/kalambet/internmatch/internal/config"
	"github.com/kalambet/internmatch/internal/extract"
	"github.com/kalambet/internmatch/internal/profile"
	"github.com/kalambet/internmatch/internal/storage"
)

// pollInterval is how often --wait checks whether an analysis has finished.
var pollInterval = 500 * time.Millisecond

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// --- profiles ---

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List, import and analyze candidate profiles",
}

var profilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all profiles with their suitability score",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return listProfiles(commandContext(cmd), client, os.Stdout)
	},
}

func listProfiles(ctx context.Context, client *apiClient, w io.Writer) error {
	records, err := fetchProfiles(ctx, client)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(w, "No profiles found.")
		return nil
	}
	for _, r := range records {
		score := colorize(colorBold, "  -")
		if r.Analysis != nil {
			score = scoreLabel(r.Analysis.SuitabilityScore)
		}
		fmt.Fprintf(w, "%s  %s  %s  %s\n", colorize(colorCyan, fmt.Sprintf("%-8s", shortID(r.ID))), score, r.Name, r.Headline)
	}
	return nil
}

func fetchProfiles(ctx context.Context, client *apiClient) ([]profile.Record, error) {
	resp, err := client.get(ctx, "/profiles")
	if err != nil {
		return nil, err
	}
	var records []profile.Record
	if err := decodeJSON(resp, &records); err != nil {
		return nil, err
	}
	return records, nil
}

var profilesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single profile as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		rec, err := fetchProfile(commandContext(cmd), client, args[0])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	},
}

func fetchProfile(ctx context.Context, client *apiClient, id string) (profile.Record, error) {
	resp, err := client.get(ctx, "/profiles/"+url.PathEscape(id))
	if err != nil {
		return profile.Record{}, err
	}
	var rec profile.Record
	if err := decodeJSON(resp, &rec); err != nil {
		return profile.Record{}, err
	}
	return rec, nil
}

var profilesAddCmd = &cobra.Command{
	Use:   "add <url>",
	Short: "Import a LinkedIn profile and analyze it",
	Long: `Import a LinkedIn profile and analyze it.

Profile fields can be extracted from a saved LinkedIn PDF export or HTML page.
Fields that cannot be extracted are filled with placeholders.

Examples:
  internmatch profiles add https://www.linkedin.com/in/dana-park
  internmatch profiles add https://www.linkedin.com/in/dana-park --pdf ./Profile.pdf --wait
  internmatch profiles add https://www.linkedin.com/in/dana-park --html ./dana.html`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pdfPath, _ := cmd.Flags().GetString("pdf")
		htmlPath, _ := cmd.Flags().GetString("html")
		wait, _ := cmd.Flags().GetBool("wait")

		draft, err := loadDraft(pdfPath, htmlPath)
		if err != nil {
			return err
		}
		if draft.Name != "" {
			printStep("Extracted profile of %s", draft.Name)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		ctx := commandContext(cmd)
		task, err := addProfile(ctx, client, args[0], draft)
		if err != nil {
			return err
		}
		printSuccess("Import accepted, analyzing profile %s", task.ID)

		if !wait {
			return nil
		}
		printStep("Waiting for analysis...")
		rec, err := waitForAnalysis(ctx, client, task, pollInterval)
		if err != nil {
			return err
		}
		printAnalysis(os.Stdout, rec)
		return nil
	},
}

// loadDraft extracts profile fields from at most one local file.
func loadDraft(pdfPath, htmlPath string) (profile.Draft, error) {
	switch {
	case pdfPath != "":
		return extract.FromPDF(pdfPath)
	case htmlPath != "":
		f, err := os.Open(htmlPath)
		if err != nil {
			return profile.Draft{}, fmt.Errorf("opening HTML file: %w", err)
		}
		defer f.Close()
		return extract.FromHTML(f)
	default:
		return profile.Draft{}, nil
	}
}

func addProfile(ctx context.Context, client *apiClient, profileURL string, draft profile.Draft) (api.TaskResponse, error) {
	req := api.ImportRequest{
		URL:        profileURL,
		Name:       draft.Name,
		Headline:   draft.Headline,
		Location:   draft.Location,
		Education:  draft.Education,
		Experience: draft.Experience,
		Skills:     draft.Skills,
	}
	resp, err := client.post(ctx, "/profiles", req)
	if err != nil {
		return api.TaskResponse{}, err
	}
	var task api.TaskResponse
	if err := decodeJSON(resp, &task); err != nil {
		return api.TaskResponse{}, busyHint(err)
	}
	return task, nil
}

var profilesReanalyzeCmd = &cobra.Command{
	Use:   "reanalyze <id>",
	Short: "Re-run the suitability analysis for a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wait, _ := cmd.Flags().GetBool("wait")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		ctx := commandContext(cmd)
		task, err := reanalyzeProfile(ctx, client, args[0])
		if err != nil {
			return err
		}
		printSuccess("Reanalyzing profile %s", task.ID)

		if !wait {
			return nil
		}
		printStep("Waiting for analysis...")
		rec, err := waitForAnalysis(ctx, client, task, pollInterval)
		if err != nil {
			return err
		}
		printAnalysis(os.Stdout, rec)
		return nil
	},
}

func reanalyzeProfile(ctx context.Context, client *apiClient, id string) (api.TaskResponse, error) {
	resp, err := client.post(ctx, "/profiles/"+url.PathEscape(id)+"/reanalyze", nil)
	if err != nil {
		return api.TaskResponse{}, err
	}
	var task api.TaskResponse
	if err := decodeJSON(resp, &task); err != nil {
		return api.TaskResponse{}, busyHint(err)
	}
	return task, nil
}

func busyHint(err error) error {
	var se *serverError
	if errors.As(err, &se) && se.Code == http.StatusConflict {
		return fmt.Errorf("%w (another analysis is running, try again shortly)", err)
	}
	return err
}

// waitForAnalysis polls the task until it finishes, then returns the stored
// profile. A failed task is reported with the server's reason.
func waitForAnalysis(ctx context.Context, client *apiClient, task api.TaskResponse, interval time.Duration) (profile.Record, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		st, err := fetchTask(ctx, client, task.TaskID)
		var se *serverError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return profile.Record{}, fmt.Errorf("analysis of %s is no longer tracked by the server; check the server log", task.ID)
		}
		if err != nil {
			return profile.Record{}, err
		}

		switch st.Status {
		case profile.TaskSucceeded:
			return fetchProfile(ctx, client, task.ID)
		case profile.TaskFailed:
			return profile.Record{}, fmt.Errorf("analysis of %s failed: %s", task.ID, st.Error)
		}

		select {
		case <-ctx.Done():
			return profile.Record{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func fetchTask(ctx context.Context, client *apiClient, taskID string) (api.TaskStatusResponse, error) {
	resp, err := client.get(ctx, "/tasks/"+url.PathEscape(taskID))
	if err != nil {
		return api.TaskStatusResponse{}, err
	}
	var st api.TaskStatusResponse
	if err := decodeJSON(resp, &st); err != nil {
		return api.TaskStatusResponse{}, err
	}
	return st, nil
}

func printAnalysis(w io.Writer, rec profile.Record) {
	fmt.Fprintf(w, "%s (%s)\n", colorize(colorBold, rec.Name), rec.ID)
	if rec.Analysis == nil {
		fmt.Fprintln(w, "  no analysis yet")
		return
	}
	a := rec.Analysis
	fmt.Fprintf(w, "  Score:       %s\n", scoreLabel(a.SuitabilityScore))
	fmt.Fprintf(w, "  Matches:     %s\n", strings.Join(a.MatchedInternships, ", "))
	fmt.Fprintf(w, "  Strengths:   %s\n", strings.Join(a.StrengthAreas, ", "))
	fmt.Fprintf(w, "  Improve:     %s\n", strings.Join(a.ImprovementAreas, ", "))
}

var profilesHistoryCmd = &cobra.Command{
	Use:   "history <id>",
	Short: "Show past analyses of a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return showHistory(commandContext(cmd), client, args[0], limit, os.Stdout)
	},
}

func showHistory(ctx context.Context, client *apiClient, id string, limit int, w io.Writer) error {
	path := fmt.Sprintf("/profiles/%s/runs?limit=%d", url.PathEscape(id), limit)
	resp, err := client.get(ctx, path)
	if err != nil {
		return err
	}
	var runs []storage.AnalysisRun
	if err := decodeJSON(resp, &runs); err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(w, "No analyses recorded.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%s  %-9s  %s  %s\n",
			r.FinishedAt.Local().Format(time.DateTime),
			r.Kind,
			scoreLabel(r.Score),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond),
		)
	}
	return nil
}

var profilesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all profiles as JSON or YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")

		if format != "json" && format != "yaml" {
			return fmt.Errorf("unsupported format %q: want json or yaml", format)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		records, err := fetchProfiles(commandContext(cmd), client)
		if err != nil {
			return err
		}

		var writer *os.File
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating output file: %w", err)
			}
			defer f.Close()
			writer = f
		} else {
			writer = os.Stdout
		}

		if err := writeExport(writer, records, format); err != nil {
			return err
		}
		if output != "" {
			printSuccess("Exported %d profiles to %s", len(records), output)
		}
		return nil
	},
}

func writeExport(w io.Writer, records []profile.Record, format string) error {
	if records == nil {
		records = []profile.Record{}
	}
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(records); err != nil {
			return fmt.Errorf("encoding YAML: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}
}

func init() {
	profilesAddCmd.Flags().String("pdf", "", "LinkedIn PDF export to extract fields from")
	profilesAddCmd.Flags().String("html", "", "saved LinkedIn HTML page to extract fields from")
	profilesAddCmd.Flags().Bool("wait", false, "wait for the analysis to finish")
	profilesAddCmd.MarkFlagsMutuallyExclusive("pdf", "html")

	profilesReanalyzeCmd.Flags().Bool("wait", false, "wait for the analysis to finish")
	profilesHistoryCmd.Flags().Int("limit", 20, "maximum number of analyses to show")

	profilesExportCmd.Flags().String("format", "json", "output format: json or yaml")
	profilesExportCmd.Flags().String("output", "", "output file path (default: stdout)")

	profilesCmd.AddCommand(profilesListCmd)
	profilesCmd.AddCommand(profilesShowCmd)
	profilesCmd.AddCommand(profilesAddCmd)
	profilesCmd.AddCommand(profilesReanalyzeCmd)
	profilesCmd.AddCommand(profilesHistoryCmd)
	profilesCmd.AddCommand(profilesExportCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s  %s\n", colorize(colorBold, k.Key), k.Value, colorize(colorCyan, "$"+k.EnvVar))
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value.\n\nValid keys: " + strings.Join(config.ValidKeys(), ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a configuration value so its default applies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}
		printSuccess("Unset %s", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
}
