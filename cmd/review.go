package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/admit/internal/models"
	"github.com/joescharf/admit/internal/output"
)

var (
	reviewStatus   string
	reviewTextFile string
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Manage complaint reviews",
	Long:  "Create, list, show and delete complaint review documents.",
}

var reviewNewCmd = &cobra.Command{
	Use:   "new <file-name>",
	Short: "Register a complaint document for review",
	Long: `Register a complaint document for review.

Use --text to attach the document's extracted text; it is copied into
text_dir as <review-id>.txt for 'admit analyze'.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewNewRun(cmd.Context(), args[0])
	},
}

var reviewListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List reviews",
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewListRun(cmd.Context())
	},
}

var reviewShowCmd = &cobra.Command{
	Use:   "show <review-id>",
	Short: "Show a review and its saved decisions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewShowRun(cmd.Context(), args[0])
	},
}

var reviewDeleteCmd = &cobra.Command{
	Use:     "delete <review-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a review and its saved decisions",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewDeleteRun(cmd.Context(), args[0])
	},
}

func init() {
	reviewNewCmd.Flags().StringVar(&reviewTextFile, "text", "", "Extracted text file of the document")
	reviewListCmd.Flags().StringVar(&reviewStatus, "status", "", "Filter by status (draft, saved)")

	reviewCmd.AddCommand(reviewNewCmd)
	reviewCmd.AddCommand(reviewListCmd)
	reviewCmd.AddCommand(reviewShowCmd)
	reviewCmd.AddCommand(reviewDeleteCmd)
	rootCmd.AddCommand(reviewCmd)
}

func reviewNewRun(ctx context.Context, fileName string) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	var text []byte
	if reviewTextFile != "" {
		text, err = os.ReadFile(reviewTextFile)
		if err != nil {
			return fmt.Errorf("read text file: %w", err)
		}
	}

	if dryRun {
		ui.DryRunMsg("Would create review for %s", fileName)
		return nil
	}

	r := &models.Review{FileName: fileName}
	if err := s.CreateReview(ctx, r); err != nil {
		return err
	}

	if text != nil {
		src := textSource()
		if err := os.MkdirAll(src.Dir, 0755); err != nil {
			return fmt.Errorf("create text directory: %w", err)
		}
		if err := os.WriteFile(src.Path(r.ID), text, 0644); err != nil {
			return fmt.Errorf("write text file: %w", err)
		}
		ui.VerboseLog("Text stored at %s", src.Path(r.ID))
	}

	ui.Success("Created review %s for %s", output.Cyan(r.ID), fileName)
	return nil
}

func reviewListRun(ctx context.Context) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	status := models.ReviewStatus(reviewStatus)
	if status != "" && status != models.ReviewStatusDraft && status != models.ReviewStatusSaved {
		return fmt.Errorf("invalid status: %s (use draft or saved)", reviewStatus)
	}

	reviews, err := s.ListReviews(ctx, status)
	if err != nil {
		return err
	}

	if len(reviews) == 0 {
		ui.Info("No reviews. Use 'admit review new <file-name>' to get started.")
		return nil
	}

	table := ui.Table([]string{"ID", "File", "Status", "Created", "Saved"})
	for _, r := range reviews {
		saved := "-"
		if r.SavedAt != nil {
			saved = timeAgo(*r.SavedAt)
		}
		table.Append([]string{
			output.Cyan(r.ID),
			r.FileName,
			output.StatusColor(string(r.Status)),
			timeAgo(r.CreatedAt),
			saved,
		})
	}
	return table.Render()
}

func reviewShowRun(ctx context.Context, id string) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	r, err := s.GetReview(ctx, id)
	if err != nil {
		return err
	}

	fmt.Fprintf(ui.Out, "%s\n", output.Cyan(r.FileName))
	fmt.Fprintf(ui.Out, "  ID:       %s\n", r.ID)
	fmt.Fprintf(ui.Out, "  Status:   %s\n", output.StatusColor(string(r.Status)))
	fmt.Fprintf(ui.Out, "  Created:  %s\n", r.CreatedAt.Local().Format(time.DateTime))
	if r.SavedAt != nil {
		fmt.Fprintf(ui.Out, "  Saved:    %s\n", r.SavedAt.Local().Format(time.DateTime))
	}
	fmt.Fprintln(ui.Out)

	records, err := s.ListRecords(ctx, id)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		ui.Info("No saved decisions yet.")
		return nil
	}
	return renderRecords(records)
}

func reviewDeleteRun(ctx context.Context, id string) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	r, err := s.GetReview(ctx, id)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would delete review %s (%s)", r.ID, r.FileName)
		return nil
	}

	if err := s.DeleteReview(ctx, id); err != nil {
		return err
	}
	if err := os.Remove(textSource().Path(id)); err != nil && !os.IsNotExist(err) {
		ui.Warning("Could not remove text file: %v", err)
	}
	ui.Success("Deleted review %s", r.ID)
	return nil
}

// renderRecords prints one row per criterion decision.
func renderRecords(records []models.CriterionRecord) error {
	table := ui.Table([]string{"#", "Status", "Decision", "Overridden", "Verified", "Reason"})
	for _, rec := range records {
		decision, overridden, verified := "", "", ""
		switch {
		case rec.SelectedOption != nil:
			decision = *rec.SelectedOption
		case rec.Authority != nil:
			decision = string(rec.Authority.FinalResult)
			overridden = output.Check(rec.Authority.IsOverridden)
			verified = output.Check(rec.Authority.IsVerified)
		case rec.Fields != nil:
			decision = fieldSummary(rec.Fields)
			overridden = output.Check(rec.Fields.Edited())
		case rec.People != nil:
			decision = fmt.Sprintf("%d people", len(rec.People.People))
		}
		table.Append([]string{
			fmt.Sprint(rec.CriterionID),
			output.StatusColor(string(rec.Status)),
			decision,
			overridden,
			verified,
			truncate(rec.Reason, 60),
		})
	}
	return table.Render()
}

// fieldSummary lists the keys that hold a value, in sorted order.
func fieldSummary(f *models.FieldFinding) string {
	var keys []string
	for k, v := range f.Fields {
		if v.Value != nil && *v.Value != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return "no details"
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}

// timeAgo returns a human-readable duration from a time.
func timeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "1d ago"
		}
		return fmt.Sprintf("%dd ago", days)
	}
}
