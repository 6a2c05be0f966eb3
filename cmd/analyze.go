package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joescharf/admit/internal/analyzer"
	"github.com/joescharf/admit/internal/criteria"
	"github.com/joescharf/admit/internal/engine"
	"github.com/joescharf/admit/internal/models"
	"github.com/joescharf/admit/internal/output"
	"github.com/joescharf/admit/internal/store"
)

var (
	analyzeOverwrite bool
	analyzeConfirm   bool
)

var (
	errReviewSaved      = errors.New("review already has saved decisions")
	errSaveNotConfirmed = errors.New("save needs confirmation")
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <review-id>",
	Short: "Run the analyzer on a review and save its findings",
	Long: `Run the analyzer on a review's extracted text and save the analyzer's
findings as the review's decisions, without reviewer edits.

Manual criteria stay pending. Use --dry-run to print the findings
without saving them.

A review that already has saved decisions is left alone unless
--overwrite is given. Authority decisions the analyzer makes are
unverified, so saving them also requires --yes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := getStore()
		if err != nil {
			return err
		}
		reg := criteria.Default()
		a := newAnalyzer(reg)
		if a == nil {
			return fmt.Errorf("analyzer not configured: set anthropic.api_key (see 'admit config')")
		}
		return analyzeRun(cmd.Context(), s, reg, a, textSource(), args[0])
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeOverwrite, "overwrite", false, "Replace decisions already saved for the review")
	analyzeCmd.Flags().BoolVarP(&analyzeConfirm, "yes", "y", false, "Save even when authority decisions are unverified")
	rootCmd.AddCommand(analyzeCmd)
}

func analyzeRun(ctx context.Context, s store.Store, reg *criteria.Registry, a analyzer.Analyzer, src analyzer.TextSource, id string) error {
	r, err := s.GetReview(ctx, id)
	if err != nil {
		return err
	}

	if !analyzeOverwrite {
		if r.Status == models.ReviewStatusSaved {
			return fmt.Errorf("%w: %s (use --overwrite to replace them)", errReviewSaved, id)
		}
		records, err := s.ListRecords(ctx, id)
		if err != nil {
			return err
		}
		if len(records) > 0 {
			return fmt.Errorf("%w: %s (use --overwrite to replace them)", errReviewSaved, id)
		}
	}

	text, err := src.Text(ctx, id)
	if err != nil {
		return err
	}

	ui.Info("Analyzing %s...", r.FileName)
	payloads, err := a.Analyze(ctx, text)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}

	m := engine.NewManager(reg)
	m.Start(id)
	_, res, err := m.Ingest(id, payloads, engine.IngestOptions{})
	if err != nil {
		return err
	}
	if missing := len(reg.IDs()) - len(res.Applied); missing > 0 {
		ui.VerboseLog("%d criteria without analyzer findings", missing)
	}

	if dryRun {
		sess, err := m.Get(id)
		if err != nil {
			return err
		}
		ui.DryRunMsg("Would save %d decisions for review %s", len(res.Applied), id)
		return renderRecords(engine.BuildSaveRecords(sess))
	}

	saved, err := m.Commit(ctx, id, analyzeConfirm, s)
	if err != nil {
		return err
	}
	if saved.NeedsConfirmation {
		ui.Warning("Authority criteria %v are unverified", saved.Unverified)
		if err := renderRecords(saved.Records); err != nil {
			return err
		}
		return fmt.Errorf("%w: rerun with --yes to save unverified decisions", errSaveNotConfirmed)
	}
	ui.Success("Saved %d decisions for review %s", len(saved.Records), output.Cyan(id))
	if len(saved.Unverified) > 0 {
		ui.Warning("%d authority decisions were saved without reviewer verification", len(saved.Unverified))
	}
	return renderRecords(saved.Records)
}
