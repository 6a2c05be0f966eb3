package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joescharf/admit/internal/criteria"
	"github.com/joescharf/admit/internal/models"
)

var criteriaCmd = &cobra.Command{
	Use:   "criteria",
	Short: "List the admissibility criteria",
	RunE: func(cmd *cobra.Command, args []string) error {
		return criteriaRun(criteria.Default())
	},
}

func init() {
	rootCmd.AddCommand(criteriaCmd)
}

func criteriaRun(reg *criteria.Registry) error {
	table := ui.Table([]string{"#", "Criterion", "Mode", "Shape", "Outcomes"})
	for _, def := range reg.All() {
		table.Append([]string{
			fmt.Sprint(def.ID),
			def.Label,
			string(def.Mode),
			string(def.Shape),
			outcomeSummary(def),
		})
	}
	return table.Render()
}

// outcomeSummary describes how a criterion reaches its status.
func outcomeSummary(def criteria.Definition) string {
	switch {
	case def.Mode == models.ModeManual:
		parts := make([]string, len(def.Options))
		for i, o := range def.Options {
			parts[i] = fmt.Sprintf("%s=%s", o.Label, o.Outcome)
		}
		return strings.Join(parts, "; ")
	case def.Shape == models.ShapeAuthority:
		return fmt.Sprintf("applicable=%s; not_applicable=%s",
			def.Outcomes[models.ResultApplicable], def.Outcomes[models.ResultNotApplicable])
	default:
		return "analyzer status"
	}
}
