package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/noah-isme/sma-timetable/internal/dto"
	"github.com/noah-isme/sma-timetable/internal/models"
	"github.com/noah-isme/sma-timetable/internal/timetable"
)

func buildValidateCommand() *cobra.Command {
	var file string
	var closedWorld bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a placement against a schedule file",
		Long: `Reads the schedule entries and availability of a file. With a candidate the
candidate is checked against the entries, otherwise every entry is checked
against the rest. Exits non-zero when any conflict is found.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadDocument(file)
			if err != nil {
				return err
			}
			conflicts, err := validateDocument(doc, closedWorld)
			if err != nil {
				return err
			}
			printConflicts(cmd.OutOrStdout(), conflicts)
			if len(conflicts) > 0 {
				return ErrConflictsFound
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "schedule file")
	cmd.Flags().BoolVar(&closedWorld, "closed-world", false, "treat windows without availability records as unavailable")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func validateDocument(doc *dto.ProblemDocument, closedWorld bool) ([]models.Conflict, error) {
	index, err := availability(doc, closedWorld)
	if err != nil {
		return nil, err
	}

	entries := make([]models.ScheduleEntry, len(doc.Entries))
	for i, entry := range doc.Entries {
		if entry.ScheduleID == "" {
			entry.ScheduleID = doc.ScheduleID
		}
		if entry.ID == "" {
			entry.ID = fmt.Sprintf("entry-%d", i+1)
		}
		entries[i] = entry
	}

	if doc.Candidate != nil {
		candidate := *doc.Candidate
		if candidate.ScheduleID == "" {
			candidate.ScheduleID = doc.ScheduleID
		}
		return timetable.ValidatePlacement(candidate.ScheduleID, entries, candidate, index)
	}

	var conflicts []models.Conflict
	for _, entry := range entries {
		found, err := timetable.ValidatePlacement(entry.ScheduleID, entries, entry, index)
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", entry.ID, err)
		}
		conflicts = append(conflicts, found...)
	}
	return conflicts, nil
}

func printConflicts(out io.Writer, conflicts []models.Conflict) {
	if len(conflicts) == 0 {
		fmt.Fprintln(out, "no conflicts")
		return
	}
	for _, c := range conflicts {
		fmt.Fprintf(out, "%s\t%s\n", c.Kind, c.Message)
	}
	fmt.Fprintf(out, "%d conflict(s)\n", len(conflicts))
}
