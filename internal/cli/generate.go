package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Aliagaaaaaa/horarios-api/internal/dto"
	"github.com/Aliagaaaaaa/horarios-api/internal/repository"
	"github.com/Aliagaaaaaa/horarios-api/internal/service"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

type generateOptions struct {
	courses    []int
	optimize   []string
	blocks     []string
	seed       int64
	candidates int
	output     string
}

func newGenerateCommand() *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a weekly timetable",
		Long: `Generate places two weekly blocks per course on the Monday to Friday grid.

Blocked cells use DAY:SLOT, where DAY is a weekday name or code (MONDAY, LU)
and SLOT is 1..9.

Examples:
  horarios generate --courses 1,4,7
  horarios generate --courses 1,4 --optimize morning-classes,no-fridays
  horarios generate --courses 1,4 --block LU:1 --block MARTES:2 --seed 42 --output json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := opts.request(cmd.Flags().Changed("seed"))
			if err != nil {
				return err
			}
			app := appFrom(cmd)
			catalog, err := repository.NewStaticCatalog()
			if err != nil {
				return err
			}
			generator := service.NewScheduleGeneratorService(catalog, service.ScheduleGeneratorDeps{}, nil, app.Logger, service.ScheduleGeneratorConfig{
				MaxAttempts:     app.Config.Scheduler.MaxAttempts,
				BlocksPerCourse: app.Config.Scheduler.BlocksPerCourse,
				MaxCandidates:   app.Config.Scheduler.MaxCandidates,
			})
			result, err := generator.Generate(cmd.Context(), req)
			if err != nil {
				return err
			}
			if opts.output == outputJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			return writeScheduleTable(cmd.OutOrStdout(), result.Schedule)
		},
	}
	flags := cmd.Flags()
	flags.IntSliceVar(&opts.courses, "courses", nil, "course ids to schedule")
	flags.StringSliceVar(&opts.optimize, "optimize", nil, "optimization flags")
	flags.StringArrayVar(&opts.blocks, "block", nil, "blocked cell as DAY:SLOT (repeatable)")
	flags.Int64Var(&opts.seed, "seed", 0, "random seed for reproducible output")
	flags.IntVar(&opts.candidates, "candidates", 1, "independent runs to rank")
	flags.StringVarP(&opts.output, "output", "o", outputTable, "output format: table or json")
	_ = cmd.MarkFlagRequired("courses")
	return cmd
}

func (o *generateOptions) request(withSeed bool) (dto.GenerateScheduleRequest, error) {
	if o.output != outputTable && o.output != outputJSON {
		return dto.GenerateScheduleRequest{}, fmt.Errorf("unknown output %q", o.output)
	}
	prefs := &dto.PreferencesInput{Optimizations: o.optimize}
	for _, raw := range o.blocks {
		day, slot, ok := strings.Cut(raw, ":")
		if !ok {
			return dto.GenerateScheduleRequest{}, fmt.Errorf("block %q must be DAY:SLOT", raw)
		}
		id, err := strconv.Atoi(strings.TrimSpace(slot))
		if err != nil {
			return dto.GenerateScheduleRequest{}, fmt.Errorf("block %q: slot must be a number", raw)
		}
		prefs.BlockedSlots = append(prefs.BlockedSlots, dto.BlockedSlotInput{Day: strings.TrimSpace(day), TimeSlotID: id})
	}
	req := dto.GenerateScheduleRequest{CourseIDs: o.courses, Candidates: o.candidates}
	if len(prefs.Optimizations) > 0 || len(prefs.BlockedSlots) > 0 {
		req.Preferences = prefs
	}
	if withSeed {
		seed := o.seed
		req.Seed = &seed
	}
	return req, nil
}

func writeScheduleTable(w io.Writer, result dto.ScheduleResult) error {
	schedule := result.Schedule
	grid := service.WeeklyGrid(schedule)

	fmt.Fprintf(w, "%s  status=%s  score=%.1f  seed=%d  hours=%.2f\n\n",
		schedule.ID, schedule.Status, result.Score, schedule.Seed, result.TotalWeeklyHours)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(grid.Headers, "\t"))
	for _, row := range grid.Rows {
		cells := make([]string, len(grid.Headers))
		for i := range cells {
			cells[i] = "-"
			if i < len(row) && row[i] != "" {
				cells[i] = row[i]
			}
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, u := range schedule.Unfulfilled {
		fmt.Fprintf(w, "\nunfulfilled: course %d placed %d of %d blocks", u.CourseID, u.Placed, u.Requested)
	}
	if len(schedule.SkippedCourseIDs) > 0 {
		fmt.Fprintf(w, "\nskipped courses: %v", schedule.SkippedCourseIDs)
	}
	for _, warning := range schedule.Warnings {
		fmt.Fprintf(w, "\nwarning %s: %s", warning.Code, warning.Message)
	}
	fmt.Fprintln(w)
	return nil
}
