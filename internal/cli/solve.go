package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/sma-timetable/internal/dto"
	"github.com/noah-isme/sma-timetable/internal/timetable"
	"github.com/noah-isme/sma-timetable/pkg/config"
	"github.com/noah-isme/sma-timetable/pkg/export"
	"github.com/noah-isme/sma-timetable/pkg/storage"
)

type solveFlags struct {
	files       []string
	budget      time.Duration
	seed        int64
	outDir      string
	format      string
	closedWorld bool
	parallel    int
}

func buildSolveCommand() *cobra.Command {
	var flags solveFlags

	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Solve one or more problem files",
		Long: `Builds a timetable for each problem file and prints its score.
Files are YAML or JSON with requirements, classrooms, availability and grid.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(cmd.Context(), cmd.OutOrStdout(), flags, cliLogger())
		},
	}

	cmd.Flags().StringArrayVarP(&flags.files, "file", "f", nil, "problem file (repeatable)")
	cmd.Flags().DurationVar(&flags.budget, "budget", 0, "time budget per problem, overrides the file")
	cmd.Flags().Int64Var(&flags.seed, "seed", 0, "random seed, overrides the file; runs stop on the wall clock, so results may still vary")
	cmd.Flags().StringVar(&flags.outDir, "out", "", "directory for the solved timetables")
	cmd.Flags().StringVar(&flags.format, "format", "json", "output format: json or csv")
	cmd.Flags().BoolVar(&flags.closedWorld, "closed-world", false, "treat windows without availability records as unavailable")
	cmd.Flags().IntVar(&flags.parallel, "parallel", 0, "maximum problems solved at once (0 = all)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runSolve(ctx context.Context, out io.Writer, flags solveFlags, log *zap.Logger) error {
	format := strings.ToLower(flags.format)
	if format != "json" && format != "csv" {
		return fmt.Errorf("unsupported format %q", flags.format)
	}
	var results *storage.ResultDir
	if flags.outDir != "" {
		dir, err := storage.NewResultDir(flags.outDir)
		if err != nil {
			return err
		}
		results = dir
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	if flags.parallel > 0 {
		g.SetLimit(flags.parallel)
	}
	for _, path := range flags.files {
		path := path
		g.Go(func() error {
			result, doc, err := solveFile(ctx, path, flags, log)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			if results != nil {
				if err := writeResult(results, path, format, result, doc); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
			}
			mu.Lock()
			defer mu.Unlock()
			fmt.Fprintf(out, "%s\t%s\tscore=%s\tentries=%d\titerations=%d\telapsed=%s\n",
				path, result.Status, result.Score, len(result.Entries), result.Iterations, result.Elapsed.Round(time.Millisecond))
			return nil
		})
	}
	return g.Wait()
}

func solveFile(ctx context.Context, path string, flags solveFlags, log *zap.Logger) (*timetable.Result, *dto.ProblemDocument, error) {
	doc, err := loadDocument(path)
	if err != nil {
		return nil, nil, err
	}
	if err := validator.New().Struct(doc.SolveTimetableRequest); err != nil {
		return nil, nil, err
	}
	if len(doc.Requirements) == 0 {
		return nil, nil, fmt.Errorf("problem file has no requirements")
	}
	index, err := availability(doc, flags.closedWorld)
	if err != nil {
		return nil, nil, err
	}

	budget := flags.budget
	if budget <= 0 {
		budget = doc.TimeBudget()
	}
	seed := flags.seed
	if seed == 0 {
		seed = doc.Seed
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	opts := config.SchedulerConfig{TimeBudget: timetable.DefaultTimeBudget}.Options(budget, seed)
	opts.Logger = log.With(zap.String("file", filepath.Base(path)))

	result, err := timetable.SolveTimetable(ctx, timetable.Input{
		ScheduleID:   doc.ScheduleID,
		Requirements: doc.Requirements,
		Classrooms:   doc.Classrooms,
		Availability: index,
		Grid:         doc.Grid,
	}, opts)
	if err != nil {
		return nil, nil, err
	}
	return result, doc, nil
}

func writeResult(dir *storage.ResultDir, source, format string, result *timetable.Result, doc *dto.ProblemDocument) error {
	name := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))

	var body []byte
	var err error
	switch format {
	case "csv":
		body, err = export.NewCSVExporter().Render(export.Document{
			Dataset: export.TimetableDataset(result.Entries, export.Names(doc.Names)),
		})
	default:
		body, err = json.MarshalIndent(result, "", "  ")
	}
	if err != nil {
		return err
	}
	_, err = dir.Save(name, format, body)
	return err
}
