package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/cvdrisk/internal/domain/ascvd"
)

type calculateOptions struct {
	sex       string
	race      string
	age       int
	totalChol float64
	hdl       float64
	sbp       float64
	smoker    bool
	diabetic  bool
	treated   bool
	records   string
	output    string
	verbose   bool
}

func calculateCmd() *cobra.Command {
	var opts calculateOptions
	cmd := &cobra.Command{
		Use:   "calculate",
		Short: "Calculate 10-year ASCVD risk from flags or a records file",
		Example: `  cvdrisk-server calculate --sex male --race other --age 55 --total-chol 213 --hdl 50 --sbp 120
  cvdrisk-server calculate --records patient.json --output json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := zerolog.Nop()
			if opts.verbose {
				logger = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).
					With().Timestamp().Logger().Level(zerolog.DebugLevel)
			}

			var report calculationReport
			if opts.records != "" {
				report, err = calculateFromRecords(cmd.Context(), opts.records, cfg.SBPAdvisoryThreshold, logger)
			} else {
				report, err = calculateFromFlags(opts, cfg.SBPAdvisoryThreshold)
			}
			if err != nil {
				return err
			}
			return report.write(cmd.OutOrStdout(), opts.output)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.sex, "sex", "", "male or female")
	f.StringVar(&opts.race, "race", string(ascvd.RaceOther), "black or other")
	f.IntVar(&opts.age, "age", 0, "age in years")
	f.Float64Var(&opts.totalChol, "total-chol", 0, "total cholesterol (mg/dL)")
	f.Float64Var(&opts.hdl, "hdl", 0, "HDL cholesterol (mg/dL)")
	f.Float64Var(&opts.sbp, "sbp", 0, "systolic blood pressure (mmHg)")
	f.BoolVar(&opts.smoker, "smoker", false, "current smoker")
	f.BoolVar(&opts.diabetic, "diabetic", false, "has diabetes")
	f.BoolVar(&opts.treated, "treated", false, "on antihypertensive treatment")
	f.StringVar(&opts.records, "records", "", "path to a records JSON document")
	f.StringVarP(&opts.output, "output", "o", "text", "output format: text or json")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "log calculator inputs to stderr")
	return cmd
}

type calculationReport struct {
	Result *ascvd.Result `json:"result"`
	Error  string        `json:"error,omitempty"`
	Cards  []ascvd.Card  `json:"cards"`
}

func calculateFromFlags(opts calculateOptions, sbpThreshold float64) (calculationReport, error) {
	race := ascvd.RaceOther
	if opts.race == string(ascvd.RaceBlack) {
		race = ascvd.RaceBlack
	}
	smoking := ascvd.SmokingNever
	if opts.smoker {
		smoking = ascvd.SmokingEveryDay
	}
	obs := ascvd.Observations{
		Age:                 opts.age,
		Sex:                 ascvd.ParseSex(opts.sex),
		Race:                race,
		TotalCholesterol:    opts.totalChol,
		HDLCholesterol:      opts.hdl,
		SystolicBP:          opts.sbp,
		Smoking:             smoking,
		Diabetic:            opts.diabetic,
		TreatedHypertension: opts.treated,
	}
	if err := obs.Validate(); err != nil {
		return calculationReport{}, err
	}

	res, _ := ascvd.Compare(obs)
	report := calculationReport{Result: &res, Cards: []ascvd.Card{}}
	now := time.Now()
	if ascvd.StopSmokingAdvised(obs.Smoking) {
		report.Cards = append(report.Cards, ascvd.Card{ID: ascvd.CardStopSmoking, Effective: now})
	}
	if ascvd.ReduceBloodPressureAdvised(obs.SystolicBP, sbpThreshold) {
		report.Cards = append(report.Cards, ascvd.Card{
			ID:        ascvd.CardReduceBloodPressure,
			Effective: now,
			Values:    map[string]float64{ascvd.ParamSystolicBP: obs.SystolicBP},
		})
	}
	return report, nil
}

// calculateFromRecords runs a records document through the service, so the
// report matches what the HTTP endpoints return.
func calculateFromRecords(ctx context.Context, path string, sbpThreshold float64, logger zerolog.Logger) (calculationReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return calculationReport{}, fmt.Errorf("read records: %w", err)
	}
	var rec ascvd.Records
	if err := json.Unmarshal(data, &rec); err != nil {
		return calculationReport{}, fmt.Errorf("decode records %s: %w", path, err)
	}

	svc := ascvd.NewService(logger)
	svc.SetSBPThreshold(sbpThreshold)

	sink := &ascvd.CardCollector{}
	res, err := svc.Evaluate(ctx, rec, sink)
	report := calculationReport{Result: res, Cards: sink.Cards}
	if report.Cards == nil {
		report.Cards = []ascvd.Card{}
	}
	if err != nil {
		report.Error = err.Error()
	}
	return report, nil
}

func (r calculationReport) write(w io.Writer, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "text", "":
	default:
		return errors.New("unknown output format " + format)
	}

	if r.Result != nil {
		fmt.Fprintf(w, "Patient 10-year ASCVD risk: %.1f%%\n", r.Result.PatientScore)
		fmt.Fprintf(w, "Healthy reference risk:     %.1f%%\n", r.Result.HealthyScore)
	} else {
		fmt.Fprintf(w, "Risk not calculated: %s\n", r.Error)
	}
	for _, card := range r.Cards {
		if card.ID == ascvd.CardScore {
			continue
		}
		fmt.Fprintf(w, "Advisory: %s\n", card.ID)
	}
	return nil
}
