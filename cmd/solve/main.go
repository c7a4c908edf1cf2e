// Command solve plans one scenario file and writes the plan.
//
//	solve -scenario city.yaml -out plan.json -time 20s
//	solve -generate 7 -orders 60 -out - -format yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"fleetplan/internal/config"
	"fleetplan/internal/model"
	"fleetplan/internal/opt"
	"fleetplan/internal/scenario"
)

func main() {
	var (
		scenarioPath = flag.String("scenario", "", "scenario file (.json, .yaml)")
		generate     = flag.Int64("generate", 0, "generate a synthetic scenario from this seed instead of reading one")
		orders       = flag.Int("orders", 40, "orders in a generated scenario")
		grid         = flag.Int("grid", 12, "road grid side in a generated scenario")
		depots       = flag.Int("depots", 2, "warehouses in a generated scenario")
		dump         = flag.String("dump-scenario", "", "also write the loaded scenario to this file")
		out          = flag.String("out", "-", "plan output file, - for stdout")
		format       = flag.String("format", "", "output format when writing to stdout: json or yaml")
		algo         = flag.String("algo", "", "greedy or alns (default from SOLVER_ALGORITHM)")
		budget       = flag.Duration("time", 0, "search time budget")
		iterations   = flag.Int("iterations", 0, "maximum search iterations")
		seed         = flag.Int64("seed", 0, "search seed, 0 for clock-derived")
		verbose      = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}
	params := cfg.SolverParams()
	if *algo != "" {
		params.Algorithm = *algo
	}
	if *budget > 0 {
		params.TimeBudget = *budget
	}
	if *iterations > 0 {
		params.MaxIterations = *iterations
	}
	if *seed != 0 {
		params.Seed = *seed
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var src scenario.Source
	switch {
	case *scenarioPath != "":
		src = scenario.FileSource{Path: *scenarioPath}
	case *generate != 0:
		src = generated{seed: *generate, opts: scenario.GenerateOptions{GridSize: *grid, Warehouses: *depots, Orders: *orders}}
	default:
		fmt.Fprintln(os.Stderr, "one of -scenario or -generate is required")
		flag.Usage()
		os.Exit(2)
	}
	p, err := src.Load(ctx)
	if err != nil {
		log.Fatal().Err(err).Str("source", src.Name()).Msg("cannot load scenario")
	}
	if *dump != "" {
		if err := writeFile(*dump, "", p); err != nil {
			log.Fatal().Err(err).Msg("cannot write scenario")
		}
	}

	params.OnImprove = func(pr opt.Progress) {
		log.Debug().Int("iteration", pr.Iteration).Int("fulfilled", pr.Fulfilled).Float64("cost", pr.Cost).Msg("improved")
	}
	plan, m, err := opt.Solve(ctx, p, params)
	if err != nil {
		log.Fatal().Err(err).Msg("solve failed")
	}
	if err := opt.Validate(p, plan); err != nil {
		log.Fatal().Err(err).Msg("plan failed validation")
	}
	log.Info().
		Str("source", src.Name()).
		Str("algo", params.Algorithm).
		Int("fulfilled", plan.Fulfilled).
		Int("orders", len(p.Orders)).
		Int("routes", len(plan.Routes)).
		Float64("total_cost", plan.TotalCost).
		Int("iterations", m.Iterations).
		Str("stop", m.StopReason).
		Dur("elapsed", m.Elapsed).
		Msg("plan ready")

	if err := writeFile(*out, scenario.Format(*format), plan); err != nil {
		log.Fatal().Err(err).Msg("cannot write plan")
	}
}

type generated struct {
	seed int64
	opts scenario.GenerateOptions
}

func (g generated) Name() string { return fmt.Sprintf("generated:%d", g.seed) }

func (g generated) Load(context.Context) (model.Problem, error) {
	return scenario.Generate(g.seed, g.opts), nil
}

// writeFile writes v to path, choosing the format from the extension; "-"
// means stdout in the given format, JSON by default.
func writeFile(path string, format scenario.Format, v any) (err error) {
	var w io.Writer = os.Stdout
	if path != "-" {
		if format, err = scenario.FormatOf(path); err != nil {
			return err
		}
		f, ferr := os.Create(path)
		if ferr != nil {
			return ferr
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	} else if format == "" {
		format = scenario.JSON
	}
	return scenario.Encode(w, v, format)
}
