// commands.go
//
// cobra command tree: place (default), build, goal, clear, serve.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/robalobadob/megaverse/internal/api"
	"github.com/robalobadob/megaverse/internal/config"
	"github.com/robalobadob/megaverse/internal/megaverse"
	"github.com/robalobadob/megaverse/internal/runner"
	"github.com/robalobadob/megaverse/internal/simulator"
	"github.com/robalobadob/megaverse/internal/store"
	"github.com/robalobadob/megaverse/internal/submit"
)

// app carries state shared by every command.
type app struct {
	cfgFile  string
	logLevel string
	cfg      *config.Config
	log      zerolog.Logger
	out      io.Writer
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	root := &cobra.Command{
		Use:   "megaverse",
		Short: "Place Polyanets, Soloons and Comeths on the challenge megaverse",
		Long: `megaverse submits objects to the megaverse challenge API one at a time,
retrying each failed call a fixed number of times without delay.

Run without a subcommand it behaves like "megaverse place".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPlace(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default ./megaverse.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error (default from config)")

	root.AddCommand(
		&cobra.Command{
			Use:   "place",
			Short: "Create a Polyanet at every configured position",
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.runPlace(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "build",
			Short: "Fetch the goal map and create every object in it",
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.runBuild(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "goal",
			Short: "Print the goal map",
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.runGoal(cmd.Context())
			},
		},
		newClearCmd(a),
		&cobra.Command{
			Use:   "serve",
			Short: "Run a local simulator of the challenge API",
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.runServe()
			},
		},
	)
	return root
}

func newClearCmd(a *app) *cobra.Command {
	var fromGoal bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the configured positions (or the whole goal map with --goal)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runClear(cmd.Context(), fromGoal)
		},
	}
	cmd.Flags().BoolVar(&fromGoal, "goal", false, "delete every object of the goal map instead of the configured positions")
	return cmd
}

// init loads configuration and sets up logging.
func (a *app) init() error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	a.cfg = cfg
	a.log = setupLogging(cfg.LogLevel, cfg.LogFormat, a.out)
	return nil
}

func (a *app) client() (*api.Client, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return api.NewClient(a.cfg.APIURL, a.cfg.CandidateID,
		api.WithTimeout(a.cfg.Timeout),
		api.WithLogger(a.log.With().Str("component", "api").Logger()),
	), nil
}

// run drives objects through a bounded-retry submitter around place.
// Exhausted objects are logged by the submitter and never turn into an error.
func (a *app) run(ctx context.Context, objects []megaverse.Object, place submit.PlacerFunc, verb string) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sub := submit.New(place,
		submit.WithMaxRetries(a.cfg.MaxRetries),
		submit.WithVerb(verb),
		submit.WithLogger(a.log),
	)
	results := runner.New(sub, a.cfg.Pace, a.log).Run(ctx, objects)
	a.log.Debug().Int("submitted", len(results)).Int("exhausted", len(runner.Failed(results))).Msg(verb + " run done")
}

func (a *app) runPlace(ctx context.Context) error {
	c, err := a.client()
	if err != nil {
		return err
	}
	a.run(ctx, a.cfg.Objects(), c.Create, "created")
	return nil
}

func (a *app) runBuild(ctx context.Context) error {
	c, err := a.client()
	if err != nil {
		return err
	}
	objects, err := goalObjects(ctx, c)
	if err != nil {
		return err
	}
	a.run(ctx, objects, c.Create, "created")
	return nil
}

func (a *app) runClear(ctx context.Context, fromGoal bool) error {
	c, err := a.client()
	if err != nil {
		return err
	}
	objects := a.cfg.Objects()
	if fromGoal {
		if objects, err = goalObjects(ctx, c); err != nil {
			return err
		}
	}
	a.run(ctx, objects, c.Delete, "deleted")
	return nil
}

func (a *app) runGoal(ctx context.Context) error {
	c, err := a.client()
	if err != nil {
		return err
	}
	g, err := c.GoalMap(ctx)
	if err != nil {
		return fmt.Errorf("fetch goal map: %w", err)
	}
	return renderGoal(a.out, *g)
}

func (a *app) runServe() error {
	sc := a.cfg.Simulator
	goal, err := simulator.LoadGoal(sc.GoalFile)
	if err != nil {
		return err
	}

	st := store.NewMemoryStore()
	if sc.DB != "" {
		db, err := store.OpenDB(sc.DB)
		if err != nil {
			return fmt.Errorf("open simulator db: %w", err)
		}
		defer db.Close()
		if err := store.Migrate(db); err != nil {
			return fmt.Errorf("migrate simulator db: %w", err)
		}
		st = store.NewSQLiteStore(db)
	}

	sim := simulator.New(st, goal, simulator.Options{
		FailFirst:      sc.FailFirst,
		FailAfterApply: sc.FailAfterApply,
		RateLimit:      sc.RateLimit,
		Logger:         a.log.With().Str("component", "simulator").Logger(),
	})
	rows, cols := goal.Size()
	a.log.Info().Str("addr", sc.Addr).Str("db", sc.DB).Int("rows", rows).Int("cols", cols).Msg("starting simulator")
	return sim.Start(sc.Addr)
}

func goalObjects(ctx context.Context, c *api.Client) ([]megaverse.Object, error) {
	g, err := c.GoalMap(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch goal map: %w", err)
	}
	objects, err := g.Objects()
	if err != nil {
		return nil, fmt.Errorf("parse goal map: %w", err)
	}
	return objects, nil
}

// renderGoal prints the goal map as a table, one row per grid row.
func renderGoal(w io.Writer, g megaverse.GoalMap) error {
	_, cols := g.Size()
	header := make([]any, 0, cols+1)
	header = append(header, "")
	for c := 0; c < cols; c++ {
		header = append(header, strconv.Itoa(c))
	}

	table := tablewriter.NewWriter(w)
	table.Header(header...)
	for r, row := range g.Goal {
		cells := make([]any, 0, cols+1)
		cells = append(cells, strconv.Itoa(r))
		for _, cell := range row {
			cells = append(cells, shortCell(cell))
		}
		if err := table.Append(cells...); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	objects, err := g.Objects()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "\nTotal objects: %d\n", len(objects))
	return err
}

// shortCell abbreviates goal tokens so an 11-wide grid fits a terminal.
func shortCell(cell string) string {
	obj, ok, err := megaverse.ParseCell(cell, 0, 0)
	if err != nil {
		return "?"
	}
	if !ok {
		return "."
	}
	switch obj.Kind {
	case megaverse.KindPolyanet:
		return "P"
	case megaverse.KindSoloon:
		return "S:" + obj.Color
	case megaverse.KindCometh:
		return "C:" + obj.Direction
	}
	return "?"
}
