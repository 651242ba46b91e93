// Package cmd wires the CLI commands onto the action pipeline.
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/marshally/pr-agent/internal/config"
	"github.com/marshally/pr-agent/internal/logging"
	"github.com/marshally/pr-agent/internal/pipeline"
)

const runTimeout = 5 * time.Minute

func actionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "dry-run",
			Aliases: []string{"d"},
			Usage:   "Resolve and render everything without publishing",
		},
		&cli.StringFlag{
			Name:    "provider",
			Aliases: []string{"p"},
			Usage:   "Override the provider (github, gitlab, auto)",
		},
		&cli.StringSliceFlag{
			Name:    "set",
			Aliases: []string{"s"},
			Usage:   "Override a config option as `section.key=value` (repeatable)",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Enable debug logging",
		},
	}
}

// runAction resolves configuration, builds the provider and generator,
// and drives one pipeline run for the given action.
func runAction(c *cli.Context, action pipeline.ActionKind) error {
	if c.NArg() < 1 {
		return fmt.Errorf("missing required argument: pull request URL")
	}
	prURL := c.Args().Get(0)

	overrides := c.StringSlice("set")
	if p := c.String("provider"); p != "" {
		overrides = append(overrides, "general.provider="+p)
	}
	if c.Bool("verbose") {
		overrides = append(overrides, "general.verbose=true")
	}

	cfg, err := config.ResolveDefault(c.String("config"), overrides)
	if err != nil {
		return err
	}
	logging.Setup(cfg.Bool("general.verbose"))
	if err := config.Validate(cfg); err != nil {
		return err
	}

	provider, err := pipeline.BuildProvider(cfg, prURL)
	if err != nil {
		return err
	}
	generator, err := pipeline.BuildGenerator(cfg)
	if err != nil {
		return err
	}

	p := pipeline.New(cfg, provider, generator, pipeline.Options{DryRun: c.Bool("dry-run")})

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	res := p.Run(ctx, action, prURL)
	report(c, res)
	if res.Err != nil {
		return pipeline.RootCause(res)
	}
	return nil
}

func report(c *cli.Context, res *pipeline.Result) {
	w := c.App.Writer
	if res.Err != nil {
		fmt.Fprintf(w, "%s failed: %v\n", res.Action, res.Err)
		return
	}

	if res.Summary != "" {
		fmt.Fprintf(w, "%s\n\n", res.Summary)
	}
	if c.Bool("dry-run") {
		for _, cm := range res.Comments {
			fmt.Fprintf(w, "--- %s:%d ---\n%s\n\n", cm.Anchor.FilePath, cm.Anchor.Line, cm.Body)
		}
		fmt.Fprintf(w, "dry run: %d comments rendered, %d suggestions dropped\n",
			len(res.Comments), len(res.Dropped))
		return
	}

	fmt.Fprintf(w, "%s done: %d published", res.Action, res.Published)
	if n := len(res.Failures); n > 0 {
		fmt.Fprintf(w, ", %d rejected", n)
	}
	if n := len(res.Dropped); n > 0 {
		fmt.Fprintf(w, ", %d dropped", n)
	}
	fmt.Fprintln(w)
}
