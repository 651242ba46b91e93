package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/marshally/pr-agent/cmd"
)

const version = "0.1.0"

func main() {
	app := &cli.App{
		Name:    "pragent",
		Usage:   "AI-assisted review, description, and changelog automation for pull requests",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
			},
		},
		Commands: []*cli.Command{
			cmd.ReviewCommand(),
			cmd.ImproveCommand(),
			cmd.DescribeCommand(),
			cmd.ChangelogCommand(),
			cmd.ConfigCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
