package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/marshally/pr-agent/internal/pipeline"
)

// DescribeCommand regenerates the pull request title and description.
func DescribeCommand() *cli.Command {
	return &cli.Command{
		Name:      "describe",
		Usage:     "Generate and publish a pull/merge request description",
		ArgsUsage: "PR_URL",
		Flags:     actionFlags(),
		Action: func(c *cli.Context) error {
			return runAction(c, pipeline.ActionDescribe)
		},
	}
}
