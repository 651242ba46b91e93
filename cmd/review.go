package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/marshally/pr-agent/internal/pipeline"
)

// ReviewCommand posts a review summary plus inline suggestions.
func ReviewCommand() *cli.Command {
	return &cli.Command{
		Name:      "review",
		Usage:     "Review a pull/merge request",
		ArgsUsage: "PR_URL",
		Flags:     actionFlags(),
		Action: func(c *cli.Context) error {
			return runAction(c, pipeline.ActionReview)
		},
	}
}

// ImproveCommand posts code improvement suggestions only.
func ImproveCommand() *cli.Command {
	return &cli.Command{
		Name:      "improve",
		Usage:     "Suggest code improvements on a pull/merge request",
		ArgsUsage: "PR_URL",
		Flags:     actionFlags(),
		Action: func(c *cli.Context) error {
			return runAction(c, pipeline.ActionImprove)
		},
	}
}
