package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/marshally/pr-agent/internal/pipeline"
)

// ChangelogCommand merges a generated entry into the changelog file on
// the pull request's source branch.
func ChangelogCommand() *cli.Command {
	return &cli.Command{
		Name:      "update-changelog",
		Usage:     "Add a generated changelog entry for a pull/merge request",
		ArgsUsage: "PR_URL",
		Flags:     actionFlags(),
		Action: func(c *cli.Context) error {
			return runAction(c, pipeline.ActionChangelog)
		},
	}
}
