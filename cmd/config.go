package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/marshally/pr-agent/internal/config"
)

func maskSecret(key string, v interface{}) interface{} {
	if s, ok := v.(string); ok && s != "" {
		if strings.HasSuffix(key, "token") || strings.HasSuffix(key, "api_key") {
			return "********"
		}
	}
	return v
}

// ConfigCommand manages the pragent.toml configuration file.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage configuration",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Create a starter configuration file",
				Action: func(c *cli.Context) error {
					path := c.String("config")
					if path == "" {
						path = "pragent.toml"
					}
					if err := config.InitConfig(path); err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "wrote %s\n", path)
					return nil
				},
			},
			{
				Name:  "validate",
				Usage: "Resolve and validate the effective configuration",
				Action: func(c *cli.Context) error {
					cfg, err := config.ResolveDefault(c.String("config"), nil)
					if err != nil {
						return err
					}
					if err := config.Validate(cfg); err != nil {
						return err
					}
					for _, key := range cfg.Unknown() {
						fmt.Fprintf(c.App.Writer, "warning: unrecognized option %q\n", key)
					}
					fmt.Fprintln(c.App.Writer, "configuration ok")
					return nil
				},
			},
			{
				Name:  "show",
				Usage: "Print the resolved effective configuration",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:    "set",
						Aliases: []string{"s"},
						Usage:   "Override a config option as `section.key=value` (repeatable)",
					},
				},
				Action: func(c *cli.Context) error {
					cfg, err := config.ResolveDefault(c.String("config"), c.StringSlice("set"))
					if err != nil {
						return err
					}
					all := cfg.All()
					keys := make([]string, 0, len(all))
					for k := range all {
						keys = append(keys, k)
					}
					sort.Strings(keys)
					for _, k := range keys {
						fmt.Fprintf(c.App.Writer, "%s = %v\n", k, maskSecret(k, all[k]))
					}
					return nil
				},
			},
		},
	}
}
