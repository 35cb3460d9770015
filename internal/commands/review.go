// Package commands defines the CLI commands.
package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/reviewflow/internal/app"
	"github.com/tildaslashalef/reviewflow/internal/console"
)

// ReviewCommand returns the CLI command that runs one review pipeline.
func ReviewCommand() *cli.Command {
	return &cli.Command{
		Name:  "review",
		Usage: "Run the automated review against the configured pull request",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Usage:   "Repository directory to analyze",
				Value:   ".",
			},
		},
		Action: func(c *cli.Context) error {
			application, err := app.FromContext(c)
			if err != nil {
				return err
			}

			// The dir flag is absent when invoked as the default action
			dir := c.String("dir")
			if dir == "" {
				dir = "."
			}

			svc, err := application.NewReviewService(dir)
			if err != nil {
				console.PrintError(fmt.Sprintf("Cannot start review: %s", err))
				return err
			}

			cfg := application.Config
			console.PrintBanner(cfg.Run.Repository, cfg.Run.PRNumber)
			console.PrintInfo("Reviewing " + color.YellowString("%s#%d", cfg.Run.Repository, cfg.Run.PRNumber))

			if err := svc.Run(c.Context); err != nil {
				console.PrintError(fmt.Sprintf("Review failed: %s", err))
				return err
			}

			if result := svc.BatteryResult(); result != nil {
				console.PrintBatteryResult(result)
			}

			console.PrintSuccess("Review completed successfully!")
			return nil
		},
	}
}
