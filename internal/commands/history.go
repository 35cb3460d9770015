package commands

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/reviewflow/internal/app"
	"github.com/tildaslashalef/reviewflow/internal/console"
)

// HistoryCommand returns the CLI command for browsing past runs.
func HistoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recent review runs",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of runs to show",
				Value:   10,
			},
			&cli.StringFlag{
				Name:  "report",
				Usage: "Render the stored report for the given run ID",
			},
		},
		Action: func(c *cli.Context) error {
			application, err := app.FromContext(c)
			if err != nil {
				return err
			}

			if id := c.String("report"); id != "" {
				run, err := application.Runs.GetRun(c.Context, id)
				if err != nil {
					console.PrintError(fmt.Sprintf("Cannot load run %s: %s", id, err))
					return err
				}

				console.PrintHeading(fmt.Sprintf("Run %s (%s)", run.ID, run.Name))
				fmt.Print(console.RenderReport(run.Report))
				return nil
			}

			runs, err := application.Runs.ListRecentRuns(c.Context, c.Int("limit"))
			if err != nil {
				console.PrintError(fmt.Sprintf("Cannot list runs: %s", err))
				return err
			}

			console.PrintRunHistory(runs)
			return nil
		},
	}
}
