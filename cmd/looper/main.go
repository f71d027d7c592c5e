// Command looper drives a periodic task from the command line.
//
//	looper scenario --period 2s --routine 1s --first 3.6s --pause 300ms --second 4.3s
//	looper serve --env-file .env
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "looper",
		Usage: "run and control a periodic task",
		Commands: []*cli.Command{
			ScenarioCommand(),
			ServeCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
