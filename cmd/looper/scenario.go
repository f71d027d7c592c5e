package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/Swind/go-periodic-task/core"
	"github.com/Swind/go-periodic-task/internal/logger"
)

func ScenarioCommand() *cli.Command {
	return &cli.Command{
		Name:  "scenario",
		Usage: "run, pause, resume, run again and stop a task, printing the timeline",

		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "period", Value: 2 * time.Second, Usage: "task period"},
			&cli.DurationFlag{Name: "routine", Value: time.Second, Usage: "how long each invocation sleeps"},
			&cli.DurationFlag{Name: "first", Value: 3600 * time.Millisecond, Usage: "run time before the pause"},
			&cli.DurationFlag{Name: "pause", Value: 300 * time.Millisecond, Usage: "time spent paused (0 skips the pause)"},
			&cli.DurationFlag{Name: "second", Value: 4300 * time.Millisecond, Usage: "run time after resuming"},
			&cli.BoolFlag{Name: "reset", Usage: "pause with resetTime=true"},
			&cli.BoolFlag{Name: "catch-up", Value: true, Usage: "catch up missed ticks"},
			&cli.Float64Flag{Name: "scale", Value: 1, Usage: "multiply every duration by this factor"},
			&cli.StringFlag{Name: "log-level", Value: "warn", Usage: "debug, info, warn or error"},
		},

		Action: ScenarioAction,
	}
}

type scenario struct {
	period, routine      time.Duration
	first, pause, second time.Duration
	reset, catchUp       bool
}

func ScenarioAction(c *cli.Context) error {
	scale := c.Float64("scale")
	if scale <= 0 {
		return cli.Exit("scale must be positive", 1)
	}
	scaled := func(name string) time.Duration {
		return time.Duration(float64(c.Duration(name)) * scale)
	}

	s := scenario{
		period:  scaled("period"),
		routine: scaled("routine"),
		first:   scaled("first"),
		pause:   scaled("pause"),
		second:  scaled("second"),
		reset:   c.Bool("reset"),
		catchUp: c.Bool("catch-up"),
	}
	if s.period <= 0 {
		return cli.Exit("period must be positive", 1)
	}

	log, err := logger.Setup(c.String("log-level"), string(logger.FormatText), c.App.ErrWriter)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
	}

	n, err := runScenario(c.App.Writer, log, s)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
	}

	fmt.Fprintf(c.App.Writer, "✓ %d invocations\n", n)
	return nil
}

// runScenario plays s against a real task and returns the invocation count.
func runScenario(w io.Writer, log core.Logger, s scenario) (int, error) {
	var mu sync.Mutex
	start := time.Now()
	count := 0

	printf := func(format string, args ...any) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, "%8s  "+format+"\n", append([]any{time.Since(start).Round(time.Millisecond)}, args...)...)
	}

	task := core.New(s.period, func() {
		mu.Lock()
		count++
		n := count
		mu.Unlock()

		printf("invocation #%d started", n)
		time.Sleep(s.routine)
		printf("invocation #%d finished", n)
	}, core.WithName("scenario"), core.WithCatchUp(s.catchUp), core.WithLogger(log))

	time.Sleep(s.first)

	if s.pause > 0 {
		printf("pause(resetTime=%t)", s.reset)
		if err := task.Pause(s.reset); err != nil {
			task.Stop()
			return 0, err
		}
		time.Sleep(s.pause)
		printf("resume")
		if err := task.Resume(); err != nil {
			task.Stop()
			return 0, err
		}
	}

	time.Sleep(s.second)

	printf("stop")
	task.Stop()
	printf("stopped")

	mu.Lock()
	defer mu.Unlock()
	return count, nil
}
