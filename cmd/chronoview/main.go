package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/sirupsen/logrus"

	"chronoview/internal/config"
	"chronoview/internal/container"
	"chronoview/pkg/models"
)

// exit codes per the process contract: MATCH and NOISE succeed, SIGNIFICANT
// and ERROR fail, so external schedulers can alert without inspecting
// internals.
const (
	exitOK      = 0
	exitFailing = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		component      = flag.String("component", "", "run only the target with this component name")
		viewport       = flag.String("viewport", "", "run only the target with this viewport name")
		updateBaseline = flag.Bool("update-baseline", false, "install fresh baselines instead of comparing")
	)
	flag.Parse()

	if (*component == "") != (*viewport == "") {
		log.Print("-component and -viewport must be given together")
		return exitUsage
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		return exitUsage
	}

	c, err := container.NewContainer(cfg)
	if err != nil {
		log.Printf("Failed to initialize: %v", err)
		return exitUsage
	}

	targets := c.Targets()
	if *component != "" {
		key := models.TargetKey{Component: *component, Viewport: *viewport}
		target, ok := findTarget(targets, key)
		if !ok {
			log.Printf("Target %s is not in the monitored roster", key)
			return exitUsage
		}
		targets = []models.Target{target}
	}

	ctx := context.Background()
	monitor := c.Monitor()

	// One sequential run at a time: a run either updates the baseline or
	// compares against it, never both.
	if *updateBaseline {
		for _, target := range targets {
			if _, err := monitor.UpdateBaseline(ctx, target); err != nil {
				logrus.WithError(err).WithField("target", target.Key.String()).
					Error("Baseline update failed")
				return exitFailing
			}
		}
		return exitOK
	}

	failing := false
	for _, target := range targets {
		rpt, _ := monitor.RunComparison(ctx, target)
		if rpt != nil && rpt.Failing {
			failing = true
		}
	}
	if failing {
		return exitFailing
	}
	return exitOK
}

func findTarget(targets []models.Target, key models.TargetKey) (models.Target, bool) {
	for _, t := range targets {
		if t.Key == key {
			return t, true
		}
	}
	return models.Target{}, false
}
