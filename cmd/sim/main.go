package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"

	"github.com/hafsaghannaj/maternal/internal/config"
	"github.com/hafsaghannaj/maternal/internal/events"
	"github.com/hafsaghannaj/maternal/internal/fedlearn"
)

func main() {
	hospitals := flag.Int("hospitals", 3, "number of simulated hospitals")
	rounds := flag.Int("rounds", 5, "federated rounds to run")
	noise := flag.Float64("noise", 1.1, "noise multiplier sigma")
	epsilon := flag.Float64("epsilon", 8.0, "target privacy budget epsilon (<= 0 disables)")
	seed := flag.Int64("seed", 42, "random seed")
	flag.Parse()

	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "maternal-sim",
		Level: hclog.LevelFromString("INFO"),
	})

	cfg := config.Default().Training
	cfg.HospitalCount = *hospitals
	cfg.NoiseMultiplier = *noise
	cfg.TargetEpsilon = *epsilon
	cfg.Seed = *seed

	eventBus := events.NewEventBus()
	coordinator := fedlearn.NewCoordinator(eventBus, logger)

	initResult, err := coordinator.Initialize(cfg)
	if err != nil {
		logger.Error("Error initializing", "error", err)
		os.Exit(1)
	}
	logger.Info("Initialized", "hospitals", len(initResult.Hospitals),
		"totalSamples", initResult.TotalSamples, "testSamples", initResult.TestSamples)

	result, err := coordinator.Train(context.Background(), *rounds)
	if err != nil {
		logger.Error("Error training", "roundsCompleted", result.RoundsCompleted, "error", err)
		os.Exit(1)
	}

	fmt.Printf("Rounds completed: %d (%s)\n", result.RoundsCompleted, result.StopReason)
	fmt.Println("Round | Train loss | Test acc | Test AUC | Epsilon")
	for _, m := range result.Metrics {
		fmt.Printf("%5d | %10.4f | %8.4f | %8.4f | %7.4f\n",
			m.Round, m.TrainLoss, m.TestAccuracy, m.TestAUC, m.Epsilon)
	}

	metrics, err := coordinator.Evaluate()
	if err != nil {
		logger.Error("Error evaluating", "error", err)
		os.Exit(1)
	}
	fmt.Printf("Final evaluation: loss=%.4f accuracy=%.4f precision=%.4f recall=%.4f f1=%.4f auc=%.4f\n",
		metrics.Loss, metrics.Accuracy, metrics.Precision, metrics.Recall, metrics.F1, metrics.AUC)
}
