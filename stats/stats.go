package stats

import (
	"fmt"

	"github.com/montanaflynn/stats"
)

var Header = []string{
	"LogN",
	"Stat",
	"LogT",
	"Runs",
	"SuccessRate",
	"AVG weight",
	"AVG std",
	"STD std",
}

// AttackStats is a struct storing statistics about the runs of the
// attack for one point (LogN, Stat, LogT) of a sweep.
type AttackStats struct {
	LogN int
	Stat int
	LogT float64

	Runs        int
	Successes   int
	SuccessRate float64
	AvgWeight   float64
	AvgStd      float64
	StdStd      float64

	weights []float64
	stds    []float64
}

func NewAttackStats(LogN, Stat int, LogT float64) (s *AttackStats) {
	return &AttackStats{
		LogN:    LogN,
		Stat:    Stat,
		LogT:    LogT,
		weights: []float64{},
		stds:    []float64{},
	}
}

// Update records one run: whether the secret was recovered, the Hamming
// weight and the standard deviation of the residual error.
func (s *AttackStats) Update(success bool, weight int, std float64) {

	s.Runs++

	if success {
		s.Successes++
	}

	s.weights = append(s.weights, float64(weight))
	s.stds = append(s.stds, std)
}

func (s *AttackStats) Finalize() (err error) {

	if s.Runs == 0 {
		return fmt.Errorf("stats: no run recorded")
	}

	s.SuccessRate = float64(s.Successes) / float64(s.Runs)

	if s.AvgWeight, err = stats.Mean(s.weights); err != nil {
		return fmt.Errorf("stats: %w", err)
	}

	if s.AvgStd, err = stats.Mean(s.stds); err != nil {
		return fmt.Errorf("stats: %w", err)
	}

	// A single run has no spread.
	if s.Runs > 1 {
		if s.StdStd, err = stats.StandardDeviationSample(s.stds); err != nil {
			return fmt.Errorf("stats: %w", err)
		}
	}

	return
}

func (s *AttackStats) ToCSV() []string {
	return []string{
		fmt.Sprintf("%d", s.LogN),
		fmt.Sprintf("%d", s.Stat),
		fmt.Sprintf("%.1f", s.LogT),
		fmt.Sprintf("%d", s.Runs),
		fmt.Sprintf("%.5f", s.SuccessRate),
		fmt.Sprintf("%.5f", s.AvgWeight),
		fmt.Sprintf("%.5f", s.AvgStd),
		fmt.Sprintf("%.5f", s.StdStd),
	}
}

func (s *AttackStats) String() string {
	return fmt.Sprintf("LogN=%d Stat=%d LogT=%.1f: %d/%d recovered, weight %.2f, std %.2f (%.2f)",
		s.LogN, s.Stat, s.LogT, s.Successes, s.Runs, s.AvgWeight, s.AvgStd, s.StdStd)
}
