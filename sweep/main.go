package main

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/tuneinsight/ckks-noise-flooding-attack/analysis"
	"github.com/tuneinsight/ckks-noise-flooding-attack/attack"
	"github.com/tuneinsight/ckks-noise-flooding-attack/operations"
	"github.com/tuneinsight/ckks-noise-flooding-attack/stats"
)

var (
	LogN     = 14           // Log2 ring degree
	NbRuns   = 100          // Number of attacks per point
	StatSec  = []int{0, 30} // Statistical security parameters
	LogTMin  = 16.0         // Smallest log2(t) - statistical parameter
	LogTMax  = 27.0         // Largest log2(t) - statistical parameter
	LogTStep = 0.5          // Step of log2(t)
	Dir      = "data"       // Output directory
)

func main() {

	if err := os.MkdirAll(Dir, 0o755); err != nil {
		panic(err)
	}

	f, err := os.Create(fmt.Sprintf("%s/statistics_%d_%d.csv", Dir, 1<<LogN, time.Now().Unix()))
	if err != nil {
		panic(err)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	// CSV Header
	if err := w.Write(stats.Header); err != nil {
		panic(err)
	}

	w.Flush()

	scheme := operations.DefaultConfig(operations.Evaluation)
	scheme.LogN = LogN

	a, err := analysis.NewAnalyzerFromConfig(scheme)
	if err != nil {
		panic(err)
	}

	for _, stat := range StatSec {

		color.Cyan("statistical parameter = %d", stat)

		for i := 0; LogTMin+float64(i)*LogTStep <= LogTMax; i++ {

			logT := LogTMin + float64(i)*LogTStep

			t := uint64(math.Round(math.Exp2(logT + float64(stat))))

			fmt.Printf("Working on logt=%.1f, log(orig_t)=%.1f\n", logT+float64(stat), logT)

			s := stats.NewAttackStats(LogN, stat, logT)

			// Each run must use fresh keys and randomness.
			digests := map[[32]byte]bool{}

			for run := 0; run < NbRuns; run++ {

				fmt.Printf("run number %d\r", run)

				cfg := attack.DefaultConfig(t)
				cfg.StatisticalSecurity = stat
				cfg.Scheme = scheme

				res, err := attack.Run(cfg)
				if err != nil {
					panic(err)
				}

				digest, err := res.Record.Digest()
				if err != nil {
					panic(err)
				}

				if digests[digest] {
					panic(fmt.Errorf("run %d: duplicate record %x", run, digest))
				}
				digests[digest] = true

				r, err := a.Analyze(res.Record)
				if err != nil {
					panic(err)
				}

				s.Update(r.Success(), r.Weight, r.Std)
			}

			if err := s.Finalize(); err != nil {
				panic(err)
			}

			fmt.Println(s)

			if err := w.Write(s.ToCSV()); err != nil {
				panic(err)
			}

			w.Flush()
		}
	}

	if err := w.Error(); err != nil {
		panic(err)
	}
}
