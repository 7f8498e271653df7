package main

import (
	"fmt"
	"math/big"
	"os"

	"github.com/fatih/color"

	"github.com/tuneinsight/ckks-noise-flooding-attack/analysis"
	"github.com/tuneinsight/ckks-noise-flooding-attack/estimator"
	"github.com/tuneinsight/ckks-noise-flooding-attack/operations"
	"github.com/tuneinsight/ckks-noise-flooding-attack/record"
)

var (
	Path     = record.DefaultPath // Record to analyze, overridden by the first argument
	NbCoeffs = 15                 // Number of printed coefficients per polynomial
)

func main() {

	path := Path
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	rec, err := record.ReadFile(path)
	if err != nil {
		panic(err)
	}

	// Records are produced on the default scheme.
	a, err := analysis.NewAnalyzerFromConfig(operations.DefaultConfig(operations.NoiseEstimation))
	if err != nil {
		panic(err)
	}

	res, err := a.Analyze(rec)
	if err != nil {
		panic(err)
	}

	fmt.Printf("t = %d, statistical parameter = %d, n = %d\n", res.T, res.StatisticalSecurity, res.N)
	fmt.Printf("sigma_1 = %.3f, log2 = %.2f\n", res.Sigma1, estimator.Log2(estimator.NewFloat(res.Sigma1)))
	fmt.Printf("sigma_2 = %.3f, log2 = %.2f\n", res.Sigma2, estimator.Log2(estimator.NewFloat(res.Sigma2)))
	fmt.Printf("noise factor = %s\n", res.NoiseFactor.Text('g', 10))

	fmt.Println("b + as = e = ")
	printVec(res.E)
	fmt.Println("enew = ")
	printVec(res.ENew)
	fmt.Println("etotal = ")
	printVec(res.ETotal)
	fmt.Println("scaled_etotal = ")
	printVec(res.ScaledETotal)
	fmt.Println("eprime = ")
	printVec(res.EPrime)

	fmt.Printf("eprime_sigma = %.3f\n", res.ExpectedSigma)
	fmt.Printf("eprime weight = %d\n", res.Weight)

	fmt.Println("Trying to retrieve the secret:")
	if res.Recovered {
		color.Green("Got a correct secret: true")
	} else {
		color.Red("Got a correct secret: false")
	}
}

func printVec(v []*big.Int) {

	std, err := analysis.Std(v)
	if err != nil {
		panic(err)
	}

	n := NbCoeffs
	if n > len(v) {
		n = len(v)
	}

	fmt.Printf("%v ..., std dev = %.3f\n", v[:n], std)
}
