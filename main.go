package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"

	"github.com/tuneinsight/ckks-noise-flooding-attack/attack"
	"github.com/tuneinsight/ckks-noise-flooding-attack/operations"
	"github.com/tuneinsight/ckks-noise-flooding-attack/record"
)

const usage = "Usage: <program> <t> [<statisticalParameter> <plaintextSlots> <tEmpirical>]"

// Exit codes
const (
	exitOK = iota
	exitUsage
	exitConfig
	exitIO
)

var (
	Empirical = false // Measures the noise with the scheme instead of predicting it
	Doubling  = true  // Double-and-add, otherwise repeated additions of ct0
)

var errUsage = errors.New("usage")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, record.DefaultPath))
}

func run(args []string, w io.Writer, path string) int {

	red := color.New(color.FgRed, color.Bold)

	cfg, err := parseArgs(args)
	if err != nil {
		if len(args) > 0 {
			red.Fprintln(w, err)
		}
		fmt.Fprintln(w, usage)
		return exitUsage
	}

	fmt.Fprintf(w, "t = %d\n", cfg.T)
	fmt.Fprintf(w, "t empirical = %d\n", cfg.TEmpirical)
	fmt.Fprintf(w, "Using %s noise estimator\n", cfg.Estimator())

	res, err := attack.Run(cfg)
	if err != nil {
		switch {
		case errors.Is(err, operations.ErrInsecureParameters):
			red.Fprintf(w, "insecure parameters: %s\n", err)
		default:
			red.Fprintf(w, "configuration error: %s\n", err)
		}
		return exitConfig
	}

	fmt.Fprintf(w, "Log noise \n\t%v\n", res.LogNoise)
	fmt.Fprintf(w, "Noise \n\t%v\n", res.Noise())
	fmt.Fprintf(w, "CKKS scheme is using ring dimension %d\n", res.RingDimension)
	fmt.Fprintf(w, "CKKS scheme is using modulus %s\n", res.Modulus)
	fmt.Fprintf(w, "CKKS scheme is using scaling technique %s\n", cfg.Scheme.ScalingTechnique)
	fmt.Fprintln(w, "Computing the g_t(ct0, ..., ct0)")
	fmt.Fprintf(w, "sigma of additional noise %v\n", res.FloodingSigma)
	fmt.Fprintf(w, "Doublings: %d, folds: %d\n", res.Counts.Doublings, res.Counts.Folds)
	fmt.Fprintf(w, "Adversary running time with oracles = %d [ms]\n", res.AdversaryTime.Milliseconds())

	fmt.Fprintln(w, "Computation is done, print values to file")

	now := time.Now()

	if err = record.WriteFile(path, res.Record); err != nil {
		red.Fprintf(w, "I/O error: %s\n", err)
		return exitIO
	}

	fmt.Fprintf(w, "Printing to files time = %d [ms]\n", time.Since(now).Milliseconds())

	return exitOK
}

func parseArgs(args []string) (cfg attack.Config, err error) {

	if len(args) < 1 || len(args) > 4 {
		return cfg, fmt.Errorf("%w: expected between 1 and 4 arguments, got %d", errUsage, len(args))
	}

	t, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil || t == 0 {
		return cfg, fmt.Errorf("%w: t must be a positive integer, got %q", errUsage, args[0])
	}

	cfg = attack.DefaultConfig(t)
	cfg.Empirical = Empirical
	cfg.Scheme.Doubling = Doubling

	if len(args) > 1 {
		if cfg.StatisticalSecurity, err = strconv.Atoi(args[1]); err != nil || cfg.StatisticalSecurity < 0 {
			return cfg, fmt.Errorf("%w: statisticalParameter must be a non-negative integer, got %q", errUsage, args[1])
		}
	}

	if len(args) > 2 {
		if cfg.PlaintextSlots, err = strconv.Atoi(args[2]); err != nil || cfg.PlaintextSlots < 1 {
			return cfg, fmt.Errorf("%w: plaintextSlots must be a positive integer, got %q", errUsage, args[2])
		}
		if slots := cfg.Scheme.N() / 2; cfg.PlaintextSlots > slots {
			return cfg, fmt.Errorf("%w: plaintextSlots=%d exceeds the %d slots of the ring", errUsage, cfg.PlaintextSlots, slots)
		}
	}

	if len(args) > 3 {
		if cfg.TEmpirical, err = strconv.ParseUint(args[3], 10, 64); err != nil || cfg.TEmpirical == 0 {
			return cfg, fmt.Errorf("%w: tEmpirical must be a positive integer, got %q", errUsage, args[3])
		}
	}

	return cfg, nil
}
