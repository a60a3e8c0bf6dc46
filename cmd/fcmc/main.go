package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/fcmc-zk/fcmc"
	"github.com/fcmc-zk/fcmc/backend"
	"github.com/fcmc-zk/fcmc/comperr"
	"github.com/fcmc-zk/fcmc/frontend"
)

func main() {
	optLevel := flag.Int("O", 2, "optimization level (0-3)")
	target := flag.String("target", "r1cs", "target constraint system")
	verify := flag.Bool("verify", true, "verify the compiled system against the source graph")
	quiet := flag.Bool("q", false, "suppress the stats summary")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <source file>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	path := flag.Arg(0)
	src, err := os.ReadFile(path)
	if err != nil {
		color.Red("cannot read %s: %s", path, err)
		os.Exit(1)
	}

	tgt, err := backend.ParseTarget(*target)
	if err != nil {
		color.Red("%s", err)
		os.Exit(2)
	}

	cfg := fcmc.DefaultConfig().
		WithOptimizationLevel(*optLevel).
		WithTarget(tgt).
		WithVerification(*verify)

	circuit, err := fcmc.Compile(path, string(src), cfg)
	if err != nil {
		report(string(src), err)
		os.Exit(1)
	}

	if !*quiet {
		printStats(circuit)
	}
}

func report(src string, err error) {
	var ce *comperr.Error
	if errors.As(err, &ce) && ce.Kind == comperr.Parse && ce.Err != nil {
		frontend.ReportParseError(src, ce.Err)
		return
	}
	color.Red("%s", err)
}

func printStats(c *fcmc.CompiledCircuit) {
	bold := color.New(color.Bold)
	bold.Println("compilation succeeded")
	fmt.Printf("  graph nodes:  %d -> %d (%.1f%% removed)\n",
		c.Stats.OriginalNodes, c.Stats.OptimizedNodes, 100*c.Stats.OptimizationRatio())
	fmt.Printf("  constraints:  %d\n", c.Stats.ConstraintCount)
	fmt.Printf("  columns:      %d\n", c.Circuit.NbColumns)
	fmt.Printf("  inputs:       %d\n", len(c.Circuit.Inputs))
	fmt.Printf("  outputs:      %d\n", len(c.Circuit.Outputs))
}
