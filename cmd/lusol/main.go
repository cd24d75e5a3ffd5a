// Command lusol factorizes sparse systems given as triplet files and
// solves against dense right-hand sides.
//
// Matrix files start with a "rows cols" header line followed by one
// "row col value" triplet per line, 0-based. Right-hand side files hold
// one value per line.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lusol"
)

var (
	flagFactorTol  float64
	flagUpdateTol  float64
	flagMaxEntries int
	flagVerbose    bool

	flagRHS  string
	flagMode string
)

func main() {
	root := &cobra.Command{
		Use:           "lusol",
		Short:         "incremental sparse LU factorization",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().Float64Var(&flagFactorTol, "factor-tol", lusol.DefaultFactorTol, "multiplier bound during factorization")
	root.PersistentFlags().Float64Var(&flagUpdateTol, "update-tol", lusol.DefaultUpdateTol, "multiplier bound during updates")
	root.PersistentFlags().IntVar(&flagMaxEntries, "max-entries", 0, "storage budget, 0 for unlimited")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log pivot decisions")

	solveCmd := &cobra.Command{
		Use:   "solve <matrix-file>",
		Short: "factorize a matrix and solve against a right-hand side",
		Args:  cobra.ExactArgs(1),
		RunE:  runSolve,
	}
	solveCmd.Flags().StringVarP(&flagRHS, "rhs", "b", "", "right-hand side file (required)")
	solveCmd.Flags().StringVarP(&flagMode, "mode", "m", "A", "system to solve: L, LT, U, UT, A or AT")
	solveCmd.MarkFlagRequired("rhs")

	statsCmd := &cobra.Command{
		Use:   "stats <matrix-file>",
		Short: "factorize a matrix and report factor diagnostics",
		Args:  cobra.ExactArgs(1),
		RunE:  runStats,
	}

	root.AddCommand(solveCmd, statsCmd)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "lusol:", err)
		os.Exit(1)
	}
}

func options() (*lusol.Options, error) {
	opts := &lusol.Options{
		FactorTol:  flagFactorTol,
		UpdateTol:  flagUpdateTol,
		MaxEntries: flagMaxEntries,
	}
	if flagVerbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		opts.Logger = logger
	}
	return opts, nil
}

func runSolve(cmd *cobra.Command, args []string) error {
	mode, err := parseMode(flagMode)
	if err != nil {
		return err
	}
	a, err := readMatrix(args[0])
	if err != nil {
		return err
	}
	b, err := readVector(flagRHS)
	if err != nil {
		return err
	}
	opts, err := options()
	if err != nil {
		return err
	}
	lu, err := lusol.Factorize(a, opts)
	if err != nil {
		return err
	}
	x, err := lu.Solve(mode, b)
	if err != nil {
		return err
	}
	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	for _, v := range x {
		fmt.Fprintf(out, "%.17g\n", v)
	}
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	a, err := readMatrix(args[0])
	if err != nil {
		return err
	}
	opts, err := options()
	if err != nil {
		return err
	}
	lu, err := lusol.Factorize(a, opts)
	if err != nil {
		return err
	}
	s := lu.Stats()
	rows, cols := a.Dims()
	fmt.Printf("size          %dx%d\n", rows, cols)
	fmt.Printf("rank          %d\n", s.Rank)
	fmt.Printf("singularities %d\n", s.Singularities)
	fmt.Printf("nnz(A)        %d\n", a.NNZ())
	fmt.Printf("nnz(L)        %d\n", s.LNonzeros)
	fmt.Printf("nnz(U)        %d\n", s.UNonzeros)
	fmt.Printf("fill-ins      %d\n", s.Fillins)
	fmt.Printf("growth        %.6g\n", s.Growth)
	if lu.NeedsRefactorize() {
		fmt.Println("growth limit exceeded, refactorization advised")
	}
	return nil
}

func parseMode(s string) (lusol.SolveMode, error) {
	switch strings.ToUpper(s) {
	case "L":
		return lusol.SolveL, nil
	case "LT":
		return lusol.SolveLT, nil
	case "U":
		return lusol.SolveU, nil
	case "UT":
		return lusol.SolveUT, nil
	case "A":
		return lusol.SolveA, nil
	case "AT":
		return lusol.SolveAT, nil
	}
	return 0, fmt.Errorf("unknown mode %q", s)
}

func readMatrix(path string) (*lusol.Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	var a *lusol.Matrix
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		if a == nil {
			if len(fields) != 2 {
				return nil, fmt.Errorf("%s:%d: want \"rows cols\" header", path, line)
			}
			rows, err1 := strconv.Atoi(fields[0])
			cols, err2 := strconv.Atoi(fields[1])
			if err1 != nil || err2 != nil {
				return nil, fmt.Errorf("%s:%d: bad header", path, line)
			}
			if a, err = lusol.NewMatrix(rows, cols); err != nil {
				return nil, err
			}
			continue
		}
		if len(fields) != 3 {
			return nil, fmt.Errorf("%s:%d: want \"row col value\"", path, line)
		}
		i, err1 := strconv.Atoi(fields[0])
		j, err2 := strconv.Atoi(fields[1])
		v, err3 := strconv.ParseFloat(fields[2], 64)
		if err1 != nil || err2 != nil || err3 != nil {
			return nil, fmt.Errorf("%s:%d: bad triplet", path, line)
		}
		if err := a.Add(i, j, v); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("%s: empty file", path)
	}
	return a, nil
}

func readVector(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	var out []float64
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: bad value %q", path, line, text)
		}
		out = append(out, v)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
