package main

import (
	"fmt"

	"lusol"
)

func main() {
	var err error

	A, err := lusol.NewMatrix(3, 3)
	if err != nil {
		panic(err)
	}
	entries := [][3]float64{
		{0, 0, 4}, {0, 1, 1},
		{1, 0, 1}, {1, 1, 4}, {1, 2, 1},
		{2, 1, 1}, {2, 2, 4},
	}
	for _, e := range entries {
		if err = A.Set(int(e[0]), int(e[1]), e[2]); err != nil {
			panic(err)
		}
	}

	lu, err := lusol.Factorize(A, nil)
	if err != nil {
		panic(err)
	}

	b := []float64{1, 2, 3}
	x, err := lu.Solve(lusol.SolveA, b)
	if err != nil {
		panic(err)
	}
	fmt.Println("before update: x =", x)

	// swap the middle column without refactorizing
	if err = lu.Update(lusol.ReplaceColumn{J: 1, V: []float64{2, 5, 2}}); err != nil {
		panic(err)
	}
	diag, vnorm := lu.LastPivot()
	fmt.Printf("replaced column 1: diag=%.4g vnorm=%.4g\n", diag, vnorm)

	x, err = lu.Solve(lusol.SolveA, b)
	if err != nil {
		panic(err)
	}
	fmt.Println("after update:  x =", x)

	// grow the system by one row and one column
	if err = lu.Update(lusol.AddColumn{V: []float64{0, 0, 1}}); err != nil {
		panic(err)
	}
	if err = lu.Update(lusol.AddRow{V: []float64{0, 0, 1, 5}}); err != nil {
		panic(err)
	}
	fmt.Println(lu)

	x, err = lu.Solve(lusol.SolveA, []float64{1, 2, 3, 4})
	if err != nil {
		panic(err)
	}
	fmt.Println("4x4 solve:     x =", x)

	fmt.Printf("stats: %+v\n", lu.Stats())
}
