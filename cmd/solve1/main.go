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

	fmt.Println("A =")
	fmt.Print(A)

	lu, err := lusol.Factorize(A, nil)
	if err != nil {
		panic(err)
	}
	fmt.Println(lu)

	b := []float64{1, 2, 3}
	x, err := lu.Solve(lusol.SolveA, b)
	if err != nil {
		panic(err)
	}
	fmt.Println("x =", x)

	// residual check via the factored operator
	ax, err := lu.Multiply(lusol.MulA, x)
	if err != nil {
		panic(err)
	}
	fmt.Println("Ax =", ax)
}
