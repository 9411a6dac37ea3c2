// Package solver maximizes a linear objective over non-negative integer
// variables subject to linear constraints.
package solver

import (
	"context"
	"errors"
)

var (
	ErrInfeasible       = errors.New("problem is infeasible")
	ErrUnbounded        = errors.New("problem is unbounded")
	ErrNodeLimit        = errors.New("node limit reached without an integer solution")
	ErrMalformedProblem = errors.New("malformed problem")
)

type Sense int

const (
	LessOrEqual Sense = iota
	Equal
)

type Term struct {
	Var   int
	Coeff float64
}

type Constraint struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   float64
}

// Problem is: maximize Objective·x subject to Constraints, x integer, x >= 0.
type Problem struct {
	Objective   []float64
	Constraints []Constraint
}

func (p Problem) NumVars() int {
	return len(p.Objective)
}

type Solution struct {
	Values    []float64
	Objective float64
	Nodes     int
}

//go:generate counterfeiter -o solverfakes/fake_solver.go . Solver
type Solver interface {
	Solve(ctx context.Context, problem Problem) (Solution, error)
}
