package solver

import (
	"context"
	"errors"
	"fmt"
	"math"

	"code.cloudfoundry.org/lager/v3"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

const (
	DefaultMaxNodes = 10000

	integralityTolerance = 1e-6
	simplexTolerance     = 1e-10
	pruneTolerance       = 1e-9
)

// BranchAndBound solves integer programs depth-first, bounding each node with
// the simplex solution of its LP relaxation.
type BranchAndBound struct {
	logger   lager.Logger
	maxNodes int
}

func NewBranchAndBound(logger lager.Logger, maxNodes int) *BranchAndBound {
	if maxNodes <= 0 {
		maxNodes = DefaultMaxNodes
	}
	return &BranchAndBound{
		logger:   logger.Session("branch-and-bound"),
		maxNodes: maxNodes,
	}
}

type bounds struct {
	lower map[int]float64
	upper map[int]float64
}

func (b bounds) with(v int, lower, upper float64) bounds {
	next := bounds{lower: map[int]float64{}, upper: map[int]float64{}}
	for k, l := range b.lower {
		next.lower[k] = l
	}
	for k, u := range b.upper {
		next.upper[k] = u
	}
	if lower > 0 {
		next.lower[v] = lower
	}
	if !math.IsInf(upper, 1) {
		next.upper[v] = upper
	}
	return next
}

func (s *BranchAndBound) Solve(ctx context.Context, problem Problem) (Solution, error) {
	n := problem.NumVars()
	if n == 0 {
		return Solution{Values: []float64{}}, nil
	}

	constrained, err := validate(problem)
	if err != nil {
		return Solution{}, err
	}
	for v := 0; v < n; v++ {
		if !constrained[v] && problem.Objective[v] > 0 {
			return Solution{}, ErrUnbounded
		}
	}

	var incumbent []float64
	best := math.Inf(-1)
	nodes := 0

	stack := []bounds{{lower: map[int]float64{}, upper: map[int]float64{}}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return Solution{}, err
		}
		if nodes >= s.maxNodes {
			s.logger.Info("node-limit-reached", lager.Data{"nodes": nodes, "have-incumbent": incumbent != nil})
			break
		}

		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nodes++

		value, x, err := s.relax(problem, constrained, node)
		if err == ErrInfeasible {
			continue
		}
		if err != nil {
			return Solution{}, err
		}
		if value <= best+pruneTolerance {
			continue
		}

		branchVar := mostFractional(x)
		if branchVar < 0 {
			best = value
			incumbent = x
			continue
		}

		v := x[branchVar]
		upper := node.upperBound(branchVar)
		lower := node.lowerBound(branchVar)
		stack = append(stack,
			node.with(branchVar, lower, math.Floor(v)),
			node.with(branchVar, math.Ceil(v), upper),
		)
	}

	if incumbent == nil {
		if len(stack) > 0 {
			return Solution{}, ErrNodeLimit
		}
		return Solution{}, ErrInfeasible
	}

	values := make([]float64, n)
	objective := 0.0
	for i, x := range incumbent {
		values[i] = math.Round(x)
		objective += problem.Objective[i] * values[i]
	}

	s.logger.Debug("solved", lager.Data{"nodes": nodes, "objective": objective})
	return Solution{Values: values, Objective: objective, Nodes: nodes}, nil
}

func (b bounds) lowerBound(v int) float64 {
	return b.lower[v]
}

func (b bounds) upperBound(v int) float64 {
	if u, ok := b.upper[v]; ok {
		return u
	}
	return math.Inf(1)
}

// relax solves the LP relaxation of problem under the node's bounds. It
// returns the maximized objective and the values of the original variables.
func (s *BranchAndBound) relax(problem Problem, constrained []bool, node bounds) (float64, []float64, error) {
	n := problem.NumVars()

	for v, l := range node.lower {
		if l > node.upperBound(v) {
			return 0, nil, ErrInfeasible
		}
	}

	// columns: original variables, then one slack per inequality row
	type row struct {
		terms []Term
		slack float64
		rhs   float64
	}
	rows := []row{}
	for _, c := range problem.Constraints {
		r := row{terms: c.Terms, rhs: c.RHS}
		if c.Sense == LessOrEqual {
			r.slack = 1
		}
		rows = append(rows, r)
	}
	for v := 0; v < n; v++ {
		if u, ok := node.upper[v]; ok {
			rows = append(rows, row{terms: []Term{{Var: v, Coeff: 1}}, slack: 1, rhs: u})
		}
		if l, ok := node.lower[v]; ok {
			rows = append(rows, row{terms: []Term{{Var: v, Coeff: 1}}, slack: -1, rhs: l})
		}
	}
	for v := 0; v < n; v++ {
		if !constrained[v] {
			// keep unconstrained, objective-neutral variables at zero
			rows = append(rows, row{terms: []Term{{Var: v, Coeff: 1}}, slack: 1, rhs: 0})
		}
	}

	numSlacks := 0
	for _, r := range rows {
		if r.slack != 0 {
			numSlacks++
		}
	}

	m := len(rows)
	cols := n + numSlacks
	if m > cols {
		return 0, nil, fmt.Errorf("%w: %d equality rows over %d columns", ErrMalformedProblem, m, cols)
	}

	A := mat.NewDense(m, cols, nil)
	b := make([]float64, m)
	slackCol := n
	for i, r := range rows {
		sign := 1.0
		if r.rhs < 0 {
			sign = -1
		}
		for _, t := range r.terms {
			A.Set(i, t.Var, A.At(i, t.Var)+sign*t.Coeff)
		}
		if r.slack != 0 {
			A.Set(i, slackCol, sign*r.slack)
			slackCol++
		}
		b[i] = sign * r.rhs
	}

	c := make([]float64, cols)
	for v := 0; v < n; v++ {
		c[v] = -problem.Objective[v]
	}

	optF, optX, err := lp.Simplex(c, A, b, simplexTolerance, nil)
	if err != nil {
		if errors.Is(err, lp.ErrInfeasible) {
			return 0, nil, ErrInfeasible
		}
		if errors.Is(err, lp.ErrUnbounded) {
			return 0, nil, ErrUnbounded
		}
		return 0, nil, fmt.Errorf("simplex: %w", err)
	}

	return -optF, optX[:n], nil
}

func validate(problem Problem) ([]bool, error) {
	n := problem.NumVars()
	constrained := make([]bool, n)
	for _, c := range problem.Constraints {
		if c.Sense != LessOrEqual && c.Sense != Equal {
			return nil, fmt.Errorf("%w: constraint %q has unknown sense", ErrMalformedProblem, c.Name)
		}
		if c.Sense == Equal && len(c.Terms) == 0 {
			if c.RHS != 0 {
				return nil, ErrInfeasible
			}
			return nil, fmt.Errorf("%w: empty equality %q", ErrMalformedProblem, c.Name)
		}
		for _, t := range c.Terms {
			if t.Var < 0 || t.Var >= n {
				return nil, fmt.Errorf("%w: constraint %q references variable %d", ErrMalformedProblem, c.Name, t.Var)
			}
			if t.Coeff != 0 {
				constrained[t.Var] = true
			}
		}
	}
	return constrained, nil
}

func mostFractional(x []float64) int {
	index := -1
	worst := integralityTolerance
	for i, v := range x {
		f := math.Abs(v - math.Round(v))
		if f > worst {
			worst = f
			index = i
		}
	}
	return index
}
