package sim

import "gonum.org/v1/gonum/mat"

// InitCond implements trackfit.InitCond
type InitCond struct {
	state *mat.VecDense
	cov   *mat.SymDense
}

// NewInitCond creates new InitCond and returns it
func NewInitCond(state mat.Vector, cov mat.Symmetric) *InitCond {
	s := &mat.VecDense{}
	s.CloneFromVec(state)

	c := mat.NewSymDense(cov.SymmetricDim(), nil)
	c.CopySym(cov)

	return &InitCond{
		state: s,
		cov:   c,
	}
}

// NewDiffuseInitCond creates InitCond of dimension n with zero state and
// covariance v*I expressing little prior knowledge of the state.
func NewDiffuseInitCond(n int, v float64) *InitCond {
	cov := mat.NewSymDense(n, nil)
	for i := range n {
		cov.SetSym(i, i, v)
	}

	return &InitCond{
		state: mat.NewVecDense(n, nil),
		cov:   cov,
	}
}

// State returns initial state
func (c *InitCond) State() mat.Vector {
	state := mat.NewVecDense(c.state.Len(), nil)
	state.CloneFromVec(c.state)

	return state
}

// Cov returns initial covariance
func (c *InitCond) Cov() mat.Symmetric {
	cov := mat.NewSymDense(c.cov.SymmetricDim(), nil)
	cov.CopySym(c.cov)

	return cov
}
