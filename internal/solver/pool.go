package solver

import "gonum.org/v1/gonum/mat"

// WorkPool provides reusable scratch vectors and matrices so algorithms can
// avoid per-iteration allocations. Buffers returned by Get are not zeroed.
type WorkPool struct {
	vecs  [][]float64
	dense []*mat.Dense
}

// NewWorkPool creates an empty WorkPool.
func NewWorkPool() *WorkPool {
	return &WorkPool{
		vecs:  make([][]float64, 0, 8),
		dense: make([]*mat.Dense, 0, 4),
	}
}

// GetVec returns a scratch vector of length n from the pool or allocates one.
func (p *WorkPool) GetVec(n int) []float64 {
	for i := len(p.vecs) - 1; i >= 0; i-- {
		if cap(p.vecs[i]) >= n {
			v := p.vecs[i][:n]
			p.vecs = append(p.vecs[:i], p.vecs[i+1:]...)
			return v
		}
	}
	return make([]float64, n)
}

// PutVec returns a vector to the pool.
func (p *WorkPool) PutVec(v []float64) {
	p.vecs = append(p.vecs, v)
}

// GetDense returns an r×c matrix from the pool or allocates one.
func (p *WorkPool) GetDense(r, c int) *mat.Dense {
	for i := len(p.dense) - 1; i >= 0; i-- {
		mr, mc := p.dense[i].Dims()
		if mr == r && mc == c {
			m := p.dense[i]
			p.dense = append(p.dense[:i], p.dense[i+1:]...)
			return m
		}
	}
	return mat.NewDense(r, c, nil)
}

// PutDense returns a matrix to the pool.
func (p *WorkPool) PutDense(m *mat.Dense) {
	p.dense = append(p.dense, m)
}
