package dataset

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Term is one column of the design matrix.
type Term struct {
	Name    string
	Numeric bool // true for raw numeric columns, false for dummy columns
}

// Design is the encoded modeling matrix: predictors without intercept,
// the response, and one Term per predictor column.
type Design struct {
	X     *mat.Dense
	Y     []float64
	Terms []Term
}

// Encode builds the design matrix from the typed table. Categorical
// columns are one-hot encoded with the first level observed in the data
// dropped as the reference, keeping the matrix full rank once an
// intercept is added. Dummy terms are named "Col=Level".
func (t *Table) Encode() (*Design, error) {
	var terms []Term
	var cols [][]float64

	for _, c := range t.Columns {
		switch c.Kind {
		case Numeric:
			vals := make([]float64, t.NRows)
			copy(vals, c.Floats)
			cols = append(cols, vals)
			terms = append(terms, Term{Name: c.Name, Numeric: true})
		case Categorical:
			levels := distinctLevels(c.Levels)
			if len(levels) < 2 {
				// A single-level column carries no information.
				continue
			}
			// levels[0] is the reference and gets no dummy.
			for _, lv := range levels[1:] {
				vals := make([]float64, t.NRows)
				for i, cell := range c.Levels {
					if cell == lv {
						vals[i] = 1
					}
				}
				cols = append(cols, vals)
				terms = append(terms, Term{Name: c.Name + "=" + lv})
			}
		}
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("encode: no usable predictor columns")
	}

	x := mat.NewDense(t.NRows, len(cols), nil)
	for j, col := range cols {
		x.SetCol(j, col)
	}
	y := make([]float64, t.NRows)
	copy(y, t.Y)

	return &Design{X: x, Y: y, Terms: terms}, nil
}

// distinctLevels returns levels in first-appearance order.
func distinctLevels(cells []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range cells {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// NRows returns the number of observations.
func (d *Design) NRows() int {
	r, _ := d.X.Dims()
	return r
}

// NCols returns the number of predictor columns.
func (d *Design) NCols() int {
	_, c := d.X.Dims()
	return c
}

// TermIndex returns the column index of the named term, or -1.
func (d *Design) TermIndex(name string) int {
	for i, t := range d.Terms {
		if t.Name == name {
			return i
		}
	}
	return -1
}

// Rows returns a new Design containing the given rows, in order.
// Indices may repeat, which is what a bootstrap resample does.
func (d *Design) Rows(idx []int) *Design {
	_, p := d.X.Dims()
	x := mat.NewDense(len(idx), p, nil)
	y := make([]float64, len(idx))
	for i, src := range idx {
		x.SetRow(i, d.X.RawRowView(src))
		y[i] = d.Y[src]
	}
	return &Design{X: x, Y: y, Terms: d.Terms}
}

// Select returns a new Design keeping only the named columns, in the
// order given. Unknown names are an error.
func (d *Design) Select(names []string) (*Design, error) {
	n, _ := d.X.Dims()
	x := mat.NewDense(n, len(names), nil)
	terms := make([]Term, len(names))
	for j, name := range names {
		src := d.TermIndex(name)
		if src == -1 {
			return nil, fmt.Errorf("select: unknown term %q", name)
		}
		x.SetCol(j, mat.Col(nil, src, d.X))
		terms[j] = d.Terms[src]
	}
	y := make([]float64, n)
	copy(y, d.Y)
	return &Design{X: x, Y: y, Terms: terms}, nil
}

// WithColumn returns a new Design with an extra named column appended.
func (d *Design) WithColumn(t Term, vals []float64) (*Design, error) {
	n, p := d.X.Dims()
	if len(vals) != n {
		return nil, fmt.Errorf("with column %s: %d values for %d rows", t.Name, len(vals), n)
	}
	x := mat.NewDense(n, p+1, nil)
	for j := 0; j < p; j++ {
		x.SetCol(j, mat.Col(nil, j, d.X))
	}
	x.SetCol(p, vals)
	y := make([]float64, n)
	copy(y, d.Y)
	terms := make([]Term, p+1)
	copy(terms, d.Terms)
	terms[p] = t
	return &Design{X: x, Y: y, Terms: terms}, nil
}

// WithResponse returns a shallow-copied Design with a replacement
// response, used when the pipeline refits on log(y).
func (d *Design) WithResponse(y []float64) (*Design, error) {
	if len(y) != d.NRows() {
		return nil, fmt.Errorf("with response: %d values for %d rows", len(y), d.NRows())
	}
	cp := make([]float64, len(y))
	copy(cp, y)
	return &Design{X: d.X, Y: cp, Terms: d.Terms}, nil
}
