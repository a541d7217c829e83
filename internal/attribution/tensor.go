// Package attribution reduces raw explainer output of any supported shape to
// exactly one non-negative importance value per feature.
package attribution

// Tensor is a dense row-major array with its shape
type Tensor struct {
	Shape []int
	Data  []float64
}

// Len returns the flattened length
func (t Tensor) Len() int {
	return len(t.Data)
}

// Raw is what an explainer hands back. PerClass is set when the explainer returns
// one tensor per output class; otherwise Tensor holds the single result.
type Raw struct {
	Tensor   Tensor
	PerClass []Tensor
}

// Vector wraps a flat attribution vector
func Vector(v []float64) Raw {
	data := append([]float64(nil), v...)
	return Raw{Tensor: Tensor{Shape: []int{len(data)}, Data: data}}
}

// Matrix wraps a 2-D attribution array (samples×features or features×samples)
func Matrix(rows [][]float64) Raw {
	return Raw{Tensor: matrixTensor(rows)}
}

// Cube wraps a samples×features×classes array
func Cube(c [][][]float64) Raw {
	var data []float64
	shape := []int{len(c), 0, 0}
	for _, m := range c {
		if len(m) > shape[1] {
			shape[1] = len(m)
		}
		for _, row := range m {
			if len(row) > shape[2] {
				shape[2] = len(row)
			}
			data = append(data, row...)
		}
	}
	return Raw{Tensor: Tensor{Shape: shape, Data: data}}
}

// PerClass wraps a list of per-class samples×features matrices
func PerClass(classes ...[][]float64) Raw {
	out := Raw{PerClass: make([]Tensor, len(classes))}
	for i, m := range classes {
		out.PerClass[i] = matrixTensor(m)
	}
	return out
}

func matrixTensor(rows [][]float64) Tensor {
	var data []float64
	cols := 0
	for _, row := range rows {
		if len(row) > cols {
			cols = len(row)
		}
		data = append(data, row...)
	}
	return Tensor{Shape: []int{len(rows), cols}, Data: data}
}

// Selected returns the tensor the normalizer works on: the second class slice of a
// per-class list when one exists, else the only slice, else the plain tensor.
func (r Raw) Selected() Tensor {
	switch len(r.PerClass) {
	case 0:
		return r.Tensor
	case 1:
		return r.PerClass[0]
	default:
		return r.PerClass[1]
	}
}
