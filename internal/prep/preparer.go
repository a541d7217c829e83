// Package prep turns a complete dataset plus its column roles into a numeric
// feature matrix, a label vector and the encoding table needed to decode them.
package prep

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"biasaudit/domain/audit"
	"biasaudit/domain/core"
	"biasaudit/domain/dataset"
	"biasaudit/internal/logging"

	"go.uber.org/zap"
)

// leakageAliases are canonical outcome names always kept out of the feature matrix
var leakageAliases = []string{
	"Loan_Approved", "Loan_Status", "Target", "Outcome", "Approved", "Status",
}

// Prepared is the output of the feature preparer
type Prepared struct {
	Roles    audit.ColumnRoles
	Features []string
	X        [][]float64
	Y        []float64
	Encoding *EncodingTable
	Dropped  []string
	// Source is the dataset the matrices were built from
	Source *dataset.Dataset

	protectedIdx int
	targetKind   dataset.ColumnKind
	protKind     dataset.ColumnKind
	// spellings maps a numeric role column value to its first source cell ("1.0" stays "1.0")
	spellings map[string]map[float64]string
}

// ProtectedIndex returns the column of the protected attribute within X
func (p *Prepared) ProtectedIndex() int {
	return p.protectedIdx
}

// ProtectedValues returns the encoded protected value of every row in X
func (p *Prepared) ProtectedValues() []float64 {
	return Column(p.X, p.protectedIdx)
}

// Rows returns the number of rows
func (p *Prepared) Rows() int {
	return len(p.X)
}

// LabelName decodes an encoded target value into its source form
func (p *Prepared) LabelName(v float64) string {
	return p.decode(p.Roles.Target, p.targetKind, v)
}

// GroupName decodes an encoded protected value into its source form
func (p *Prepared) GroupName(v float64) string {
	return p.decode(p.Roles.Protected, p.protKind, v)
}

func (p *Prepared) decode(column string, kind dataset.ColumnKind, v float64) string {
	if kind == dataset.KindCategorical {
		if s, ok := p.Encoding.Decode(column, int(math.Round(v))); ok {
			return s
		}
	} else if s, ok := p.spellings[column][v]; ok {
		return s
	}
	return dataset.FormatNumber(v)
}

// Preparer encodes categoricals, drops identifier and leak-prone columns, and builds X/y
type Preparer struct {
	logger *zap.Logger
}

// NewPreparer creates a preparer
func NewPreparer(logger *zap.Logger) *Preparer {
	return &Preparer{logger: logging.OrNop(logger).Named("preparer")}
}

// Prepare builds the feature matrix from a dataset that has already been filtered for
// completeness. An empty dataset fails with core.ErrEmptyDataset.
func (p *Preparer) Prepare(ds *dataset.Dataset, roles audit.ColumnRoles) (*Prepared, error) {
	if ds == nil || ds.Len() == 0 {
		return nil, core.ErrEmptyDataset
	}
	targetIdx := ds.Columns.Index(roles.Target)
	protIdx := ds.Columns.Index(roles.Protected)
	if targetIdx < 0 || protIdx < 0 {
		return nil, core.NewRoleDetectionError("target or protected", "roles do not match the dataset columns")
	}

	encoding := buildEncoding(ds)

	drop := make(map[string]bool)
	drop[roles.Target] = true
	for _, id := range roles.Identifiers {
		if id != roles.Protected {
			drop[id] = true
			p.logger.Debug("dropping identifier column from features", zap.String("column", id))
		}
	}
	for _, alias := range leakageAliases {
		for _, col := range ds.Columns {
			if strings.EqualFold(col.Name, alias) && col.Name != roles.Protected {
				drop[col.Name] = true
			}
		}
	}

	var featureIdx []int
	out := &Prepared{
		Roles:        roles,
		Encoding:     encoding,
		Source:       ds,
		protectedIdx: -1,
		targetKind:   ds.Columns[targetIdx].Kind,
		protKind:     ds.Columns[protIdx].Kind,
		spellings: map[string]map[float64]string{
			roles.Target:    numericSpellings(ds, targetIdx),
			roles.Protected: numericSpellings(ds, protIdx),
		},
	}
	for i, col := range ds.Columns {
		if drop[col.Name] {
			out.Dropped = append(out.Dropped, col.Name)
			continue
		}
		if i == protIdx {
			out.protectedIdx = len(featureIdx)
		}
		featureIdx = append(featureIdx, i)
		out.Features = append(out.Features, col.Name)
	}

	out.X = make([][]float64, ds.Len())
	out.Y = make([]float64, ds.Len())
	for r, row := range ds.Rows {
		vec := make([]float64, len(featureIdx))
		for j, c := range featureIdx {
			v, err := cellValue(ds.Columns[c], row[c], encoding)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d: %v", core.ErrMalformedDataset, ds.SourceRows[r]+1, err)
			}
			vec[j] = v
		}
		out.X[r] = vec

		y, err := cellValue(ds.Columns[targetIdx], row[targetIdx], encoding)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", core.ErrMalformedDataset, ds.SourceRows[r]+1, err)
		}
		out.Y[r] = y
	}

	p.logger.Info("prepared feature set",
		zap.Strings("features", out.Features),
		zap.Strings("dropped", out.Dropped),
		zap.Int("rows", len(out.X)))

	return out, nil
}

func buildEncoding(ds *dataset.Dataset) *EncodingTable {
	table := &EncodingTable{columns: make(map[string]*Codes)}
	for _, col := range ds.Columns {
		if col.Kind != dataset.KindCategorical {
			continue
		}
		cells, _ := ds.Column(col.Name)
		table.columns[col.Name] = newCodes(cells)
	}
	return table
}

func numericSpellings(ds *dataset.Dataset, idx int) map[float64]string {
	if ds.Columns[idx].Kind == dataset.KindCategorical {
		return nil
	}
	out := make(map[float64]string)
	for _, row := range ds.Rows {
		v, err := strconv.ParseFloat(row[idx], 64)
		if err != nil {
			continue
		}
		if _, seen := out[v]; !seen {
			out[v] = row[idx]
		}
	}
	return out
}

func cellValue(col dataset.Column, cell string, table *EncodingTable) (float64, error) {
	if col.Kind == dataset.KindCategorical {
		code, ok := table.Encode(col.Name, cell)
		if !ok {
			return 0, fmt.Errorf("column %q: value %q has no encoding", col.Name, cell)
		}
		return float64(code), nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, fmt.Errorf("column %q: %q is not numeric", col.Name, cell)
	}
	return v, nil
}

// Column extracts one column of a matrix
func Column(X [][]float64, j int) []float64 {
	if j < 0 {
		return nil
	}
	out := make([]float64, len(X))
	for i, row := range X {
		out[i] = row[j]
	}
	return out
}
