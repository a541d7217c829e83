package app

import (
	"fmt"
	"math/rand"
	"strings"

	"biasaudit/domain/audit"
	"biasaudit/domain/dataset"
)

var rejectedTokens = []string{"0", "0.0", "No", "False", "Rejected"}

// RepresentativeProfile picks an example applicant, preferring a rejected one. The
// pick is seeded so the same dataset always yields the same applicant.
func RepresentativeProfile(ds *dataset.Dataset, r audit.ColumnRoles, seed int64) *audit.RepresentativeProfile {
	if ds == nil || ds.Len() == 0 {
		return nil
	}
	target, ok := ds.Column(r.Target)
	if !ok {
		return nil
	}

	var rejected []int
	for i, v := range target {
		for _, tok := range rejectedTokens {
			if v == tok {
				rejected = append(rejected, i)
				break
			}
		}
	}

	rng := rand.New(rand.NewSource(seed))
	status := "REJECTED"
	var row int
	if len(rejected) > 0 {
		row = rejected[rng.Intn(len(rejected))]
	} else {
		row = rng.Intn(ds.Len())
		status = "APPROVED"
	}

	record := ds.Record(row)
	lookup := func(token string) (string, bool) {
		for _, name := range ds.Columns.Names() {
			if strings.Contains(strings.ToLower(name), token) {
				return record[name], true
			}
		}
		return "N/A", false
	}

	name, ok := lookup("name")
	if !ok {
		name = fmt.Sprintf("Applicant #%d", ds.SourceRows[row])
	}
	credit, _ := lookup("credit")
	income, _ := lookup("income")

	protected := "N/A"
	if v, ok := record[r.Protected]; ok {
		protected = v
	}

	return &audit.RepresentativeProfile{
		Name:               name,
		CreditScore:        credit,
		Income:             income,
		ProtectedValue:     protected,
		Status:             status,
		ProtectedAttribute: r.Protected,
	}
}
