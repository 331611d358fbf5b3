package schema

import (
	"fmt"
	"strings"
)

// Drift describes one way a live schema departs from the canonical one.
type Drift struct {
	Table   string
	Subject string
	Problem string
}

func (d Drift) String() string {
	if d.Subject == "" {
		return fmt.Sprintf("%s: %s", d.Table, d.Problem)
	}
	return fmt.Sprintf("%s.%s: %s", d.Table, d.Subject, d.Problem)
}

// Compare reports every table, column, unique key, foreign key, index and named
// check present in want but missing or weaker in got. Extra objects in got are
// ignored. Check expressions are not compared; engines rewrite them.
func Compare(want, got *Schema) []Drift {
	var drifts []Drift

	for _, wt := range want.Tables {
		gt := got.Table(wt.Name)
		if gt == nil {
			drifts = append(drifts, Drift{Table: wt.Name, Problem: "table missing"})
			continue
		}

		for _, wc := range wt.Columns {
			gc := gt.Column(wc.Name)
			if gc == nil {
				drifts = append(drifts, Drift{Table: wt.Name, Subject: wc.Name, Problem: "column missing"})
				continue
			}
			if !wc.Nullable && gc.Nullable && wc.Kind != KindSerial {
				drifts = append(drifts, Drift{Table: wt.Name, Subject: wc.Name, Problem: "column allows NULL"})
			}
			if wc.IsUnique && !gc.IsUnique {
				drifts = append(drifts, Drift{Table: wt.Name, Subject: wc.Name, Problem: "column not unique"})
			}
		}

		for _, wr := range wt.Relations {
			gr := findRelation(gt.Relations, wr)
			if gr == nil {
				drifts = append(drifts, Drift{Table: wt.Name, Subject: wr.SourceColumn,
					Problem: fmt.Sprintf("foreign key to %s.%s missing", wr.TargetTable, wr.TargetColumn)})
				continue
			}
			if wr.OnDelete != "" && !strings.EqualFold(wr.OnDelete, gr.OnDelete) {
				drifts = append(drifts, Drift{Table: wt.Name, Subject: wr.SourceColumn,
					Problem: fmt.Sprintf("ON DELETE %s expected, found %s", wr.OnDelete, orNone(gr.OnDelete))})
			}
		}

		for _, wi := range append(append([]Index{}, wt.Unique...), wt.Indexes...) {
			if !hasIndexOn(gt.Indexes, wi) {
				drifts = append(drifts, Drift{Table: wt.Name, Subject: wi.Name,
					Problem: fmt.Sprintf("index on (%s) missing", strings.Join(wi.Columns, ", "))})
			}
		}

		for _, wc := range wt.Checks {
			if !hasCheck(gt.Checks, wc.Name) {
				drifts = append(drifts, Drift{Table: wt.Name, Subject: wc.Name, Problem: "check constraint missing"})
			}
		}
	}

	return drifts
}

func findRelation(relations []Relation, want Relation) *Relation {
	for i := range relations {
		r := &relations[i]
		if r.SourceColumn == want.SourceColumn && r.TargetTable == want.TargetTable {
			return r
		}
	}
	return nil
}

// hasIndexOn matches by column list rather than name; engines rename
// constraint-backed indexes freely.
func hasIndexOn(indexes []Index, want Index) bool {
	for _, idx := range indexes {
		if want.IsUnique && !idx.IsUnique {
			continue
		}
		if equalColumns(idx.Columns, want.Columns) {
			return true
		}
	}
	return false
}

func hasCheck(checks []Check, name string) bool {
	for _, c := range checks {
		if strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

func equalColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
