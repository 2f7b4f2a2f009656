package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"amesreg/internal/logging"
)

// MissingLevel is the categorical level assigned to empty cells.
const MissingLevel = "(missing)"

// ColumnKind distinguishes numeric from categorical columns.
type ColumnKind int

const (
	Numeric ColumnKind = iota
	Categorical
)

func (k ColumnKind) String() string {
	if k == Numeric {
		return "numeric"
	}
	return "categorical"
}

// Column is a single typed column of the raw table.
type Column struct {
	Name    string
	Kind    ColumnKind
	Floats  []float64 // populated when Kind == Numeric
	Levels  []string  // populated when Kind == Categorical
	Imputed int       // cells filled during ingest
}

// Table is the ingested housing table: typed columns plus the response.
type Table struct {
	Columns  []Column
	Response string
	Y        []float64
	NRows    int
}

// LoadOptions controls CSV ingest.
type LoadOptions struct {
	Response    string   // response column name (required)
	Drop        []string // columns to exclude entirely (IDs, leakage)
	Categorical []string // force these columns to categorical even if numeric-looking
}

// LoadCSV reads a housing CSV with a header row and types each column.
// A column is numeric when every non-empty cell parses as a float;
// otherwise it is categorical. Empty and "NA" numeric cells are imputed
// with the column median, empty categorical cells become the "(missing)"
// level. A categorical "NA" cell is kept as a literal "NA" level: in
// Ames-style data it encodes "feature absent" (no garage, no pool)
// rather than an unrecorded value, so it carries information the model
// should see. A malformed row (wrong field count, unparsable response)
// is an error: silently dropping rows would bias every downstream
// estimate.
func LoadCSV(path string, opts LoadOptions) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := parseCSV(f, opts)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return t, nil
}

func parseCSV(r io.Reader, opts LoadOptions) (*Table, error) {
	if opts.Response == "" {
		return nil, fmt.Errorf("response column not set")
	}

	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	respIdx := -1
	dropSet := make(map[string]bool, len(opts.Drop))
	for _, d := range opts.Drop {
		dropSet[d] = true
	}
	forceCat := make(map[string]bool, len(opts.Categorical))
	for _, c := range opts.Categorical {
		forceCat[c] = true
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
		if header[i] == opts.Response {
			respIdx = i
		}
	}
	if respIdx == -1 {
		return nil, fmt.Errorf("response column %q not in header %v", opts.Response, header)
	}

	raw := make([][]string, 0, 1024)
	for row := 2; ; row++ {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		if len(rec) != len(header) {
			return nil, fmt.Errorf("row %d: %d fields, header has %d", row, len(rec), len(header))
		}
		raw = append(raw, rec)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("no data rows")
	}

	t := &Table{Response: opts.Response, NRows: len(raw)}

	// Response first: it must be fully numeric and present.
	t.Y = make([]float64, len(raw))
	for i, rec := range raw {
		cell := strings.TrimSpace(rec[respIdx])
		if cell == "" {
			return nil, fmt.Errorf("row %d: empty response", i+2)
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: response %q not numeric", i+2, cell)
		}
		t.Y[i] = v
	}

	logger := logging.New("dataset")
	for j, name := range header {
		if j == respIdx || dropSet[name] {
			continue
		}
		cells := make([]string, len(raw))
		for i, rec := range raw {
			cells[i] = strings.TrimSpace(rec[j])
		}
		col := typeColumn(name, cells, forceCat[name])
		if col.Imputed > 0 {
			logger.Debug("imputed cells", "column", name, "kind", col.Kind.String(), "count", col.Imputed)
		}
		t.Columns = append(t.Columns, col)
	}
	if len(t.Columns) == 0 {
		return nil, fmt.Errorf("no predictor columns after drops")
	}
	return t, nil
}

// typeColumn decides the column kind and materializes its values.
func typeColumn(name string, cells []string, forceCat bool) Column {
	numeric := !forceCat
	if numeric {
		for _, c := range cells {
			if c == "" || c == "NA" {
				continue
			}
			if _, err := strconv.ParseFloat(c, 64); err != nil {
				numeric = false
				break
			}
		}
	}

	col := Column{Name: name}
	if numeric {
		col.Kind = Numeric
		col.Floats = make([]float64, len(cells))
		var present []float64
		missing := make([]int, 0)
		for i, c := range cells {
			if c == "" || c == "NA" {
				missing = append(missing, i)
				continue
			}
			v, _ := strconv.ParseFloat(c, 64)
			col.Floats[i] = v
			present = append(present, v)
		}
		if len(missing) > 0 {
			med := median(present)
			for _, i := range missing {
				col.Floats[i] = med
			}
			col.Imputed = len(missing)
		}
		return col
	}

	col.Kind = Categorical
	col.Levels = make([]string, len(cells))
	for i, c := range cells {
		if c == "" {
			col.Levels[i] = MissingLevel
			col.Imputed++
			continue
		}
		col.Levels[i] = c
	}
	return col
}

// median of a non-empty slice; copies before sorting.
func median(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	cp := make([]float64, len(x))
	copy(cp, x)
	sort.Float64s(cp)
	mid := len(cp) / 2
	if len(cp)%2 == 0 {
		return (cp[mid-1] + cp[mid]) / 2
	}
	return cp[mid]
}

// ImputedCells returns the total number of cells filled during ingest.
func (t *Table) ImputedCells() int {
	n := 0
	for _, c := range t.Columns {
		n += c.Imputed
	}
	return n
}
