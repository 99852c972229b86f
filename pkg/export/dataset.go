package export

import "fmt"

// Dataset defines tabular export content. Rows are positional so headers may repeat.
// NumericColumns lists zero-based column indexes whose cells are integers; renderers with
// typed cells write them as numbers.
type Dataset struct {
	Title          string
	Headers        []string
	Rows           [][]string
	NumericColumns []int
}

func (d Dataset) numericSet() map[int]bool {
	set := make(map[int]bool, len(d.NumericColumns))
	for _, i := range d.NumericColumns {
		set[i] = true
	}
	return set
}

func (d Dataset) validate(format string) error {
	if len(d.Headers) == 0 {
		return fmt.Errorf("%s requires at least one header", format)
	}
	for i, row := range d.Rows {
		if len(row) > len(d.Headers) {
			return fmt.Errorf("%s row %d has %d cells for %d headers", format, i, len(row), len(d.Headers))
		}
	}
	return nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
