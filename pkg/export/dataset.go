package export

import "sort"

// Dataset defines tabular export content.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
	// GroupBy names a header whose values split the rows into sections (sheets in xlsx).
	GroupBy string
	// Totals is rendered as a trailing summary row when set.
	Totals map[string]string
}

// Groups partitions rows by the GroupBy column, preserving first-seen order within each group.
// Without GroupBy every row belongs to a single group named fallback.
func (d Dataset) Groups(fallback string) ([]string, map[string][]map[string]string) {
	grouped := make(map[string][]map[string]string)
	if d.GroupBy == "" {
		grouped[fallback] = d.Rows
		return []string{fallback}, grouped
	}
	for _, row := range d.Rows {
		key := row[d.GroupBy]
		if key == "" {
			key = fallback
		}
		grouped[key] = append(grouped[key], row)
	}
	names := make([]string, 0, len(grouped))
	for name := range grouped {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, grouped
}

func (d Dataset) record(row map[string]string) []string {
	record := make([]string, len(d.Headers))
	for i, header := range d.Headers {
		record[i] = row[header]
	}
	return record
}
