package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// ReadCSV decodes a CSV stream into a Table. The first record is the header.
// Short rows are padded with empty cells; long rows are truncated. Both occur
// in real surveillance exports and are not worth failing the whole file over.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("read csv: empty input")
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	table, err := New(header...)
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		row := make([]string, len(header))
		copy(row, record)
		table.rows = append(table.rows, row)
	}
	return table, nil
}

// ReadCSVFile decodes a CSV file into a Table.
func ReadCSVFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	table, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

// WriteCSV encodes the table as CSV with a header record.
func (t *Table) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range t.rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteCSVFile writes the table to a file, creating or truncating it.
func (t *Table) WriteCSVFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := t.WriteCSV(f); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}
