package export

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/rpattn/slicereports/internal/domain"
)

// Sheet is one worksheet: a header row followed by data rows.
type Sheet struct {
	Name    string
	Headers []string
	Rows    [][]any
}

// counter is implemented by domain.Collection.
type counter interface {
	Count() int64
}

var counterType = reflect.TypeOf((*counter)(nil)).Elem()

// FromPage flattens a report page into a sheet named after the page. Columns
// follow the record's JSON field names; nested collections become a
// "<name>_total" column.
func FromPage[T any](page domain.Page[T]) Sheet {
	name := page.Name
	if name == "" {
		name = "data"
	}
	return FromRecords(name, page.Items)
}

// FromRecords flattens struct records into a sheet.
func FromRecords[T any](name string, items []T) Sheet {
	fields := recordFields(reflect.TypeOf((*T)(nil)).Elem())
	sheet := Sheet{Name: name, Headers: make([]string, len(fields))}
	for i, f := range fields {
		sheet.Headers[i] = f.header
	}

	for _, item := range items {
		v := reflect.ValueOf(item)
		for v.Kind() == reflect.Pointer {
			v = v.Elem()
		}
		row := make([]any, len(fields))
		for i, f := range fields {
			fv := v.Field(f.index)
			if f.total {
				row[i] = fv.Interface().(counter).Count()
				continue
			}
			row[i] = formatValue(fv.Interface())
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet
}

type recordField struct {
	index  int
	header string
	total  bool
}

func recordFields(t reflect.Type) []recordField {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	var out []recordField
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := strings.Split(sf.Tag.Get("json"), ",")[0]
		if name == "-" {
			continue
		}
		if name == "" {
			name = sf.Name
		}
		if sf.Type.Implements(counterType) {
			out = append(out, recordField{index: i, header: name + "_total", total: true})
			continue
		}
		out = append(out, recordField{index: i, header: name})
	}
	return out
}

// formatValue converts a record field to a cell value. Nil pointers become
// empty cells, numbers stay numeric.
func formatValue(value any) any {
	if value == nil {
		return ""
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return ""
		}
		return formatValue(rv.Elem().Interface())
	}
	switch v := value.(type) {
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return "false"
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case []string:
		return strings.Join(v, ",")
	case int, int32, int64, float64:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// WriteWorkbook writes sheets as an xlsx workbook to w.
func WriteWorkbook(w io.Writer, sheets ...Sheet) error {
	if len(sheets) == 0 {
		return errors.New("workbook needs at least one sheet")
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet.Name); err != nil {
				return fmt.Errorf("failed to name sheet %s: %w", sheet.Name, err)
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return fmt.Errorf("failed to add sheet %s: %w", sheet.Name, err)
		}
		if err := writeSheet(f, sheet, headerStyle); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet Sheet, headerStyle int) error {
	sw, err := f.NewStreamWriter(sheet.Name)
	if err != nil {
		return fmt.Errorf("failed to open sheet %s: %w", sheet.Name, err)
	}

	header := make([]any, len(sheet.Headers))
	for i, h := range sheet.Headers {
		header[i] = excelize.Cell{StyleID: headerStyle, Value: h}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write header of %s: %w", sheet.Name, err)
	}

	for i, row := range sheet.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", i+1, sheet.Name, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet %s: %w", sheet.Name, err)
	}
	return nil
}
