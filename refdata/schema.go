package refdata

import (
	"fmt"
	"strings"
)

// field names one mapped column of the spreadsheet schemas.
type field string

const (
	fieldContainer field = "container"
	fieldOrder     field = "order"
	fieldVessel    field = "vessel"
	fieldDate      field = "date"
	fieldBill      field = "bill"
)

// columnVariants lists the acceptable header spellings per field for the
// header-mapped schemas. Headers are matched case-insensitively by exact
// string equality after trimming.
var columnVariants = map[Mode]map[field][]string{
	ModeLogos: {
		fieldContainer: {"Номер конт / тс"},
		fieldOrder:     {"Номер заказа (заказ)"},
		fieldVessel:    {"Судно / номер ТС (поставка)"},
		fieldDate:      {"Факт дата прибытия порт/свх (поставка)"},
		fieldBill:      {"Коносамент / CMR (поставка)"},
	},
	ModeReport: {
		fieldContainer: {"Контейнер"},
		fieldOrder:     {"Номер Заказа"},
		fieldVessel:    {"Судно"},
		fieldDate:      {"Дата прибытия"},
		fieldBill:      {"Коносамент"},
	},
}

// Fixed cell positions of the web-sheet rows.
const (
	webColDate      = 1
	webColVessel    = 3
	webColVoyage    = 4
	webColBill      = 6
	webColContainer = 13
	webColCompany   = 17
)

// columnMap resolves header names to column indices for a header-mapped
// schema. A field with no matching header fails the load.
func columnMap(mode Mode, headers []string) (map[field]int, error) {
	variants, ok := columnVariants[mode]
	if !ok {
		return nil, fmt.Errorf("refdata: mode %q has no header schema", mode)
	}
	out := make(map[field]int, len(variants))
	for f, names := range variants {
		idx := findColumn(headers, names)
		if idx < 0 {
			return nil, fmt.Errorf("%w: %s (accepted headers: %s)",
				ErrColumnMissing, f, strings.Join(names, ", "))
		}
		out[f] = idx
	}
	return out, nil
}

func findColumn(headers, names []string) int {
	for _, name := range names {
		for i, h := range headers {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				return i
			}
		}
	}
	return -1
}

// cell returns the i-th value of a possibly short row.
func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
