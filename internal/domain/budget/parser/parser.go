// Package parser turns hierarchically numbered Chinese budget sheets (CSV or
// XLSX rows) into typed budget line items.
//
// The sheet layout is fixed by position: hierarchy code, name, unit, quantity,
// unit price, total price, item code. Rows before the header are preambles,
// rows after it are folded into items one at a time.
package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/width"
)

// ErrHeaderNotFound is returned when no row looks like a budget-sheet header.
var ErrHeaderNotFound = errors.New("header_not_found")

// ItemType is the classification bucket of a line item
type ItemType string

const (
	TypeMaterial  ItemType = "material"
	TypeEquipment ItemType = "equipment"
	TypeWork      ItemType = "work"
)

// SourceTypeRaw is the logical storage type of uploaded budget documents.
const SourceTypeRaw = "budget/raw"

const (
	minColumns       = 7
	maxSectionName   = 20
	MaxWarningsShown = 30
)

// ignoreKeywords mark subtotal and total rows.
var ignoreKeywords = []string{"小計", "合計", "計   ", "計 ", "總計"}

// Source identifies the stored raw document the items came from.
type Source struct {
	FileID   string
	FileName string
	FileType string
}

// Metadata carries the provenance of a line item. It is persisted as JSON.
type Metadata struct {
	RawName          string   `json:"raw_name"`
	MergedSegments   []string `json:"merged_segments"`
	CodeRaw          string   `json:"code_raw"`
	CodeClean        *string  `json:"code_clean"`
	HierarchyCode    *string  `json:"hierarchy_code"`
	HierarchyNumeric []int    `json:"hierarchy_numeric"`
	SourceFileID     string   `json:"source_file_id"`
	SourceFileName   string   `json:"source_file_original_name"`
	SourceFileType   string   `json:"source_file_type"`
	IsWork           bool     `json:"is_work"`
	IsEquipment      bool     `json:"is_equipment"`
}

// LineItem is a single parsed budget line
type LineItem struct {
	BudgetID    string   `json:"budget_id"`
	Name        string   `json:"name"`
	Type        ItemType `json:"type"`
	Unit        *string  `json:"unit"`
	Quantity    *float64 `json:"quantity"`
	UnitPrice   *float64 `json:"unit_price"`
	TotalPrice  *float64 `json:"total_price"`
	Description *string  `json:"description"`
	Metadata    Metadata `json:"metadata"`
}

// Result is the full output of a parse: items in document order and every
// warning in encounter order.
type Result struct {
	Items    []LineItem
	Warnings []string
}

// Parse decodes raw CSV bytes and reduces them into line items.
// Invalid UTF-8 sequences and a leading byte-order mark are dropped.
func Parse(data []byte, budgetID string, src Source) (*Result, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	text := strings.ToValidUTF8(string(data), "")

	reader := csv.NewReader(strings.NewReader(text))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		rows = append(rows, record)
	}

	return ParseRows(rows, budgetID, src)
}

// ParseRows locates the header and folds every following row into the result.
func ParseRows(rows [][]string, budgetID string, src Source) (*Result, error) {
	kept := make([][]string, 0, len(rows))
	for _, r := range rows {
		if !isBlank(r) {
			kept = append(kept, r)
		}
	}

	headerIdx := findHeader(kept)
	if headerIdx < 0 {
		return nil, ErrHeaderNotFound
	}

	state := reduction{
		budgetID: budgetID,
		source:   src,
		items:    make([]LineItem, 0, len(kept)-headerIdx),
		last:     -1,
	}
	for _, r := range kept[headerIdx+1:] {
		state = state.step(newRow(r))
	}

	return &Result{Items: state.items, Warnings: state.warnings}, nil
}

// CapWarnings returns at most the first MaxWarningsShown warnings.
func CapWarnings(warnings []string) []string {
	if len(warnings) > MaxWarningsShown {
		return warnings[:MaxWarningsShown]
	}
	return warnings
}

func isBlank(r []string) bool {
	for _, c := range r {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func findHeader(rows [][]string) int {
	for i, r := range rows {
		joined := strings.Join(r, ",")
		if strings.Contains(joined, "項 次") && strings.Contains(joined, "項") && strings.Contains(joined, "說") {
			return i
		}
	}
	return -1
}

// row is a normalized data row. Missing trailing cells read as empty.
type row struct {
	code       string
	name       string
	unit       string
	quantity   string
	unitPrice  string
	totalPrice string
	rawCode    string
}

func newRow(cells []string) row {
	var c [minColumns]string
	for i := 0; i < minColumns && i < len(cells); i++ {
		c[i] = strings.TrimSpace(cells[i])
	}
	return row{
		code:       c[0],
		name:       c[1],
		unit:       c[2],
		quantity:   c[3],
		unitPrice:  c[4],
		totalPrice: c[5],
		rawCode:    c[6],
	}
}

func (r row) isIgnored() bool {
	for _, k := range ignoreKeywords {
		if strings.Contains(r.name, k) {
			return true
		}
	}
	return false
}

func (r row) isSection() bool {
	if r.code == "" || r.quantity != "" || r.unit != "" || r.rawCode != "" {
		return false
	}
	return utf8.RuneCountInString(r.name) <= maxSectionName || sectionCode.MatchString(r.code)
}

// reduction is the accumulator threaded through the rows. last indexes the
// item that continuation rows attach to, or is -1 when there is none.
type reduction struct {
	budgetID string
	source   Source
	items    []LineItem
	last     int
	warnings []string
}

func (s reduction) step(r row) reduction {
	switch {
	case r.code == "" && r.name != "" && s.last >= 0 && !r.isIgnored():
		item := &s.items[s.last]
		item.Name += r.name
		item.Metadata.MergedSegments = append(item.Metadata.MergedSegments, r.name)
		return s

	case r.isIgnored():
		// Subtotal rows leave the cursor where it is.
		// TODO: confirm with estimators whether a wrapped line after 小計
		// should still join the item above it; resetting last here would stop it.
		return s

	case r.isSection():
		s.last = -1
		return s

	case r.name == "":
		return s
	}

	item, warning := s.newItem(r)
	if warning != "" {
		s.warnings = append(s.warnings, warning)
	}
	s.items = append(s.items, item)
	s.last = len(s.items) - 1
	return s
}

func (s reduction) newItem(r row) (LineItem, string) {
	var warning string

	quantity, err := parseAmount(r.quantity)
	if err != nil {
		warning = fmt.Sprintf("quantity_parse_fail:%s:%s", r.code, r.name)
	}
	unitPrice, _ := parseAmount(r.unitPrice)
	totalPrice, _ := parseAmount(r.totalPrice)

	itemType := Classify(r.name)

	meta := Metadata{
		RawName:        r.name,
		MergedSegments: []string{r.name},
		CodeRaw:        r.rawCode,
		SourceFileID:   s.source.FileID,
		SourceFileName: s.source.FileName,
		SourceFileType: s.source.FileType,
		IsWork:         itemType == TypeWork,
		IsEquipment:    itemType == TypeEquipment,
	}
	if r.rawCode != "" {
		clean := strings.ReplaceAll(r.rawCode, "#", "")
		meta.CodeClean = &clean
	}
	if r.code != "" {
		code, numeric := ParseHierarchy(r.code)
		meta.HierarchyCode = &code
		meta.HierarchyNumeric = numeric
	}

	item := LineItem{
		BudgetID:   s.budgetID,
		Name:       r.name,
		Type:       itemType,
		Quantity:   quantity,
		UnitPrice:  unitPrice,
		TotalPrice: totalPrice,
		Metadata:   meta,
	}
	if r.unit != "" {
		unit := r.unit
		item.Unit = &unit
	}

	return item, warning
}

// parseAmount reads a trimmed numeric cell. Empty cells are absent, not zero.
// Fullwidth digits are folded to ASCII first.
func parseAmount(s string) (*float64, error) {
	s = width.Narrow.String(s)
	if s == "" {
		return nil, nil
	}
	// strconv accepts hex floats; budget cells never carry them.
	if strings.ContainsAny(s, "xX") {
		return nil, fmt.Errorf("invalid number %q", s)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return &v, nil
}
