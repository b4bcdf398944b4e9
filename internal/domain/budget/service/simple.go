package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"golang.org/x/text/width"

	"github.com/FACorreiaa/auto-qm-form/internal/domain/budget/parser"
	"github.com/FACorreiaa/auto-qm-form/internal/domain/budget/repository"
)

// Simple import file types
const (
	FileTypeCSV   = "csv"
	FileTypeExcel = "excel"
)

// SimpleRow is one row of a column-mapped budget sheet
type SimpleRow struct {
	Name       string `csv:"Name"`
	Type       string `csv:"Type"`
	Unit       string `csv:"Unit"`
	Qty        string `csv:"Qty"`
	UnitPrice  string `csv:"UnitPrice"`
	TotalPrice string `csv:"TotalPrice"`
	Desc       string `csv:"Desc"`
}

// SimpleImportResult is returned by ImportSimpleBudget
type SimpleImportResult struct {
	Status   bool     `json:"status"`
	Message  string   `json:"message"`
	BudgetID string   `json:"budget_id"`
	Inserted int      `json:"inserted"`
	Warnings []string `json:"warnings"`
}

// ImportSimpleBudget imports a sheet whose header names the columns
// Name, Type, Unit, Qty, UnitPrice, TotalPrice and Desc. Rows without a
// name are skipped and Type defaults to material.
func (s *BudgetService) ImportSimpleBudget(ctx context.Context, data []byte, fileType, budgetID string) (*SimpleImportResult, error) {
	var records []SimpleRow
	switch fileType {
	case FileTypeCSV:
		rows, err := unmarshalSimpleCSV(data)
		if err != nil {
			s.countImport("simple", "error")
			return nil, err
		}
		records = rows
	case FileTypeExcel:
		sheet, err := parser.RowsFromXLSX(bytes.NewReader(data))
		if err != nil {
			s.countImport("simple", "error")
			return nil, err
		}
		rows, err := unmarshalSimpleRows(sheet)
		if err != nil {
			s.countImport("simple", "error")
			return nil, err
		}
		records = rows
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFileType, fileType)
	}

	items, warnings := simpleItems(records, budgetID)

	inserted, err := s.repo.InsertItems(ctx, items)
	if err != nil {
		s.countImport("simple", "error")
		return nil, fmt.Errorf("failed to save budget items: %w", err)
	}
	s.countImport("simple", "ok")

	s.logger.Info("simple budget imported",
		slog.String("budget_id", budgetID),
		slog.String("file_type", fileType),
		slog.Int("inserted", inserted),
	)

	return &SimpleImportResult{
		Status:   true,
		Message:  fmt.Sprintf("imported %d items", inserted),
		BudgetID: budgetID,
		Inserted: inserted,
		Warnings: parser.CapWarnings(warnings),
	}, nil
}

func unmarshalSimpleCSV(data []byte) ([]SimpleRow, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	var rows []SimpleRow
	if err := gocsv.UnmarshalCSV(gocsv.LazyCSVReader(bytes.NewReader(data)), &rows); err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return rows, nil
}

// unmarshalSimpleRows feeds worksheet rows through the same header mapping
// as CSV input.
func unmarshalSimpleRows(sheet [][]string) ([]SimpleRow, error) {
	if len(sheet) == 0 {
		return nil, nil
	}

	width := len(sheet[0])
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, r := range sheet {
		padded := make([]string, width)
		copy(padded, r)
		if err := w.Write(padded); err != nil {
			return nil, fmt.Errorf("failed to convert worksheet: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to convert worksheet: %w", err)
	}

	return unmarshalSimpleCSV(buf.Bytes())
}

func simpleItems(records []SimpleRow, budgetID string) ([]repository.BudgetItem, []string) {
	items := make([]repository.BudgetItem, 0, len(records))
	var warnings []string

	for i, r := range records {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			continue
		}
		line := i + 2 // header is line 1

		itemType := parser.ItemType(strings.ToLower(strings.TrimSpace(r.Type)))
		switch itemType {
		case parser.TypeMaterial, parser.TypeEquipment, parser.TypeWork:
		case "":
			itemType = parser.TypeMaterial
		default:
			warnings = append(warnings, fmt.Sprintf("unknown_type:%d:%s", line, r.Type))
			itemType = parser.TypeMaterial
		}

		item := repository.BudgetItem{
			BudgetID:    budgetID,
			Name:        name,
			Type:        itemType,
			Unit:        optional(r.Unit),
			Description: optional(r.Desc),
		}

		for _, f := range []struct {
			column string
			raw    string
			dst    **float64
		}{
			{"Qty", r.Qty, &item.Quantity},
			{"UnitPrice", r.UnitPrice, &item.UnitPrice},
			{"TotalPrice", r.TotalPrice, &item.TotalPrice},
		} {
			v, err := optionalFloat(f.raw)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("%s_parse_fail:%d:%s", strings.ToLower(f.column), line, name))
				continue
			}
			*f.dst = v
		}

		items = append(items, item)
	}

	return items, warnings
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func optionalFloat(s string) (*float64, error) {
	s = width.Narrow.String(strings.TrimSpace(s))
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
