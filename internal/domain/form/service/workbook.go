package service

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/auto-qm-form/internal/domain/form/repository"
)

// SheetName is the worksheet the final form is written to
const SheetName = "品質管理標準"

// FormHeaders is the header row of the final form
var FormHeaders = []string{"項目名稱", "類型", "檢驗項目", "檢驗方法", "驗收標準", "頻率", "責任單位", "備註"}

var columnWidths = map[string]float64{
	"A": 28, "B": 12, "C": 40, "D": 40, "E": 40, "F": 16, "G": 16, "H": 30,
}

// RenderForm writes the temp items into an XLSX workbook, one row per item
func RenderForm(items []repository.TempItem) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("set sheet name: %w", err)
	}

	for col, w := range columnWidths {
		if err := f.SetColWidth(SheetName, col, col, w); err != nil {
			return nil, fmt.Errorf("set col width: %w", err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#333333"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorders(),
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	cellStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
		Border:    thinBorders(),
	})
	if err != nil {
		return nil, fmt.Errorf("create cell style: %w", err)
	}

	header := make([]interface{}, len(FormHeaders))
	for i, h := range FormHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(FormHeaders))
	if err := f.SetCellStyle(SheetName, "A1", lastCol+"1", headerStyle); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}

	for i, it := range items {
		row := []interface{}{
			it.ItemName,
			it.ItemType,
			strings.Join(it.InspectionItems, ", "),
			strings.Join(it.InspectionMethods, ", "),
			strings.Join(it.AcceptanceCriteria, ", "),
			deref(it.Frequency),
			deref(it.ResponsibleParty),
			deref(it.Notes),
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if len(items) > 0 {
		end := fmt.Sprintf("%s%d", lastCol, len(items)+1)
		if err := f.SetCellStyle(SheetName, "A2", end, cellStyle); err != nil {
			return nil, fmt.Errorf("style rows: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func thinBorders() []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: "#CCCCCC", Style: 1},
		{Type: "top", Color: "#CCCCCC", Style: 1},
		{Type: "right", Color: "#CCCCCC", Style: 1},
		{Type: "bottom", Color: "#CCCCCC", Style: 1},
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
