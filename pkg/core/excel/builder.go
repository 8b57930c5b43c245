// Package excel assembles the output workbook: a dropdown-driven Dashboard,
// the Raw Data sheet it looks up into, and a hidden Company List sheet that
// feeds the dropdown's valid values.
package excel

import (
	"fmt"
	"path/filepath"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"watchtrack/pkg/models"
)

const (
	SheetDashboard   = "Dashboard"
	SheetRawData     = "Raw Data"
	SheetCompanyList = "Company List"
	SheetQuarterly   = "Quarterly Data"

	// DropdownCell is the Dashboard cell the company selector lives in.
	DropdownCell = "B3"

	headerColor = "366092"
)

// RawDataHeaders is the fixed column order of the Raw Data sheet. The
// dashboard VLOOKUP column indexes below depend on it.
var RawDataHeaders = []string{"Company", "Price", "Market Cap", "P/E", "Sector", "Watchlist", "URL"}

// metric label → 1-based VLOOKUP column in Raw Data.
var dashboardMetrics = []struct {
	Label  string
	Column int
}{
	{"Current Price:", 2},
	{"Market Cap:", 3},
	{"P/E Ratio:", 4},
	{"Sector:", 5},
	{"Watchlist:", 6},
}

// Builder writes run snapshots to xlsx files under OutputDir.
type Builder struct {
	OutputDir string
}

// Build writes the workbook for one run and returns its path. The caller
// guarantees snap.Records is non-empty, deduplicated, and in insertion order.
func (b *Builder) Build(snap *models.RunSnapshot) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetDashboard); err != nil {
		return "", fmt.Errorf("create dashboard sheet: %w", err)
	}
	for _, name := range []string{SheetRawData, SheetCompanyList} {
		if _, err := f.NewSheet(name); err != nil {
			return "", fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	if err := b.writeRawData(f, snap.Records); err != nil {
		return "", err
	}
	if err := b.writeCompanyList(f, snap.Records); err != nil {
		return "", err
	}
	if err := b.writeDashboard(f, snap.Records); err != nil {
		return "", err
	}
	if err := b.writeQuarterly(f, snap.Records); err != nil {
		return "", err
	}

	if err := f.SetSheetVisible(SheetCompanyList, false); err != nil {
		return "", fmt.Errorf("hide company list: %w", err)
	}

	path := filepath.Join(b.OutputDir, fmt.Sprintf("Company_Dashboard_%s.xlsx", snap.StartedAt.Format("20060102_150405")))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}
	return path, nil
}

func (b *Builder) writeRawData(f *excelize.File, records []models.CompanyRecord) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerColor}},
	})
	if err != nil {
		return err
	}

	for col, header := range RawDataHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(SheetRawData, cell, header); err != nil {
			return err
		}
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(RawDataHeaders), 1)
	if err := f.SetCellStyle(SheetRawData, "A1", lastHeader, headerStyle); err != nil {
		return err
	}

	for i, rec := range records {
		row := i + 2
		values := []interface{}{
			rec.Name,
			decimalCell(rec.CurrentPrice),
			decimalCell(rec.MarketCap),
			decimalCell(rec.PERatio),
			rec.Sector,
			rec.SourceWatchlist,
			rec.URL,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(SheetRawData, cell, v); err != nil {
				return err
			}
		}
	}

	f.SetColWidth(SheetRawData, "A", "A", 25)
	f.SetColWidth(SheetRawData, "E", "F", 20)
	f.SetColWidth(SheetRawData, "G", "G", 50)
	return nil
}

func (b *Builder) writeCompanyList(f *excelize.File, records []models.CompanyRecord) error {
	if err := f.SetCellValue(SheetCompanyList, "A1", "Company Name"); err != nil {
		return err
	}
	for i, rec := range records {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetCellValue(SheetCompanyList, cell, rec.Name); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) writeDashboard(f *excelize.File, records []models.CompanyRecord) error {
	titleStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 18, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerColor}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return err
	}
	boldStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	if err := f.MergeCell(SheetDashboard, "A1", "F1"); err != nil {
		return err
	}
	f.SetCellValue(SheetDashboard, "A1", "COMPANY FINANCIAL DASHBOARD")
	f.SetCellStyle(SheetDashboard, "A1", "F1", titleStyle)
	f.SetRowHeight(SheetDashboard, 1, 30)

	f.SetCellValue(SheetDashboard, "A3", "Select Company:")
	f.SetCellStyle(SheetDashboard, "A3", "A3", boldStyle)

	// Dropdown bound to the hidden Company List range; default to the first
	// company so the dashboard renders populated on open.
	f.SetCellValue(SheetDashboard, DropdownCell, records[0].Name)
	dv := excelize.NewDataValidation(true)
	dv.Sqref = DropdownCell
	dv.SetSqrefDropList(fmt.Sprintf("'%s'!$A$2:$A$%d", SheetCompanyList, len(records)+1))
	if err := f.AddDataValidation(SheetDashboard, dv); err != nil {
		return err
	}

	f.SetCellValue(SheetDashboard, "A5", "Key Metrics")
	f.SetCellStyle(SheetDashboard, "A5", "A5", boldStyle)

	// Exact-match lookup wrapped in IFERROR so an empty or stale selection
	// renders blank instead of #N/A.
	lastCol, _ := excelize.ColumnNumberToName(len(RawDataHeaders))
	lookupRange := fmt.Sprintf("'%s'!$A$2:$%s$%d", SheetRawData, lastCol, len(records)+1)
	for i, m := range dashboardMetrics {
		row := i + 6
		labelCell, _ := excelize.CoordinatesToCellName(1, row)
		valueCell, _ := excelize.CoordinatesToCellName(2, row)
		f.SetCellValue(SheetDashboard, labelCell, m.Label)
		f.SetCellStyle(SheetDashboard, labelCell, labelCell, boldStyle)
		formula := fmt.Sprintf(`IFERROR(VLOOKUP($B$3,%s,%d,FALSE),"")`, lookupRange, m.Column)
		if err := f.SetCellFormula(SheetDashboard, valueCell, formula); err != nil {
			return err
		}
	}

	f.SetCellValue(SheetDashboard, "A13", "Instructions:")
	f.SetCellStyle(SheetDashboard, "A13", "A13", boldStyle)
	f.SetCellValue(SheetDashboard, "A14", "1. Select a company from the dropdown above")
	f.SetCellValue(SheetDashboard, "A15", "2. All metrics will update automatically")
	f.SetCellValue(SheetDashboard, "A16", "3. Check 'Raw Data' sheet for all company information")

	f.SetColWidth(SheetDashboard, "A", "A", 20)
	f.SetColWidth(SheetDashboard, "B", "B", 30)
	return nil
}

// writeQuarterly adds the Quarterly Data sheet when at least one company
// produced quarterly rows.
func (b *Builder) writeQuarterly(f *excelize.File, records []models.CompanyRecord) error {
	any := false
	for _, rec := range records {
		if len(rec.Quarters) > 0 {
			any = true
			break
		}
	}
	if !any {
		return nil
	}

	if _, err := f.NewSheet(SheetQuarterly); err != nil {
		return err
	}
	headers := []string{"Company", "Period", "Sales", "Net Profit"}
	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(SheetQuarterly, cell, h); err != nil {
			return err
		}
	}

	row := 2
	for _, rec := range records {
		for _, q := range rec.Quarters {
			values := []interface{}{rec.Name, q.Period, decimalCell(q.Sales), decimalCell(q.NetProfit)}
			for col, v := range values {
				cell, _ := excelize.CoordinatesToCellName(col+1, row)
				if err := f.SetCellValue(SheetQuarterly, cell, v); err != nil {
					return err
				}
			}
			row++
		}
	}
	f.SetColWidth(SheetQuarterly, "A", "A", 25)
	return nil
}

// decimalCell renders a nullable decimal as a number, or an empty string so
// the dashboard lookup shows blank rather than a spurious zero.
func decimalCell(d decimal.NullDecimal) interface{} {
	if !d.Valid {
		return ""
	}
	v, _ := d.Decimal.Float64()
	return v
}
