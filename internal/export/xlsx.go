package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

var sheetNames = map[SectionID]string{
	SectionSummary:         "Summary",
	SectionMatches:         "Matches",
	SectionUnmatchedBank:   "Unmatched Bank",
	SectionUnmatchedLedger: "Unmatched Ledger",
}

const moneyNumFmt = "#,##0.00"

// XLSXRenderer writes one worksheet per section, monetary columns stored as numbers.
type XLSXRenderer struct{}

func NewXLSXRenderer() *XLSXRenderer { return &XLSXRenderer{} }

// Format implements Renderer.
func (r *XLSXRenderer) Format() Format { return FormatXLSX }

// ContentType implements Renderer.
func (r *XLSXRenderer) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// DefaultLabel is the file name label used when the request carries none.
func (r *XLSXRenderer) DefaultLabel() string { return "Reconciliation_Workbook" }

type xlsxDocument struct {
	file *excelize.File
}

func (d *xlsxDocument) Encode() ([]byte, error) {
	defer d.file.Close()
	buf, err := d.file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("could not write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *XLSXRenderer) Layout(report *Report) (Document, error) {
	f := excelize.NewFile()
	if err := f.SetDocProps(&excelize.DocProperties{
		Title:   "Reconciliation Report - " + report.Header.CompanyName,
		Creator: "recon-report",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("could not set workbook properties: %w", err)
	}

	moneyFmt := moneyNumFmt
	moneyStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &moneyFmt})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("could not create money style: %w", err)
	}
	titleStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("could not create title style: %w", err)
	}

	for i, t := range report.Tables {
		name := sheetNames[t.Section]
		if i == 0 {
			err = f.SetSheetName("Sheet1", name)
		} else {
			_, err = f.NewSheet(name)
		}
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("could not create sheet %s: %w", name, err)
		}
		if err := writeSheet(f, name, t, titleStyle, moneyStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("could not write sheet %s: %w", name, err)
		}
	}
	f.SetActiveSheet(0)
	return &xlsxDocument{file: f}, nil
}

func writeSheet(f *excelize.File, sheet string, t Table, titleStyle, moneyStyle int) error {
	if err := f.SetCellValue(sheet, "A1", t.Title); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", "A1", titleStyle); err != nil {
		return err
	}

	accent := Accent(t.Section)
	headStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: White.Hex()},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{accent.Hex()}},
	})
	if err != nil {
		return err
	}

	head := make([]interface{}, len(t.Columns))
	for i, c := range t.Columns {
		head[i] = c.Title
	}
	if err := f.SetSheetRow(sheet, "A2", &head); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(t.Columns), 2)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A2", last, headStyle); err != nil {
		return err
	}

	for r, row := range t.Rows {
		values := make([]interface{}, len(row))
		for i, cell := range row {
			switch cell.Kind {
			case CellText:
				values[i] = cell.Raw
			default:
				v, _ := cell.Amount.Float64()
				values[i] = v
			}
		}
		start, err := excelize.CoordinatesToCellName(1, r+3)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, start, &values); err != nil {
			return err
		}
	}

	for i, c := range t.Columns {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		width := 18.0
		if c.Width > 0 {
			width = c.Width / 2
		}
		if c.Detail {
			width = 40
		}
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return err
		}
		if c.Kind == CellMoney && len(t.Rows) > 0 {
			if err := f.SetCellStyle(sheet, col+"3", fmt.Sprintf("%s%d", col, len(t.Rows)+2), moneyStyle); err != nil {
				return err
			}
		}
	}
	return nil
}
