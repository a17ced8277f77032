package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

// ReceivedRow is one line of the received devices report.
type ReceivedRow struct {
	IMEI         string
	Manufacturer string
	ModelName    string
	ModelNo      string
	StorageGB    *int
	Color        *string
	Grade        string
	Status       string
	ReceivedAt   time.Time
}

var receivedHeader = []string{"IMEI", "Manufacturer", "Model", "Model No", "Storage (GB)", "Color", "Grade", "Status", "Received At"}

// WriteReceivedWorkbook renders the received devices of one purchase order as an xlsx workbook.
func WriteReceivedWorkbook(w io.Writer, poNumber string, rows []ReceivedRow) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Received"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	f.SetCellValue(sheet, "A1", "Purchase Order")
	f.SetCellValue(sheet, "B1", poNumber)
	f.SetCellValue(sheet, "A2", "Devices")
	f.SetCellValue(sheet, "B2", len(rows))

	for col, title := range receivedHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 4)
		f.SetCellValue(sheet, cell, title)
	}
	if err := f.SetCellStyle(sheet, "A4", "I4", bold); err != nil {
		return err
	}

	for i, r := range rows {
		line := i + 5
		f.SetCellValue(sheet, fmt.Sprintf("A%d", line), r.IMEI)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", line), r.Manufacturer)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", line), r.ModelName)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", line), r.ModelNo)
		if r.StorageGB != nil {
			f.SetCellValue(sheet, fmt.Sprintf("E%d", line), *r.StorageGB)
		}
		if r.Color != nil {
			f.SetCellValue(sheet, fmt.Sprintf("F%d", line), *r.Color)
		}
		f.SetCellValue(sheet, fmt.Sprintf("G%d", line), r.Grade)
		f.SetCellValue(sheet, fmt.Sprintf("H%d", line), r.Status)
		f.SetCellValue(sheet, fmt.Sprintf("I%d", line), r.ReceivedAt.Format("2006-01-02 15:04:05"))
	}

	if err := f.SetColWidth(sheet, "A", "A", 20); err != nil {
		return err
	}
	return f.Write(w)
}
