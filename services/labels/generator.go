package labels

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"
)

// DeviceLabel is the text printed next to a device QR code.
type DeviceLabel struct {
	IMEI         string
	Manufacturer string
	ModelName    string
	StorageGB    *int
	Color        *string
	Grade        string
	PoNumber     string
}

type SheetConfig struct {
	Cols       int
	Rows       int
	MarginTop  float64
	MarginLeft float64
	GapX       float64
	GapY       float64
}

// DefaultSheet is a 3 x 8 A4 label sheet.
var DefaultSheet = SheetConfig{Cols: 3, Rows: 8, MarginTop: 10, MarginLeft: 7, GapX: 2.5, GapY: 0}

// GenerateDeviceLabelsPDF lays out one label per device with the IMEI encoded as a QR code.
func GenerateDeviceLabelsPDF(cfg SheetConfig, devices []DeviceLabel) ([]byte, error) {
	if cfg.Cols <= 0 || cfg.Rows <= 0 {
		return nil, fmt.Errorf("label sheet needs at least one row and column")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetFont("Arial", "", 8)

	pageWidth, pageHeight := 210.0, 297.0
	labelW := (pageWidth - cfg.MarginLeft*2 - float64(cfg.Cols-1)*cfg.GapX) / float64(cfg.Cols)
	labelH := (pageHeight - cfg.MarginTop*2 - float64(cfg.Rows-1)*cfg.GapY) / float64(cfg.Rows)
	perPage := cfg.Cols * cfg.Rows

	if len(devices) == 0 {
		pdf.AddPage()
	}

	for i, d := range devices {
		if i%perPage == 0 {
			pdf.AddPage()
		}

		onPage := i % perPage
		x := cfg.MarginLeft + float64(onPage%cfg.Cols)*(labelW+cfg.GapX)
		y := cfg.MarginTop + float64(onPage/cfg.Cols)*(labelH+cfg.GapY)

		png, err := qrcode.Encode(d.IMEI, qrcode.Medium, 256)
		if err != nil {
			return nil, fmt.Errorf("qr for %s: %w", d.IMEI, err)
		}

		imgName := fmt.Sprintf("qr_%d", i)
		opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
		pdf.RegisterImageOptionsReader(imgName, opts, bytes.NewReader(png))

		qrSize := labelH * 0.8
		if qrSize > labelW/2 {
			qrSize = labelW / 2
		}
		pdf.ImageOptions(imgName, x+1, y+(labelH-qrSize)/2, qrSize, qrSize, false, opts, 0, "")

		textX := x + qrSize + 2
		textW := labelW - qrSize - 3
		pdf.SetXY(textX, y+3)
		pdf.SetFont("Arial", "B", 8)
		pdf.CellFormat(textW, 4, d.Manufacturer+" "+d.ModelName, "", 2, "L", false, 0, "")
		pdf.SetFont("Arial", "", 7)
		pdf.CellFormat(textW, 4, d.IMEI, "", 2, "L", false, 0, "")
		if spec := specLine(d); spec != "" {
			pdf.CellFormat(textW, 4, spec, "", 2, "L", false, 0, "")
		}
		if d.PoNumber != "" {
			pdf.CellFormat(textW, 4, d.PoNumber, "", 2, "L", false, 0, "")
		}
	}

	if err := pdf.Error(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func specLine(d DeviceLabel) string {
	line := ""
	add := func(s string) {
		if line != "" {
			line += " / "
		}
		line += s
	}
	if d.StorageGB != nil {
		add(fmt.Sprintf("%dGB", *d.StorageGB))
	}
	if d.Color != nil && *d.Color != "" {
		add(*d.Color)
	}
	if d.Grade != "" {
		add("Grade " + d.Grade)
	}
	return line
}
