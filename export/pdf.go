package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/zoxknez/bidon/fuel"
)

// BuildReportPDF renders a bundle as a simple A4 document.
func BuildReportPDF(b fuel.Bundle) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Fuel report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Period: %s", rangeLabel(b.Range)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", b.GeneratedAt.Format("2006-01-02 15:04")))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Purchased: %s L for %s (avg %s/L)",
		b.Costs.TotalLiters.StringFixed(2), b.Costs.TotalPrice.StringFixed(2), b.Costs.AvgPricePerLiter.StringFixed(2)))
	pdf.Ln(10)

	vehicles := [][]string{}
	for _, v := range b.Vehicles {
		vehicles = append(vehicles, []string{tr(v.VehicleName), tr(v.Registration), v.TotalLiters.StringFixed(2), v.TotalPrice.StringFixed(2), fmt.Sprint(v.Count)})
	}
	table(pdf, "By vehicle", []string{"Vehicle", "Registration", "Liters", "Cost", "Count"}, []float64{50, 35, 30, 35, 20}, vehicles)

	sectors := [][]string{}
	for _, s := range b.Sectors {
		sectors = append(sectors, []string{tr(sectorLabel(s)), s.TotalLiters.StringFixed(2), s.TotalPrice.StringFixed(2), fmt.Sprint(s.Count)})
	}
	table(pdf, "By sector", []string{"Sector", "Liters", "Cost", "Count"}, []float64{70, 35, 35, 20}, sectors)

	containers := [][]string{}
	for _, c := range b.Containers {
		containers = append(containers, []string{
			tr(c.ContainerName), c.CurrentLevel.StringFixed(2),
			c.AddedLiters.StringFixed(2), c.DispensedLiters.StringFixed(2), c.DispensedPrice.StringFixed(2),
		})
	}
	table(pdf, "By container", []string{"Container", "Level", "Added", "Dispensed", "Cost"}, []float64{50, 30, 30, 30, 30}, containers)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func table(pdf *gofpdf.Fpdf, title string, header []string, widths []float64, rows [][]string) {
	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(0, 7, title)
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	for i, h := range header {
		pdf.CellFormat(widths[i], 6, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	for _, row := range rows {
		for i, v := range row {
			align := "R"
			if i == 0 {
				align = "L"
			}
			pdf.CellFormat(widths[i], 6, v, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(6)
}
