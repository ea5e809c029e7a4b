package export

import (
	"bytes"

	"github.com/xuri/excelize/v2"
	"github.com/zoxknez/bidon/fuel"
)

// BuildReportXLSX renders a bundle as a workbook.
func BuildReportXLSX(b fuel.Bundle) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	summary := "summary"
	f.SetSheetName("Sheet1", summary)
	_ = f.SetCellValue(summary, "A1", "Fuel report")
	_ = f.SetCellValue(summary, "A3", "Period")
	_ = f.SetCellValue(summary, "B3", rangeLabel(b.Range))
	_ = f.SetCellValue(summary, "A4", "Generated")
	_ = f.SetCellValue(summary, "B4", b.GeneratedAt.Format("2006-01-02 15:04"))
	_ = f.SetCellValue(summary, "A5", "Purchased (L)")
	_ = f.SetCellValue(summary, "B5", b.Costs.TotalLiters.InexactFloat64())
	_ = f.SetCellValue(summary, "A6", "Purchase cost")
	_ = f.SetCellValue(summary, "B6", b.Costs.TotalPrice.InexactFloat64())
	_ = f.SetCellValue(summary, "A7", "Average price per liter")
	_ = f.SetCellValue(summary, "B7", b.Costs.AvgPricePerLiter.InexactFloat64())

	vehicles := [][]any{}
	for _, v := range b.Vehicles {
		vehicles = append(vehicles, []any{v.VehicleName, v.Registration, v.TotalLiters.InexactFloat64(), v.TotalPrice.InexactFloat64(), v.Count})
	}
	if err := writeTable(f, "vehicles", []string{"Vehicle", "Registration", "Liters", "Cost", "Transactions"}, vehicles); err != nil {
		return nil, err
	}

	sectors := [][]any{}
	for _, s := range b.Sectors {
		sectors = append(sectors, []any{sectorLabel(s), s.TotalLiters.InexactFloat64(), s.TotalPrice.InexactFloat64(), s.Count})
	}
	if err := writeTable(f, "sectors", []string{"Sector", "Liters", "Cost", "Transactions"}, sectors); err != nil {
		return nil, err
	}

	containers := [][]any{}
	for _, c := range b.Containers {
		containers = append(containers, []any{
			c.ContainerName, c.CurrentLevel.InexactFloat64(),
			c.AddedLiters.InexactFloat64(), c.AddedPrice.InexactFloat64(),
			c.DispensedLiters.InexactFloat64(), c.DispensedPrice.InexactFloat64(),
		})
	}
	if err := writeTable(f, "containers", []string{"Container", "Level (L)", "Added (L)", "Added cost", "Dispensed (L)", "Dispensed cost"}, containers); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeTable(f *excelize.File, sheet string, header []string, rows [][]any) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	for i, h := range header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		_ = f.SetCellValue(sheet, cell, h)
	}
	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	return nil
}
