package exports

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/fdg312/fitclub/internal/nutricalc"
	"github.com/fdg312/fitclub/internal/nutritionplans"
	"github.com/jung-kurt/gofpdf"
)

// Render renders a plan with its totals in the given format.
func Render(plan *nutritionplans.PlanDTO, format string) ([]byte, error) {
	switch format {
	case FormatPDF:
		return renderPDF(plan)
	case FormatCSV:
		return renderCSV(plan)
	default:
		return nil, ErrInvalidFormat
	}
}

var csvHeader = []string{"day", "meal_number", "meal", "product", "quantity_g", "calories", "protein_g", "carbs_g", "fat_g"}

// renderCSV writes one row per item, a total row per day and a final
// average row. Total rows leave meal and product columns empty.
func renderCSV(plan *nutritionplans.PlanDTO) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}

	for di, d := range plan.Days {
		day := strconv.Itoa(d.DayNumber)
		for _, m := range d.Meals {
			for _, it := range m.Items {
				row := []string{day, strconv.Itoa(m.MealNumber), m.Name, it.ProductName, nutricalc.FormatGrams(it.Quantity)}
				if err := w.Write(append(row, macroCells(it.Nutrition)...)); err != nil {
					return nil, err
				}
			}
		}
		if di < len(plan.Totals.Days) {
			row := []string{day, "", "day_total", "", ""}
			if err := w.Write(append(row, macroCells(plan.Totals.Days[di].Totals)...)); err != nil {
				return nil, err
			}
		}
	}

	row := []string{"", "", "average_per_day", "", ""}
	if err := w.Write(append(row, macroCells(plan.Totals.AveragePerDay)...)); err != nil {
		return nil, err
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// macroCells formats kcal as whole numbers and grams with one decimal.
func macroCells(m nutricalc.Macros) []string {
	return []string{
		nutricalc.FormatCalories(m.Calories),
		nutricalc.FormatGrams(m.Protein),
		nutricalc.FormatGrams(m.Carbs),
		nutricalc.FormatGrams(m.Fat),
	}
}

func macroLine(label string, m nutricalc.Macros) string {
	c := macroCells(m)
	return fmt.Sprintf("%s: %s kcal, protein %s g, carbs %s g, fat %s g", label, c[0], c[1], c[2], c[3])
}

// renderPDF renders an A4 document with a table per day. Core fonts only
// cover cp1252, so text goes through the translator first.
func renderPDF(plan *nutritionplans.PlanDTO) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	const font = "Arial"

	pdf.AddPage()
	pdf.SetFont(font, "B", 16)
	pdf.Cell(0, 10, tr(plan.Name))
	pdf.Ln(10)

	if plan.Description != "" {
		pdf.SetFont(font, "", 10)
		pdf.MultiCell(0, 5, tr(plan.Description), "", "L", false)
		pdf.Ln(4)
	}

	avg := plan.Totals.AveragePerDay
	pdf.SetFont(font, "", 11)
	pdf.Cell(0, 6, macroLine("Average per day", avg))
	pdf.Ln(10)

	widths := []float64{60, 20, 22, 22, 22, 22}
	headers := []string{"Product", "Qty, g", "kcal", "Protein", "Carbs", "Fat"}

	for di, d := range plan.Days {
		pdf.SetFont(font, "B", 13)
		pdf.Cell(0, 8, fmt.Sprintf("Day %d", d.DayNumber))
		pdf.Ln(8)

		for _, m := range d.Meals {
			pdf.SetFont(font, "B", 10)
			pdf.Cell(0, 6, tr(fmt.Sprintf("%d. %s", m.MealNumber, m.Name)))
			pdf.Ln(6)

			pdf.SetFont(font, "", 8)
			for i, h := range headers {
				pdf.CellFormat(widths[i], 6, h, "1", 0, "C", false, 0, "")
			}
			pdf.Ln(-1)

			for _, it := range m.Items {
				cells := append([]string{tr(it.ProductName), nutricalc.FormatGrams(it.Quantity)}, macroCells(it.Nutrition)...)
				for i, c := range cells {
					align := "R"
					if i == 0 {
						align = "L"
					}
					pdf.CellFormat(widths[i], 6, c, "1", 0, align, false, 0, "")
				}
				pdf.Ln(-1)
			}
			pdf.Ln(2)
		}

		if di < len(plan.Totals.Days) {
			t := plan.Totals.Days[di].Totals
			pdf.SetFont(font, "I", 9)
			pdf.Cell(0, 6, macroLine("Day total", t))
			pdf.Ln(10)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}
