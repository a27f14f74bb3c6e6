// Package export renders a translated recipe as a spreadsheet.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/dasmlab/receitas/pkg/service"
)

const sheetName = "Receita"

// WriteRecipeSheet writes detail as an .xlsx workbook to w.
// Column A holds labels, column B values; ingredients and steps get one row each.
func WriteRecipeSheet(w io.Writer, detail *service.RecipeDetail) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	row := 1
	set := func(label string, value any) error {
		if err := f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), label); err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), value); err != nil {
			return err
		}
		row++
		return nil
	}

	header := []struct {
		label string
		value string
	}{
		{"Receita", detail.Name},
		{"Nome original", detail.OriginalName},
		{"Categoria", detail.Category},
		{"Origem", detail.Area},
		{"Tags", detail.Tags},
		{"Imagem", detail.Thumbnail},
	}
	for _, h := range header {
		if err := set(h.label, h.value); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	row++
	if err := set("Ingredientes", len(detail.Ingredients)); err != nil {
		return fmt.Errorf("write ingredients: %w", err)
	}
	for _, ing := range detail.Ingredients {
		if err := set("", ing); err != nil {
			return fmt.Errorf("write ingredients: %w", err)
		}
	}

	row++
	if err := set("Modo de preparo", len(detail.InstructionSteps)); err != nil {
		return fmt.Errorf("write steps: %w", err)
	}
	for i, step := range detail.InstructionSteps {
		if err := set(fmt.Sprintf("%d", i+1), step); err != nil {
			return fmt.Errorf("write steps: %w", err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	if err := f.SetColStyle(sheetName, "A", bold); err != nil {
		return fmt.Errorf("set style: %w", err)
	}
	if err := f.SetColWidth(sheetName, "B", "B", 80); err != nil {
		return fmt.Errorf("set width: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
