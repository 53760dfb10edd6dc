package export

import (
	"bytes"
	"fmt"
	"strings"

	"ContestScoreAPI/internal/results"

	"github.com/xuri/excelize/v2"
)

const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const maxSheetName = 31

var baseHeader = []any{"Rank", "Title", "Participant", "Total score"}

// ResultsXLSX renders contest results as a workbook with one sheet per category.
// Each sheet lists the ranked entries and one column per criterion average.
func ResultsXLSX(res *results.ContestResults) ([]byte, error) {
	op := "export.ResultsXLSX"

	f := excelize.NewFile()
	defer f.Close()

	if len(res.Categories) == 0 {
		if err := f.SetSheetRow("Sheet1", "A1", &[]any{"No judged entries"}); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return write(f, op)
	}

	used := make(map[string]int)
	for i, cat := range res.Categories {
		name := sheetName(cat.CategoryName, used)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if err := writeCategory(f, name, cat); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	f.SetActiveSheet(0)
	return write(f, op)
}

func writeCategory(f *excelize.File, sheet string, cat results.CategoryResult) error {
	var columns []string
	index := make(map[string]int)
	for _, s := range cat.Submissions {
		for _, cs := range s.CriteriaScores {
			if _, ok := index[cs.CriteriaName]; !ok {
				index[cs.CriteriaName] = len(columns)
				columns = append(columns, cs.CriteriaName)
			}
		}
	}

	header := append([]any{}, baseHeader...)
	for _, c := range columns {
		header = append(header, c)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	for i, s := range cat.Submissions {
		row := make([]any, len(baseHeader)+len(columns))
		row[0] = s.Rank
		row[1] = s.Title
		row[2] = s.ParticipantName
		row[3] = s.TotalScore
		for _, cs := range s.CriteriaScores {
			row[len(baseHeader)+index[cs.CriteriaName]] = cs.Average
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

// sheetName makes a valid, unique worksheet name.
func sheetName(name string, used map[string]int) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" {
		name = "Category"
	}
	if r := []rune(name); len(r) > maxSheetName {
		name = string(r[:maxSheetName])
	}

	base := name
	for used[strings.ToLower(name)] > 0 {
		used[strings.ToLower(base)]++
		suffix := fmt.Sprintf(" (%d)", used[strings.ToLower(base)])
		r := []rune(base)
		if len(r)+len([]rune(suffix)) > maxSheetName {
			r = r[:maxSheetName-len([]rune(suffix))]
		}
		name = string(r) + suffix
	}
	used[strings.ToLower(name)]++
	return name
}

func write(f *excelize.File, op string) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("%s: write: %w", op, err)
	}
	return buf.Bytes(), nil
}
