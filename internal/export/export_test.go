package export

import (
	"bytes"
	"testing"

	"ContestScoreAPI/internal/results"

	"github.com/xuri/excelize/v2"
)

func TestResultsXLSX(t *testing.T) {
	res := &results.ContestResults{
		Categories: []results.CategoryResult{
			{
				CategoryName: "Heifers",
				Submissions: []results.SubmissionResult{
					{Rank: 1, Title: "Daisy", ParticipantName: "Ana", TotalScore: 70, CriteriaScores: []results.CriteriaScore{
						{CriteriaName: "A", Average: 85}, {CriteriaName: "B", Average: 40},
					}},
					{Rank: 2, Title: "Luna", ParticipantName: "Eva", TotalScore: 50, CriteriaScores: []results.CriteriaScore{
						{CriteriaName: "B", Average: 50},
					}},
				},
			},
			{CategoryName: "Bulls/Steers", Submissions: []results.SubmissionResult{{Rank: 1, Title: "Toro"}}},
		},
	}

	data, err := ResultsXLSX(res)
	if err != nil {
		t.Fatalf("ResultsXLSX: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != "Heifers" || sheets[1] != "Bulls_Steers" {
		t.Fatalf("sheets = %v", sheets)
	}

	rows, err := f.GetRows("Heifers")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %v", rows)
	}
	wantHeader := []string{"Rank", "Title", "Participant", "Total score", "A", "B"}
	for i, h := range wantHeader {
		if rows[0][i] != h {
			t.Errorf("header[%d] = %q, want %q", i, rows[0][i], h)
		}
	}
	if rows[1][1] != "Daisy" || rows[1][4] != "85" || rows[1][5] != "40" {
		t.Errorf("first row = %v", rows[1])
	}
	if rows[2][1] != "Luna" || rows[2][5] != "50" {
		t.Errorf("second row = %v", rows[2])
	}
}

func TestSheetNameUnique(t *testing.T) {
	used := map[string]int{}
	a := sheetName("Heifers", used)
	b := sheetName("heifers", used)
	if a == b {
		t.Errorf("duplicate sheet names %q", a)
	}
	long := sheetName("A category name that is far too long for a sheet", used)
	if len([]rune(long)) > maxSheetName {
		t.Errorf("sheet name %q longer than %d", long, maxSheetName)
	}
}
