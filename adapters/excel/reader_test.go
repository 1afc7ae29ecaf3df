package excel

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"gofunnel/domain/core"

	"github.com/xuri/excelize/v2"
)

func TestRead_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "observations.csv")
	content := "group,numerator,denominator\nA,10,100\nB,25,200\nA,5,50\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	obs, err := NewObservationReader().Read(context.Background(), path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if len(obs) != 3 {
		t.Fatalf("expected 3 observations, got %d", len(obs))
	}
	if obs[0].Group != "A" || obs[0].Numerator != 10 || obs[0].Denominator != 100 {
		t.Errorf("first observation wrong: %+v", obs[0])
	}
	if obs[1].Group != "B" || obs[1].Numerator != 25 {
		t.Errorf("second observation wrong: %+v", obs[1])
	}
}

func TestRead_CSVPositionalColumns(t *testing.T) {
	// Without recognised header names the first three columns are
	// numerator, denominator, group in that order
	path := filepath.Join(t.TempDir(), "bare.csv")
	content := "n,d,g\n4,8,east\n6,12,west\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	obs, err := NewObservationReader().Read(context.Background(), path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if obs[0].Numerator != 4 || obs[0].Denominator != 8 || obs[0].Group != "east" {
		t.Errorf("positional parse wrong: %+v", obs[0])
	}
}

func TestRead_Excel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "observations.xlsx")

	f := excelize.NewFile()
	rows := [][]interface{}{
		{"group", "numerator", "denominator"},
		{"A", 12, 120},
		{"B", 30, 150},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("build fixture: %v", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save fixture: %v", err)
	}

	obs, err := NewObservationReader().Read(context.Background(), path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(obs) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(obs))
	}
	if obs[1].Group != "B" || obs[1].Numerator != 30 || obs[1].Denominator != 150 {
		t.Errorf("second observation wrong: %+v", obs[1])
	}
}

func TestRead_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := NewObservationReader().Read(context.Background(), "does-not-exist.csv")
		if !core.IsInputError(err) {
			t.Errorf("expected input error, got %v", err)
		}
	})

	t.Run("non-numeric cell", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.csv")
		os.WriteFile(path, []byte("numerator,denominator,group\nten,100,A\n"), 0o644)

		_, err := NewObservationReader().Read(context.Background(), path)
		if !core.IsInputError(err) {
			t.Errorf("expected input error, got %v", err)
		}
	})

	t.Run("header only", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.csv")
		os.WriteFile(path, []byte("numerator,denominator,group\n"), 0o644)

		_, err := NewObservationReader().Read(context.Background(), path)
		if !core.IsInputError(err) {
			t.Errorf("expected input error, got %v", err)
		}
	})
}
