package client

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestWriteCSV(t *testing.T) {
	requestedAt := time.Date(2026, 8, 14, 9, 30, 0, 0, time.UTC)
	notes := "pour on friday"
	rows := []Request{
		{
			Id:              uuid.New(),
			MaterialName:    "Cement",
			Quantity:        12.5,
			Unit:            "bags",
			Priority:        "high",
			Status:          "pending",
			RequestedByName: "Alice Chen",
			RequestedAt:     requestedAt,
			Notes:           &notes,
		},
		{
			Id:              uuid.New(),
			MaterialName:    "Rebar",
			Quantity:        100,
			Unit:            "kg",
			Priority:        "medium",
			Status:          "fulfilled",
			RequestedByName: "Personnel",
			RequestedAt:     requestedAt.Add(-24 * time.Hour),
		},
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 records, got %v", lines)
	}
	if lines[0] != "Material,Quantity,Unit,Priority,Status,Requested By,Date,Notes" {
		t.Fatalf("invalid header: %v", lines[0])
	}
	if lines[1] != "Cement,12.5,bags,high,pending,Alice Chen,2026-08-14,pour on friday" {
		t.Fatalf("invalid first record: %v", lines[1])
	}
	if lines[2] != "Rebar,100,kg,medium,fulfilled,Personnel,2026-08-13," {
		t.Fatalf("invalid second record: %v", lines[2])
	}
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil); err != nil {
		t.Fatal(err)
	}

	if strings.TrimSpace(buf.String()) != "Material,Quantity,Unit,Priority,Status,Requested By,Date,Notes" {
		t.Fatalf("empty export should still contain the header, got '%v'", buf.String())
	}
}

func TestExportFileName(t *testing.T) {
	name := ExportFileName()
	if !strings.HasPrefix(name, "material_requests_") || !strings.HasSuffix(name, ".csv") {
		t.Fatalf("invalid export file name %v", name)
	}
	datePart := strings.TrimSuffix(strings.TrimPrefix(name, "material_requests_"), ".csv")
	if _, err := time.Parse("20060102", datePart); err != nil {
		t.Fatalf("file name should embed the date: %v", err)
	}
}
