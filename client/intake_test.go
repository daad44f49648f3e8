package client

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestIntakeFormValidation(t *testing.T) {
	invalid := []IntakeForm{
		{MaterialName: "C", Quantity: 10},
		{MaterialName: "   ", Quantity: 10},
		{MaterialName: "Cement", Quantity: 0},
		{MaterialName: "Cement", Quantity: -1},
		{MaterialName: "Cement", Quantity: 10, Unit: "tons"},
		{MaterialName: "Cement", Quantity: 10, Priority: "critical"},
	}

	for _, form := range invalid {
		if _, err := form.Validate(); err == nil {
			t.Fatalf("expected validation failure for %+v", form)
		}
	}

	form := IntakeForm{MaterialName: "  Cement  ", Quantity: 10, Unit: "bags", Priority: "urgent", Notes: "  friday  "}
	req, err := form.Validate()
	if err != nil {
		t.Fatal(err)
	}
	if req.MaterialName != "Cement" {
		t.Fatalf("material name should be trimmed, got '%v'", req.MaterialName)
	}
	if req.Notes == nil || *req.Notes != "friday" {
		t.Fatalf("notes should be trimmed, got %v", req.Notes)
	}

	// Empty unit and priority are allowed, the backend applies defaults.
	minimal := IntakeForm{MaterialName: "Cement", Quantity: 10}
	req, err = minimal.Validate()
	if err != nil {
		t.Fatal(err)
	}
	if req.Unit != "" || req.Priority != "" || req.Notes != nil {
		t.Fatalf("unset fields should stay empty, got %+v", req)
	}
}

func TestSanitizeScan(t *testing.T) {
	form := SanitizeScan(ScannedFields{
		MaterialName: " Portland Cement ",
		Quantity:     -3,
		Unit:         "TONS",
		Priority:     "Critical",
		Notes:        " deliver friday ",
	})

	if form.MaterialName != "Portland Cement" {
		t.Fatalf("invalid material name '%v'", form.MaterialName)
	}
	if form.Unit != "pieces" {
		t.Fatalf("unknown unit should fall back to pieces, got %v", form.Unit)
	}
	if form.Priority != "medium" {
		t.Fatalf("unknown priority should fall back to medium, got %v", form.Priority)
	}
	if form.Quantity != 1 {
		t.Fatalf("non positive quantity should fall back to 1, got %v", form.Quantity)
	}
	if form.Notes != "deliver friday" {
		t.Fatalf("invalid notes '%v'", form.Notes)
	}

	form = SanitizeScan(ScannedFields{MaterialName: "Rebar", Quantity: 20, Unit: "KG", Priority: "URGENT"})
	if form.Unit != "kg" || form.Priority != "urgent" || form.Quantity != 20 {
		t.Fatalf("valid values should be normalized, not replaced: %+v", form)
	}
}

func TestIntakeFlowCreate(t *testing.T) {
	_, cache, _ := requestCacheFixture(t)

	flow := NewIntakeFlow(cache)
	flow.ApplyScan(ScannedFields{MaterialName: "Cement", Quantity: 10, Unit: "bags", Priority: "high"})

	if flow.Editing() {
		t.Fatal("scan should not put the flow into edit mode")
	}

	created, err := flow.Submit(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if created.MaterialName != "Cement" || created.Status != "pending" {
		t.Fatalf("invalid created request %v", created)
	}

	if flow.Form.MaterialName != "" || flow.Editing() {
		t.Fatal("flow should reset after submit")
	}
}

func TestIntakeFlowEdit(t *testing.T) {
	gateway, cache, companyId := requestCacheFixture(t)
	requestId := uuid.New()
	gateway.requests = []Request{{Id: requestId, CompanyId: companyId, MaterialName: "Cement", Quantity: 10, Unit: "bags", Priority: "medium", Status: "pending"}}

	if _, err := cache.List(context.Background()); err != nil {
		t.Fatal(err)
	}

	flow := NewIntakeFlow(cache)
	flow.StartEdit(gateway.requests[0])
	if !flow.Editing() {
		t.Fatal("expected edit mode")
	}

	flow.Form.Quantity = 25

	saved, err := flow.Submit(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if saved.Id != requestId || saved.Quantity != 25 {
		t.Fatalf("edit should update the existing request, got %v", saved)
	}

	rows, err := cache.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("edit must not create a new request: %v", rows)
	}
}
