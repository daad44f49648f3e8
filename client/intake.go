package client

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

var validUnits = []string{"pieces", "kg", "bags", "m", "m2", "m3", "liters"}

var validPriorities = []string{"low", "medium", "high", "urgent"}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

// IntakeForm holds the fields of the new request form.
type IntakeForm struct {
	MaterialName string
	Quantity     float64
	Unit         string
	Priority     string
	Notes        string
}

// Validate checks the form and produces the request payload. Validation here
// mirrors the backend so the user gets feedback without a round trip.
func (f *IntakeForm) Validate() (NewRequest, error) {
	name := strings.TrimSpace(f.MaterialName)
	if len(name) < 2 {
		return NewRequest{}, errors.New("material name must be at least 2 characters")
	}
	if f.Quantity <= 0 {
		return NewRequest{}, errors.New("quantity must be greater than zero")
	}
	if f.Unit != "" && !contains(validUnits, f.Unit) {
		return NewRequest{}, errors.New("invalid unit: " + f.Unit)
	}
	if f.Priority != "" && !contains(validPriorities, f.Priority) {
		return NewRequest{}, errors.New("invalid priority: " + f.Priority)
	}

	req := NewRequest{
		MaterialName: name,
		Quantity:     f.Quantity,
		Unit:         f.Unit,
		Priority:     f.Priority,
	}
	if notes := strings.TrimSpace(f.Notes); notes != "" {
		req.Notes = &notes
	}
	return req, nil
}

// ScannedFields is the JSON shape the document scanner extracts.
type ScannedFields struct {
	MaterialName string  `json:"material_name"`
	Quantity     float64 `json:"quantity"`
	Unit         string  `json:"unit"`
	Priority     string  `json:"priority"`
	Notes        string  `json:"notes"`
}

// SanitizeScan coerces scanner output into a usable form. Models return
// values outside the enums often enough that anything unrecognized falls back
// to a safe default rather than failing the scan.
func SanitizeScan(fields ScannedFields) IntakeForm {
	form := IntakeForm{
		MaterialName: strings.TrimSpace(fields.MaterialName),
		Quantity:     fields.Quantity,
		Unit:         strings.ToLower(strings.TrimSpace(fields.Unit)),
		Priority:     strings.ToLower(strings.TrimSpace(fields.Priority)),
		Notes:        strings.TrimSpace(fields.Notes),
	}

	if !contains(validUnits, form.Unit) {
		form.Unit = "pieces"
	}
	if !contains(validPriorities, form.Priority) {
		form.Priority = "medium"
	}
	if form.Quantity <= 0 {
		form.Quantity = 1
	}
	return form
}

// IntakeFlow drives the request form through scan, edit, and submit. The same
// flow serves creating a new request and editing an existing one.
type IntakeFlow struct {
	requests *RequestCache

	Form    IntakeForm
	editing *uuid.UUID
}

func NewIntakeFlow(requests *RequestCache) *IntakeFlow {
	return &IntakeFlow{requests: requests}
}

// StartEdit loads an existing request into the form.
func (f *IntakeFlow) StartEdit(req Request) {
	notes := ""
	if req.Notes != nil {
		notes = *req.Notes
	}
	f.Form = IntakeForm{
		MaterialName: req.MaterialName,
		Quantity:     req.Quantity,
		Unit:         req.Unit,
		Priority:     req.Priority,
		Notes:        notes,
	}
	requestId := req.Id
	f.editing = &requestId
}

// ApplyScan fills the form from scanner output, overwriting current values.
func (f *IntakeFlow) ApplyScan(fields ScannedFields) {
	f.Form = SanitizeScan(fields)
}

func (f *IntakeFlow) Editing() bool {
	return f.editing != nil
}

// Submit validates the form and either creates a new request or saves the
// edit, depending on how the flow was started.
func (f *IntakeFlow) Submit(ctx context.Context) (Request, error) {
	payload, err := f.Form.Validate()
	if err != nil {
		return Request{}, err
	}

	if f.editing != nil {
		update := RequestUpdate{
			MaterialName: &payload.MaterialName,
			Quantity:     &payload.Quantity,
			Notes:        payload.Notes,
		}
		if payload.Unit != "" {
			update.Unit = &payload.Unit
		}
		if payload.Priority != "" {
			update.Priority = &payload.Priority
		}

		saved, err := f.requests.Update(ctx, *f.editing, update)
		if err != nil {
			return Request{}, err
		}
		f.reset()
		return saved, nil
	}

	created, err := f.requests.Create(ctx, payload)
	if err != nil {
		return Request{}, err
	}
	f.reset()
	return created, nil
}

func (f *IntakeFlow) reset() {
	f.Form = IntakeForm{}
	f.editing = nil
}
