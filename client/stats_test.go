package client

import "testing"

func TestSummarize(t *testing.T) {
	rows := []Request{
		{Status: "pending", Priority: "medium"},
		{Status: "pending", Priority: "urgent"},
		{Status: "approved", Priority: "high"},
		{Status: "fulfilled", Priority: "urgent"},
		{Status: "rejected", Priority: "low"},
	}

	stats := Summarize(rows)
	if stats.Total != 5 {
		t.Fatalf("invalid total %d", stats.Total)
	}
	if stats.Pending != 2 {
		t.Fatalf("invalid pending %d", stats.Pending)
	}
	if stats.Fulfilled != 1 {
		t.Fatalf("invalid fulfilled %d", stats.Fulfilled)
	}
	// Urgent counts by priority regardless of status.
	if stats.Urgent != 2 {
		t.Fatalf("invalid urgent %d", stats.Urgent)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	stats := Summarize(nil)
	if stats != (DashboardStats{}) {
		t.Fatalf("expected zero stats, got %+v", stats)
	}
}
