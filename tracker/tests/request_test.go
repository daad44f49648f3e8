package tests

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"sitetrack/tracker/schema"
)

func joinedUser(t *testing.T, env *testEnv, name string, role string) client {
	user, err := env.newUser(name)
	if err != nil {
		t.Fatal(err)
	}

	var rolePtr *string
	if role != "" {
		rolePtr = &role
	}
	if err := user.setCompany(schema.DemoCompanyId, rolePtr); err != nil {
		t.Fatal(err)
	}
	return user
}

func TestCreateAndListRequests(t *testing.T) {
	env := setupTestEnv(t)

	user, err := env.newUser("abc")
	if err != nil {
		t.Fatal(err)
	}

	_, err = user.createRequest(map[string]interface{}{"material_name": "Cement", "quantity": 10})
	if err == nil || !strings.Contains(err.Error(), "Invalid Workspace ID") {
		t.Fatalf("creating without a workspace should fail, got %v", err)
	}

	requests, err := user.listRequests()
	if err != nil {
		t.Fatal(err)
	}
	if len(requests) != 0 {
		t.Fatalf("expected empty list without a workspace, got %v", requests)
	}

	if err := user.setCompany(schema.DemoCompanyId, nil); err != nil {
		t.Fatal(err)
	}

	created, err := user.createRequest(map[string]interface{}{"material_name": "Cement", "quantity": 10})
	if err != nil {
		t.Fatal(err)
	}
	if created.MaterialName != "Cement" || created.Quantity != 10 {
		t.Fatalf("invalid created request %v", created)
	}
	if created.Unit != "pieces" || created.Priority != schema.PriorityMedium || created.Status != schema.StatusPending {
		t.Fatalf("expected defaults pieces/medium/pending, got %v", created)
	}
	if created.RequestedByName != "abc" {
		t.Fatalf("expected requester name 'abc', got %v", created.RequestedByName)
	}
	if created.CompanyId != schema.DemoCompanyId {
		t.Fatalf("request should belong to the demo workspace: %v", created)
	}

	for _, name := range []string{"Rebar", "Sand"} {
		_, err := user.createRequest(map[string]interface{}{"material_name": name, "quantity": 5, "unit": "kg", "priority": "high"})
		if err != nil {
			t.Fatal(err)
		}
	}

	requests, err = user.listRequests()
	if err != nil {
		t.Fatal(err)
	}
	if len(requests) != 3 {
		t.Fatalf("expected 3 requests, got %d", len(requests))
	}
	for i := 1; i < len(requests); i++ {
		if requests[i].RequestedAt.After(requests[i-1].RequestedAt) {
			t.Fatalf("requests should be ordered newest first: %v", requests)
		}
	}

	outsider, err := env.newUser("xyz")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := outsider.createCompany("Other Co"); err != nil {
		t.Fatal(err)
	}

	requests, err = outsider.listRequests()
	if err != nil {
		t.Fatal(err)
	}
	if len(requests) != 0 {
		t.Fatalf("requests must not leak across workspaces: %v", requests)
	}
}

func TestRequestValidation(t *testing.T) {
	env := setupTestEnv(t)

	user := joinedUser(t, env, "abc", "")

	invalid := []map[string]interface{}{
		{"material_name": "C", "quantity": 10},
		{"material_name": "  C  ", "quantity": 10},
		{"material_name": "Cement", "quantity": 0},
		{"material_name": "Cement", "quantity": -2},
		{"material_name": "Cement", "quantity": 10, "unit": "tons"},
		{"material_name": "Cement", "quantity": 10, "priority": "critical"},
	}

	for _, body := range invalid {
		if _, err := user.createRequest(body); err == nil {
			t.Fatalf("expected validation failure for %v", body)
		}
	}

	created, err := user.createRequest(map[string]interface{}{
		"material_name": "  Cement  ", "quantity": 10, "unit": "bags", "priority": "urgent", "notes": "pour on friday",
	})
	if err != nil {
		t.Fatal(err)
	}
	if created.MaterialName != "Cement" {
		t.Fatalf("material name should be trimmed, got '%v'", created.MaterialName)
	}
	if created.Unit != "bags" || created.Priority != schema.PriorityUrgent {
		t.Fatalf("invalid created request %v", created)
	}
	if created.Notes == nil || *created.Notes != "pour on friday" {
		t.Fatalf("expected notes to be stored, got %v", created.Notes)
	}
}

func TestUpdateStatusPermissions(t *testing.T) {
	env := setupTestEnv(t)

	worker := joinedUser(t, env, "worker1", "")
	foreman := joinedUser(t, env, "foreman1", schema.RoleForeman)
	outsider, err := env.newUser("outsider")
	if err != nil {
		t.Fatal(err)
	}

	created, err := worker.createRequest(map[string]interface{}{"material_name": "Cement", "quantity": 10})
	if err != nil {
		t.Fatal(err)
	}

	_, err = worker.updateStatus(created.Id, schema.StatusApproved)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("requesters should not be able to change status, got %v", err)
	}

	_, err = outsider.updateStatus(created.Id, schema.StatusApproved)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("users outside the workspace should be forbidden, got %v", err)
	}

	_, err = foreman.updateStatus(created.Id, "done")
	if err == nil {
		t.Fatal("invalid status should be rejected")
	}

	updated, err := foreman.updateStatus(created.Id, schema.StatusApproved)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != schema.StatusApproved {
		t.Fatalf("expected approved status, got %v", updated.Status)
	}

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}
	updated, err = admin.updateStatus(created.Id, schema.StatusFulfilled)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != schema.StatusFulfilled {
		t.Fatalf("expected fulfilled status, got %v", updated.Status)
	}
}

func TestUpdateRequest(t *testing.T) {
	env := setupTestEnv(t)

	requester := joinedUser(t, env, "worker1", "")
	colleague := joinedUser(t, env, "worker2", "")

	created, err := requester.createRequest(map[string]interface{}{"material_name": "Cement", "quantity": 10})
	if err != nil {
		t.Fatal(err)
	}

	_, err = colleague.updateRequest(created.Id, map[string]interface{}{"quantity": 99})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("other workers should not be able to edit the request, got %v", err)
	}

	_, err = requester.updateRequest(created.Id, map[string]interface{}{"quantity": -1})
	if err == nil {
		t.Fatal("invalid quantity should be rejected")
	}

	updated, err := requester.updateRequest(created.Id, map[string]interface{}{"quantity": 25, "priority": "high"})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Quantity != 25 || updated.Priority != schema.PriorityHigh {
		t.Fatalf("invalid updated request %v", updated)
	}
	if updated.MaterialName != "Cement" || updated.Unit != "pieces" {
		t.Fatalf("unspecified fields should be unchanged: %v", updated)
	}
}

func TestRequestStats(t *testing.T) {
	env := setupTestEnv(t)

	user, err := env.newUser("abc")
	if err != nil {
		t.Fatal(err)
	}

	stats, err := user.stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 0 || stats.Pending != 0 || stats.Urgent != 0 || stats.Fulfilled != 0 {
		t.Fatalf("expected zero stats without a workspace, got %v", stats)
	}

	foreman := joinedUser(t, env, "foreman1", schema.RoleForeman)

	r1, err := foreman.createRequest(map[string]interface{}{"material_name": "Cement", "quantity": 10, "priority": "urgent"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := foreman.createRequest(map[string]interface{}{"material_name": "Rebar", "quantity": 5}); err != nil {
		t.Fatal(err)
	}
	if _, err := foreman.updateStatus(r1.Id, schema.StatusFulfilled); err != nil {
		t.Fatal(err)
	}

	stats, err = foreman.stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 2 || stats.Pending != 1 || stats.Fulfilled != 1 {
		t.Fatalf("invalid stats %v", stats)
	}
	if stats.Urgent != 1 {
		t.Fatalf("urgent should count by priority even when fulfilled, got %v", stats)
	}
}

func TestExportCsv(t *testing.T) {
	env := setupTestEnv(t)

	user := joinedUser(t, env, "abc", "")

	created, err := user.createRequest(map[string]interface{}{
		"material_name": "Cement", "quantity": 12.5, "unit": "bags", "priority": "high", "notes": "pour on friday",
	})
	if err != nil {
		t.Fatal(err)
	}

	content, err := user.exportCsv()
	if err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(content), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one record, got %v", lines)
	}
	if lines[0] != "Material,Quantity,Unit,Priority,Status,Requested By,Date,Notes" {
		t.Fatalf("invalid csv header: %v", lines[0])
	}

	expected := "Cement,12.5,bags,high,pending,abc," + created.RequestedAt.Format("2006-01-02") + ",pour on friday"
	if lines[1] != expected {
		t.Fatalf("invalid csv record: got %v, want %v", lines[1], expected)
	}
}

func TestRequesterNameFallback(t *testing.T) {
	env := setupTestEnv(t)

	user := joinedUser(t, env, "abc", "")

	if err := user.updateProfile(""); err != nil {
		t.Fatal(err)
	}

	created, err := user.createRequest(map[string]interface{}{"material_name": "Cement", "quantity": 10})
	if err != nil {
		t.Fatal(err)
	}
	if created.RequestedByName != "Personnel" {
		t.Fatalf("expected fallback requester name, got %v", created.RequestedByName)
	}
}

func TestRequestImage(t *testing.T) {
	env := setupTestEnv(t)

	user := joinedUser(t, env, "abc", "")

	created, err := user.createRequest(map[string]interface{}{"material_name": "Cement", "quantity": 10})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := user.downloadImage(created.Id); err == nil {
		t.Fatal("download should fail before an image is attached")
	}

	imageData := []byte("fake jpeg bytes")
	if err := user.uploadImage(created.Id, bytes.NewReader(imageData)); err != nil {
		t.Fatal(err)
	}

	requests, err := user.listRequests()
	if err != nil {
		t.Fatal(err)
	}
	if len(requests) != 1 || requests[0].ImageUrl == nil {
		t.Fatalf("expected image url on request: %v", requests)
	}

	downloaded, err := user.downloadImage(created.Id)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(downloaded, imageData) {
		t.Fatal("downloaded image does not match upload")
	}
}
