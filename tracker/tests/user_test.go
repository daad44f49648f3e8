package tests

import (
	"fmt"
	"strings"
	"testing"

	"sitetrack/tracker/schema"

	"github.com/google/uuid"
)

func TestSignupAndLogin(t *testing.T) {
	env := setupTestEnv(t)

	for i := 0; i < 5; i++ {
		name := fmt.Sprintf("Worker %d", i)
		email := fmt.Sprintf("worker%d@mail.com", i)
		password := fmt.Sprintf("worker%d_password", i)

		client := env.newClient()
		login, err := client.signup(name, email, password)
		if err != nil {
			t.Fatal(err)
		}

		_, err = client.signup(name, email, password)
		if err == nil {
			t.Fatal("duplicate signup should fail")
		}

		err = client.login(loginInfo{Email: "other@mail.com", Password: password})
		if err == nil {
			t.Fatal("login should fail with wrong email")
		}

		err = client.login(loginInfo{Email: email, Password: "password"})
		if err == nil {
			t.Fatal("login should fail with wrong password")
		}

		err = client.login(login)
		if err != nil {
			t.Fatal(err)
		}

		info, err := client.userInfo()
		if err != nil {
			t.Fatal(err)
		}
		if info.Email != email || info.Id.String() != client.userId || info.Admin {
			t.Fatalf("invalid info %v", info)
		}
	}
}

func TestNewUserProfile(t *testing.T) {
	env := setupTestEnv(t)

	user, err := env.newUser("abc")
	if err != nil {
		t.Fatal(err)
	}

	profile, err := user.profile()
	if err != nil {
		t.Fatal(err)
	}

	if profile.Id.String() != user.userId {
		t.Fatalf("profile id mismatch: %v", profile)
	}
	if profile.FullName == nil || *profile.FullName != "abc" {
		t.Fatalf("expected full name 'abc', got %v", profile.FullName)
	}
	if profile.Role != schema.RoleWorker {
		t.Fatalf("new users should default to worker role, got %v", profile.Role)
	}
	if profile.CompanyId != nil || profile.Companies != nil {
		t.Fatalf("new users should not have a workspace: %v", profile)
	}
}

func TestUpdateProfileName(t *testing.T) {
	env := setupTestEnv(t)

	user, err := env.newUser("abc")
	if err != nil {
		t.Fatal(err)
	}

	if err := user.updateProfile("Alice Chen"); err != nil {
		t.Fatal(err)
	}

	profile, err := user.profile()
	if err != nil {
		t.Fatal(err)
	}
	if profile.FullName == nil || *profile.FullName != "Alice Chen" {
		t.Fatalf("expected updated name, got %v", profile.FullName)
	}
}

func TestJoinWorkspace(t *testing.T) {
	env := setupTestEnv(t)

	user, err := env.newUser("abc")
	if err != nil {
		t.Fatal(err)
	}

	err = user.setCompany(uuid.New(), nil)
	if err == nil || !strings.Contains(err.Error(), "Invalid Workspace ID") {
		t.Fatalf("joining a nonexistent workspace should fail with the invalid workspace message, got %v", err)
	}

	if err := user.setCompany(schema.DemoCompanyId, nil); err != nil {
		t.Fatal(err)
	}

	profile, err := user.profile()
	if err != nil {
		t.Fatal(err)
	}
	if profile.CompanyId == nil || *profile.CompanyId != schema.DemoCompanyId {
		t.Fatalf("expected demo workspace assignment: %v", profile)
	}
	if profile.Role != schema.RoleWorker {
		t.Fatalf("plain join should keep the worker role, got %v", profile.Role)
	}
	if profile.Companies == nil || profile.Companies.Name != "Demo Company" {
		t.Fatalf("expected joined workspace name in profile: %v", profile.Companies)
	}
}

func TestJoinWorkspaceWithRole(t *testing.T) {
	env := setupTestEnv(t)

	user, err := env.newUser("abc")
	if err != nil {
		t.Fatal(err)
	}

	badRole := "supervisor"
	err = user.setCompany(schema.DemoCompanyId, &badRole)
	if err == nil {
		t.Fatal("invalid role should be rejected")
	}

	role := schema.RoleForeman
	if err := user.setCompany(schema.DemoCompanyId, &role); err != nil {
		t.Fatal(err)
	}

	profile, err := user.profile()
	if err != nil {
		t.Fatal(err)
	}
	if profile.Role != schema.RoleForeman {
		t.Fatalf("expected foreman role after join, got %v", profile.Role)
	}
}

func TestEndpointsRequireAuth(t *testing.T) {
	env := setupTestEnv(t)

	client := env.newClient()

	if _, err := client.profile(); err != ErrUnauthorized {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
	if _, err := client.listRequests(); err != ErrUnauthorized {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
	if _, err := client.listCompanies(); err != ErrUnauthorized {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
}
