package client

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

func TestProfileCacheRoundTrip(t *testing.T) {
	cache, err := NewProfileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	userId := uuid.New()
	if profile, err := cache.Load(userId); err != nil || profile != nil {
		t.Fatalf("expected cache miss, got %v, %v", profile, err)
	}

	companyId := uuid.New()
	stored := Profile{Id: userId, FullName: strPtr("Alice"), Role: "foreman", CompanyId: &companyId, CompanyName: strPtr("Acme")}
	if err := cache.Store(stored); err != nil {
		t.Fatal(err)
	}

	loaded, err := cache.Load(userId)
	if err != nil {
		t.Fatal(err)
	}
	if loaded == nil || loaded.Id != userId || *loaded.FullName != "Alice" || *loaded.CompanyId != companyId {
		t.Fatalf("invalid cached profile %+v", loaded)
	}

	last, err := cache.LastUser()
	if err != nil {
		t.Fatal(err)
	}
	if last == nil || *last != userId {
		t.Fatalf("expected last user hint, got %v", last)
	}

	if err := cache.Delete(userId); err != nil {
		t.Fatal(err)
	}
	if profile, _ := cache.Load(userId); profile != nil {
		t.Fatal("expected cache miss after delete")
	}
	if last, _ := cache.LastUser(); last != nil {
		t.Fatal("last user hint should be cleared with the profile")
	}
}

func TestProfileCacheKeyedByUser(t *testing.T) {
	cache, err := NewProfileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	alice := Profile{Id: uuid.New(), FullName: strPtr("Alice"), Role: "worker"}
	bob := Profile{Id: uuid.New(), FullName: strPtr("Bob"), Role: "foreman"}

	if err := cache.Store(alice); err != nil {
		t.Fatal(err)
	}
	if err := cache.Store(bob); err != nil {
		t.Fatal(err)
	}

	loaded, err := cache.Load(alice.Id)
	if err != nil {
		t.Fatal(err)
	}
	if *loaded.FullName != "Alice" {
		t.Fatalf("entries must not collide across users: %v", *loaded.FullName)
	}

	// Most recent store wins the hint.
	last, _ := cache.LastUser()
	if last == nil || *last != bob.Id {
		t.Fatalf("expected bob as last user, got %v", last)
	}
}

func TestProfileCacheCorruptEntryIsMiss(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewProfileCache(dir)
	if err != nil {
		t.Fatal(err)
	}

	userId := uuid.New()
	path := filepath.Join(dir, "profile_"+userId.String()+".json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	profile, err := cache.Load(userId)
	if err != nil || profile != nil {
		t.Fatalf("corrupt entries should read as a miss, got %v, %v", profile, err)
	}
}
