package tests

import (
	"bytes"
	"os"
	"path/filepath"
	"sitetrack/tracker/auth"
	"sitetrack/tracker/schema"
	"sitetrack/tracker/services"
	"sitetrack/tracker/storage"
	"testing"

	"github.com/go-chi/chi/v5"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testEnv struct {
	tracker services.Tracker
	api     chi.Router
	storage storage.Storage
	db      *gorm.DB
}

const (
	adminName     = "Site Admin"
	adminEmail    = "admin123@mail.com"
	adminPassword = "admin_password123"
)

func setupTestEnv(t *testing.T) *testEnv {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}

	err = db.AutoMigrate(
		&schema.User{}, &schema.Profile{}, &schema.Company{}, &schema.MaterialRequest{},
	)
	if err != nil {
		t.Fatal(err)
	}

	if err := auth.SeedDemoCompany(db); err != nil {
		t.Fatal(err)
	}

	storagePath := filepath.Join(t.TempDir(), "storage")
	if err := os.MkdirAll(storagePath, 0777); err != nil {
		t.Fatalf("error creating storage directory: %v", err)
	}
	store := storage.NewSharedDisk(storagePath)

	userAuth, err := auth.NewBasicIdentityProvider(
		db,
		auth.NewAuditLogger(new(bytes.Buffer)),
		auth.BasicProviderArgs{
			Secret:        []byte("290zcv02ai249"),
			AdminName:     adminName,
			AdminEmail:    adminEmail,
			AdminPassword: adminPassword,
		},
	)
	if err != nil {
		t.Fatal(err)
	}

	tracker := services.NewTracker(db, store, userAuth, services.ExtractConfig{})

	return &testEnv{tracker: tracker, api: tracker.Routes(), storage: store, db: db}
}

func (t *testEnv) newClient() client {
	return client{api: t.api}
}

func (t *testEnv) newUser(name string) (client, error) {
	c := t.newClient()
	login, err := c.signup(name, name+"@mail.com", name+"_password")
	if err != nil {
		return client{}, err
	}

	err = c.login(login)
	if err != nil {
		return client{}, err
	}

	return c, nil
}

func (t *testEnv) adminClient() (client, error) {
	c := t.newClient()
	err := c.login(loginInfo{Email: adminEmail, Password: adminPassword})
	return c, err
}
