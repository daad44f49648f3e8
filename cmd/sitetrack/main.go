package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sitetrack/tracker/auth"
	"sitetrack/tracker/schema"
	"sitetrack/tracker/services"
	"sitetrack/tracker/storage"
	"sitetrack/utils"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type sitetrackEnv struct {
	PublicHostname string
	ShareDir       string
	JwtSecret      string

	AdminName     string
	AdminEmail    string
	AdminPassword string

	GenAiKey      string
	GenAiBaseUrl  string
	ExtractModels string

	IdentityProvider      string
	KeycloakServerUrl     string
	KeycloakAdminUsername string
	keycloakAdminPassword string

	DatabaseUri string
}

func loadEnvFile(envFile string) {
	slog.Info(fmt.Sprintf("loading env from file %v", envFile))
	err := godotenv.Load(envFile)
	if err != nil {
		log.Fatalf("error loading .env file '%v': %v", envFile, err)
	}
}

/**
 * ==========================================================================
 * ==== All variables that are used by the tracker must be loaded here.  ====
 * ==== This is to make the data flow clear so that a user can see what  ====
 * ==== variables are exposed, and how the values are propagated through ====
 * ==== the system.                                                      ====
 * ==========================================================================
 */
func loadEnv() sitetrackEnv {
	missingEnvs := []string{}

	requiredEnv := func(key string) string {
		env := os.Getenv(key)
		if env == "" {
			missingEnvs = append(missingEnvs, key)
			slog.Error("missing required env variable", "key", key)
		}
		return env
	}

	env := sitetrackEnv{
		PublicHostname: requiredEnv("PUBLIC_HOSTNAME"),

		ShareDir:  requiredEnv("SHARE_DIR"),
		JwtSecret: requiredEnv("JWT_SECRET"),

		AdminName:     requiredEnv("ADMIN_NAME"),
		AdminEmail:    requiredEnv("ADMIN_MAIL"),
		AdminPassword: requiredEnv("ADMIN_PASSWORD"),

		GenAiKey:      utils.OptionalEnv("GENAI_KEY"),
		GenAiBaseUrl:  utils.OptionalEnv("GENAI_BASE_URL"),
		ExtractModels: utils.OptionalEnv("EXTRACT_MODELS_FILE"),

		IdentityProvider:      requiredEnv("IDENTITY_PROVIDER"),
		KeycloakServerUrl:     utils.OptionalEnv("KEYCLOAK_SERVER_URL"),
		KeycloakAdminUsername: utils.OptionalEnv("KEYCLOAK_ADMIN_USER"),
		keycloakAdminPassword: utils.OptionalEnv("KEYCLOAK_ADMIN_PASSWORD"),

		DatabaseUri: requiredEnv("DATABASE_URI"),
	}

	if len(missingEnvs) > 0 {
		log.Fatalf("The following required env vars are missing: %s", strings.Join(missingEnvs, ", "))
	}

	if env.IdentityProvider == "keycloak" && env.KeycloakServerUrl == "" {
		log.Fatal("Must specify KEYCLOAK_SERVER_URL when IDENTITY_PROVIDER is keycloak")
	}

	return env
}

func (env *sitetrackEnv) postgresDsn() string {
	parts, err := url.Parse(env.DatabaseUri)
	if err != nil {
		log.Fatalf("error parsing db uri: %v", err)
	}
	pwd, _ := parts.User.Password()
	dbname := strings.TrimPrefix(parts.Path, "/")
	return fmt.Sprintf("host=%v user=%v password=%v dbname=%v port=%v", parts.Hostname(), parts.User.Username(), pwd, dbname, parts.Port())
}

func initLogging(logFile *os.File) {
	log.SetFlags(log.Lshortfile | log.Ltime | log.Ldate)
	log.SetOutput(io.MultiWriter(logFile, os.Stderr))
	slog.Info("logging initialized", "log_file", logFile.Name())
}

func initDb(dsn string) *gorm.DB {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("error opening database connection: %v", err)
	}

	err = db.AutoMigrate(
		&schema.User{}, &schema.Profile{}, &schema.Company{}, &schema.MaterialRequest{},
	)
	if err != nil {
		log.Fatalf("error migrating db schema: %v", err)
	}

	return db
}

func main() {
	envFile := flag.String("env", "", "File to load env variables from. If not specified will just load them from the environment variables already defined.")
	port := flag.Int("port", 8000, "Port to run server on")
	flag.Parse()

	if *envFile != "" {
		loadEnvFile(*envFile)
	}
	env := loadEnv()

	err := os.MkdirAll(filepath.Join(env.ShareDir, "logs/"), 0777)
	if err != nil {
		log.Fatalf("error creating log dir: %v", err)
	}

	logFile, err := os.OpenFile(filepath.Join(env.ShareDir, "logs/sitetrack.log"), os.O_CREATE|os.O_APPEND|os.O_RDWR, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer logFile.Close()

	auditLog, err := os.OpenFile(filepath.Join(env.ShareDir, "logs/audit.log"), os.O_CREATE|os.O_APPEND|os.O_RDWR, 0666)
	if err != nil {
		log.Fatalf("error opening audit log file: %v", err)
	}
	defer auditLog.Close()

	initLogging(logFile)

	db := initDb(env.postgresDsn())

	if err := auth.SeedDemoCompany(db); err != nil {
		log.Fatalf("error seeding demo workspace: %v", err)
	}

	sharedStorage := storage.NewSharedDisk(env.ShareDir)

	var identityProvider auth.IdentityProvider
	if env.IdentityProvider == "keycloak" {
		identityProvider, err = auth.NewKeycloakIdentityProvider(
			db,
			auth.NewAuditLogger(auditLog),
			auth.KeycloakArgs{
				KeycloakServerUrl:     env.KeycloakServerUrl,
				KeycloakAdminUsername: env.KeycloakAdminUsername,
				KeycloakAdminPassword: env.keycloakAdminPassword,
				AdminName:             env.AdminName,
				AdminEmail:            env.AdminEmail,
				AdminPassword:         env.AdminPassword,
				PublicHostname:        env.PublicHostname,
			},
		)
		if err != nil {
			log.Fatalf("error creating keycloak identity provider: %v", err)
		}
	} else {
		identityProvider, err = auth.NewBasicIdentityProvider(
			db,
			auth.NewAuditLogger(auditLog),
			auth.BasicProviderArgs{
				Secret:        []byte(env.JwtSecret),
				AdminName:     env.AdminName,
				AdminEmail:    env.AdminEmail,
				AdminPassword: env.AdminPassword,
			},
		)
		if err != nil {
			log.Fatalf("error creating basic identity provider: %v", err)
		}
	}

	extractModels, err := services.LoadExtractModels(env.ExtractModels)
	if err != nil {
		log.Fatalf("error loading extraction model list: %v", err)
	}

	tracker := services.NewTracker(db, sharedStorage, identityProvider, services.ExtractConfig{
		ApiKey:  env.GenAiKey,
		BaseUrl: env.GenAiBaseUrl,
		Models:  extractModels,
	})

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{env.PublicHostname},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Mount("/api/v1", tracker.Routes())
	r.Handle("/metrics", tracker.MetricsHandler())

	slog.Info("starting server", "port", *port)
	err = http.ListenAndServe(fmt.Sprintf(":%d", *port), r)
	if err != nil {
		log.Fatalf("listen and serve returned error: %v", err.Error())
	}
}
