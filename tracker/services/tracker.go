package services

import (
	"log"
	"net/http"
	"os"
	"sitetrack/tracker/auth"
	"sitetrack/tracker/storage"
	"sitetrack/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"
)

type Tracker struct {
	user    UserService
	company CompanyService
	request RequestService
	extract *ExtractService

	db      *gorm.DB
	metrics *requestMetrics
}

func NewTracker(db *gorm.DB, store storage.Storage, userAuth auth.IdentityProvider, extractCfg ExtractConfig) Tracker {
	return Tracker{
		user:    UserService{db: db, userAuth: userAuth},
		company: CompanyService{db: db, userAuth: userAuth},
		request: RequestService{db: db, storage: store, userAuth: userAuth},
		extract: NewExtractService(extractCfg, userAuth),
		db:      db,
		metrics: newRequestMetrics(),
	}
}

func (t *Tracker) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger: log.New(os.Stderr, "", log.LstdFlags), NoColor: false,
	}))
	r.Use(t.metrics.Middleware)

	r.Mount("/user", t.user.Routes())
	r.Mount("/company", t.company.Routes())
	r.Mount("/request", t.request.Routes())
	r.Mount("/extract", t.extract.Routes())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteSuccess(w)
	})

	return r
}

// MetricsHandler serves the prometheus metrics for this tracker instance.
func (t *Tracker) MetricsHandler() http.Handler {
	return t.metrics.Handler()
}
