package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/user/blogplatform-go/apperror"
	"github.com/user/blogplatform-go/auth"
	"github.com/user/blogplatform-go/background"
	"github.com/user/blogplatform-go/comments"
	"github.com/user/blogplatform-go/config"
	"github.com/user/blogplatform-go/credential"
	"github.com/user/blogplatform-go/db"
	"github.com/user/blogplatform-go/docs"
	"github.com/user/blogplatform-go/notify"
	"github.com/user/blogplatform-go/paging"
	"github.com/user/blogplatform-go/posts"
	"github.com/user/blogplatform-go/respond"
	"github.com/user/blogplatform-go/taxonomy"
	"github.com/user/blogplatform-go/token"
	"github.com/user/blogplatform-go/users"
)

// stores groups the persistence layer so tests can swap in memory stores.
type stores struct {
	users      users.Store
	posts      posts.Store
	comments   comments.Store
	categories taxonomy.Store
	tags       taxonomy.Store
}

func pgStores(pool db.Pool) stores {
	return stores{
		users:      users.NewStore(pool),
		posts:      posts.NewStore(pool),
		comments:   comments.NewStore(pool),
		categories: taxonomy.NewStore(pool, taxonomy.Categories),
		tags:       taxonomy.NewStore(pool, taxonomy.Tags),
	}
}

// components holds the services handlers are built from.
type components struct {
	hasher     *credential.Hasher
	auth       *auth.AuthService
	users      *users.UserService
	posts      *posts.PostService
	comments   *comments.CommentService
	categories *taxonomy.Service
	tags       *taxonomy.Service
}

func buildComponents(cfg *config.AppConfig, st stores, mail auth.Notifications) *components {
	hasher := credential.NewHasher(credential.PolicyFromConfig(cfg.Password), cfg.Password.BcryptCost)
	tokens := token.NewService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, nil)
	return &components{
		hasher:     hasher,
		auth:       auth.NewAuthService(st.users, hasher, tokens, mail, cfg.Auth, nil),
		users:      users.NewUserService(st.users, nil),
		posts:      posts.NewPostService(st.posts, st.categories, st.tags, nil),
		comments:   comments.NewCommentService(st.comments, st.posts, nil),
		categories: taxonomy.NewService(st.categories, taxonomy.Categories, nil),
		tags:       taxonomy.NewService(st.tags, taxonomy.Tags, nil),
	}
}

// recoverJSON turns a handler panic into the standard error body.
func recoverJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				log.Printf("Panic: %+v", rvr)
				respond.Error(w, r, apperror.NewInternalError("internal server error", nil))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// probes feed /health. Nil fields are reported as unchecked or left out.
type probes struct {
	ping    func(context.Context) error
	mail    *notify.Dispatcher
	sweeper *background.Sweeper
}

// newRouter wires middleware and every route.
func newRouter(cfg *config.AppConfig, c *components, health probes) http.Handler {
	docs.SwaggerInfo.Title = cfg.Server.AppName
	docs.SwaggerInfo.Version = cfg.Server.AppVersion

	limits := paging.LimitsFromConfig(cfg.Pagination)
	requireAuth := auth.RequireAuth(c.auth)
	optionalAuth := auth.OptionalAuth(c.auth)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(recoverJSON)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		respond.Success(w, http.StatusOK, "Welcome to "+cfg.Server.AppName, map[string]string{
			"version": cfg.Server.AppVersion,
			"docs":    "/swagger/index.html",
		})
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]interface{}{"status": "healthy", "database": "unchecked"}
		if health.ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := health.ping(ctx); err != nil {
				respond.Error(w, r, apperror.NewDatabaseError("database unreachable", err))
				return
			}
			status["database"] = "ok"
		}
		if health.mail != nil {
			status["mail"] = health.mail.Stats()
		}
		if health.sweeper != nil {
			status["sweeper"] = health.sweeper.Stats()
		}
		respond.Success(w, http.StatusOK, "", status)
	})
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			auth.NewHandlers(c.auth).RegisterRoutes(r)
		})
		r.Route("/users", func(r chi.Router) {
			r.Use(requireAuth)
			users.NewUserHandlers(c.users).RegisterRoutes(r)
		})
		r.Route("/posts", func(r chi.Router) {
			posts.NewPostHandlers(c.posts, limits).RegisterRoutes(r, requireAuth, optionalAuth)
		})
		r.Route("/comments", func(r chi.Router) {
			comments.NewCommentHandlers(c.comments, limits).RegisterRoutes(r, requireAuth, optionalAuth)
		})
		r.Route("/categories", func(r chi.Router) {
			taxonomy.NewHandlers(c.categories, limits).RegisterRoutes(r, requireAuth)
		})
		r.Route("/tags", func(r chi.Router) {
			taxonomy.NewHandlers(c.tags, limits).RegisterRoutes(r, requireAuth)
		})
	})
	return r
}
