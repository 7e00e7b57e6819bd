package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"otec/config"
	"otec/internal/authn"
	"otec/internal/db"
	"otec/internal/health"
	"otec/internal/logs"
	"otec/internal/middleware"
	"otec/internal/models"
	"otec/internal/rbac"
	"otec/internal/repo"
	"otec/internal/users"

	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type App struct {
	cfg        *config.Config
	db         *gorm.DB
	Router     *mux.Router
	httpServer *http.Server

	ctx    context.Context
	cancel context.CancelFunc
}

func (a *App) Initialize(cfg *config.Config) {
	a.cfg = cfg

	/* 1) Логи */
	logs.Init(logs.Options{
		Level:  a.cfg.Logging.Level,
		Format: a.cfg.Logging.Format,
		File:   a.cfg.Logging.File,
	})

	/* 2) DB — обязательна */
	d, err := db.Open(a.cfg.Database.Driver, a.cfg.Database.DSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	a.db = d

	if err := a.db.AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.Permission{}); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	us := repo.NewUserStore(a.db, a.cfg.Auth.BcryptCost)
	rs := repo.NewRoleStore(a.db)
	ps := repo.NewPermissionStore(a.db)

	/* 3) Bootstrap: сидинг ролей и опциональный админ — до приёма трафика.
	Ошибки в лог, не фатально: процесс может подняться раньше БД-миграций соседа. */
	a.bootstrap(us, rs)

	tokens := authn.NewTokenService(a.cfg.Auth.JWTSecret,
		time.Duration(a.cfg.Auth.TokenTTLMinutes)*time.Minute)
	authSvc := authn.NewService(us, tokens,
		time.Duration(a.cfg.Auth.ResetTTLMinutes)*time.Minute,
		a.cfg.Auth.ExposeResetToken)

	/* 4) Router + middleware */
	a.Router = mux.NewRouter().StrictSlash(true)
	a.Router.Use(
		middleware.RequestID,
		middleware.Recoverer,
		middleware.LoggerMW,
	)

	/* 5) Health */
	health.RegisterRoutesWithDB(a.Router, a.db) // /healthz, /readyz

	/* 6) Основные поверхности */
	authn.RegisterRoutes(a.Router, authn.NewHandler(authSvc))
	rbac.RegisterRoutes(a.Router, rbac.NewHandler(rs, ps), tokens)
	users.RegisterRoutes(a.Router, users.NewHandler(us, authSvc), tokens)

	/* (необязательно) вывести известные маршруты в лог при старте */
	_ = a.Router.Walk(func(rt *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		path, _ := rt.GetPathTemplate()
		methods, _ := rt.GetMethods()
		if len(methods) == 0 {
			methods = []string{"ANY"}
		}
		log.Printf("route: %-6v %s", methods, path)
		return nil
	})
}

// bootstrap — идемпотентный стартовый шаг: роли из перечисления
// и, если задан в конфиге, админская учётка.
func (a *App) bootstrap(us *repo.UserStore, rs *repo.RoleStore) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := rs.Seed(ctx); err != nil {
		logs.Logger.Errorf("role seeding failed: %v", err)
	} else {
		logs.Logger.Info("roles seeded")
	}

	email := a.cfg.Bootstrap.AdminEmail
	password := a.cfg.Bootstrap.AdminPassword
	if email == "" || password == "" {
		return
	}
	existing, err := us.FindByEmail(ctx, email)
	if err != nil {
		logs.Logger.Errorf("admin bootstrap: lookup failed: %v", err)
		return
	}
	if existing != nil {
		logs.Logger.Infof("admin bootstrap: %s already exists", email)
		return
	}
	u := models.User{
		Email:     email,
		FirstName: a.cfg.Bootstrap.AdminFirstName,
		LastName:  a.cfg.Bootstrap.AdminLastName,
		IsActive:  true,
	}
	if err := us.Create(ctx, &u, password, models.RoleAdmin); err != nil {
		logs.Logger.Errorf("admin bootstrap: create failed: %v", err)
		return
	}
	logs.Logger.Infof("admin bootstrap: created %s", email)
}

func (a *App) Run() error {
	if a.Router == nil || a.cfg == nil {
		return fmt.Errorf("server not initialized")
	}

	bind := net.JoinHostPort(a.cfg.Server.Address, a.cfg.Server.HTTPPort)

	a.ctx, a.cancel = context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigs
		logs.Logger.Infof("shutdown signal: %s", s)
		a.cancel()
	}()

	// Жёсткие таймауты — это важно для production
	a.httpServer = &http.Server{
		Addr:              bind,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logs.Logger.Infof("HTTP listening on %s", bind)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logs.Logger.Fatalf("http server error: %v", err)
		}
	}()

	<-a.ctx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.httpServer.Shutdown(ctx); err != nil {
		logs.Logger.Errorf("http shutdown: %v", err)
	}
	return nil
}
