package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "rollcall-backend/docs"
	"rollcall-backend/internal/attendance"
	"rollcall-backend/internal/platform/auth"
	"rollcall-backend/internal/platform/db"
	"rollcall-backend/internal/platform/sheet"
	"rollcall-backend/internal/roster"
	"rollcall-backend/internal/whitelist"
)

// @title                      rollcall API
// @version                    1.0
// @description                Attendance roster backed by a shared sheet, gated by an authorized email list.
// @BasePath                   /api/v1
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization

// app: 起動時に組み立てる依存一式
type app struct {
	cfg     *db.Config
	conn    *sql.DB
	gate    *whitelist.Gate
	auth    *auth.Service
	roster  *roster.Adapter
	cleanup func()
}

func main() {
	// 設定読み込み
	cfg, err := db.LoadConfig(os.Getenv("ROLLCALL_CONFIG"))
	if err != nil {
		log.Fatalf("[ERROR] config: %v", err)
	}
	log.Printf("[INFO] mode:%s\n", cfg.Mode)

	a, err := setup(context.Background(), cfg)
	if err != nil {
		log.Fatalf("[ERROR] setup: %v", err)
	}
	defer a.cleanup()

	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           a.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		var err error
		if cfg.Server.TLS {
			certFile, keyFile := tlsFiles(cfg)
			log.Printf("[INFO] listening on https://%s", cfg.Server.Addr)
			err = srv.ListenAndServeTLS(certFile, keyFile)
		} else {
			log.Printf("[INFO] listening on http://%s", cfg.Server.Addr)
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	log.Println("[INFO] shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal(err)
	}
}

// setup opens the configured stores and seeds the authorized email list.
func setup(ctx context.Context, cfg *db.Config) (*app, error) {
	a := &app{cfg: cfg, cleanup: func() {}}

	if cfg.NeedsMySQL() {
		conn, err := db.Connect(cfg.DB)
		if err != nil {
			return nil, err
		}
		a.conn = conn
		a.cleanup = func() { conn.Close() }
		log.Printf("[INFO] connected to DB: %s", cfg.DB.DBName)
	}

	var sh sheet.Sheet
	switch cfg.Sheet.Driver {
	case "mysql":
		sh = sheet.NewMySQLSheet(a.conn, cfg.Sheet.Name)
	default:
		if cfg.Sheet.SeedFile != "" {
			mem, err := sheet.LoadSeed(cfg.Sheet.SeedFile)
			if err != nil {
				a.cleanup()
				return nil, err
			}
			sh = mem
		} else {
			sh = sheet.NewMemorySheet([][]any{{"Name"}})
		}
		log.Printf("[WARN] sheet driver is memory; edits are lost on restart")
	}
	a.roster = roster.NewAdapter(sh)

	var (
		wl       whitelist.Store
		accounts auth.AccountStore
	)
	if cfg.Auth.WhitelistDriver == "mysql" {
		wl = whitelist.NewMySQLStore(a.conn)
		accounts = auth.NewMySQLStore(a.conn)
	} else {
		wl = whitelist.NewMemoryStore()
		accounts = auth.NewMemoryStore()
	}
	a.gate = whitelist.NewGate(wl, cfg.Auth.WhitelistTTL)
	if err := a.gate.Bootstrap(ctx, cfg.Auth.BootstrapEmails); err != nil {
		a.cleanup()
		return nil, fmt.Errorf("bootstrap authorized emails: %w", err)
	}
	a.auth = auth.NewService(accounts, a.gate, []byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
	return a, nil
}

func (a *app) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	_ = r.SetTrustedProxies(nil)

	if a.cfg.Mode == "dev" {
		// CORS（開発中のみ必要）
		origins := a.cfg.Server.CORSOrigins
		if len(origins) == 0 {
			origins = []string{"http://localhost:3000"}
		}
		r.Use(cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowCredentials: true,
		}))
	}

	// ヘルス
	r.GET("/healthz", func(c *gin.Context) {
		if a.conn != nil {
			if err := a.conn.PingContext(c.Request.Context()); err != nil {
				c.String(http.StatusServiceUnavailable, "db unavailable")
				return
			}
		}
		c.String(http.StatusOK, "ok")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// /api/v1
	api := r.Group("/api/v1")
	auth.RegisterRoutes(api, a.auth)

	// ログイン済み
	signedIn := api.Group("", auth.RequireAuth(a.auth.Secret()))
	whitelist.RegisterSelfRoutes(signedIn, a.gate)

	// ログイン済み かつ ホワイトリスト登録済み
	authorized := signedIn.Group("", whitelist.RequireAuthorized(a.gate))
	auth.RegisterAccountRoutes(authorized, a.auth)
	whitelist.RegisterRoutes(authorized, a.gate)
	attendance.RegisterRoutes(authorized, attendance.NewService(a.roster))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "no such route"}})
	})
	return r
}

func tlsFiles(cfg *db.Config) (certFile, keyFile string) {
	if cfg.Mode == "dev" {
		//開発用
		return fmt.Sprintf("config/tls/dev/%s", cfg.Certificate.Cert), fmt.Sprintf("config/tls/dev/%s", cfg.Certificate.Key)
	}
	//本番用
	return fmt.Sprintf("config/tls/release/%s", cfg.Certificate.Cert), fmt.Sprintf("config/tls/release/%s", cfg.Certificate.Key)
}
