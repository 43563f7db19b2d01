// Scenelink bridge server.
// Accepts backend telemetry, aggregates it, and streams display commands
// to the 3D visualization client over a WebSocket.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/skyfence/scenelink/internal/archive"
	"github.com/skyfence/scenelink/internal/auth"
	"github.com/skyfence/scenelink/pkg/config"
	"github.com/skyfence/scenelink/pkg/feed"
	"github.com/skyfence/scenelink/pkg/scene"
)

var (
	configPath = flag.String("config", "configs/config.json", "Path to configuration file")
	demo       = flag.Bool("demo", false, "Run the built-in demo telemetry feed")
	mintToken  = flag.String("mint-token", "", "Mint a viewer token for the given subject and exit")
)

func main() {
	flag.Parse()

	log.Println("🚀 Starting scenelink bridge...")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	var authSvc *auth.Service
	if cfg.Auth.Enabled {
		if cfg.Auth.JWTSecret == "" {
			log.Fatal("Auth is enabled but no JWT secret is configured (set SCENELINK_JWT_SECRET)")
		}
		authSvc = auth.NewService(auth.Config{
			JWTSecret:     cfg.Auth.JWTSecret,
			TokenDuration: time.Duration(cfg.Auth.TokenDurationHours) * time.Hour,
		})
	}

	if *mintToken != "" {
		if authSvc == nil {
			log.Fatal("Cannot mint a token: auth is not enabled")
		}
		token, err := authSvc.GenerateToken(*mintToken, auth.RoleViewer)
		if err != nil {
			log.Fatalf("Failed to mint token: %v", err)
		}
		fmt.Println(token)
		return
	}

	// Optional telemetry archive.
	var sink scene.TrackSink
	if cfg.Database.Enabled {
		archiveDB, err := archive.Connect(cfg.Database)
		if err != nil {
			log.Fatalf("Failed to connect to archive database: %v", err)
		}
		defer archiveDB.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := archiveDB.InitSchema(ctx); err != nil {
			cancel()
			log.Fatalf("Failed to initialize archive schema: %v", err)
		}
		cancel()
		log.Println("✅ Connected to archive database")

		go cleanupLoop(archiveDB)
		sink = archiveDB
	}

	adaptor := scene.NewAdaptor(scene.Options{
		TrackTTL:      secondsToDuration(cfg.Scene.TrackTTLSeconds),
		AirplaneTTL:   secondsToDuration(cfg.Scene.AirplaneTTLSeconds),
		AirplaneScale: cfg.Scene.AirplaneScale,
		Sink:          sink,
	})
	defer adaptor.Close()

	adaptor.OnDeviceClicked(func(deviceID string) {
		log.Printf("📍 Device clicked in viewer: %s", deviceID)
	})

	router := setupRoutes(cfg, adaptor, authSvc)

	httpServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	feedCtx, stopFeed := context.WithCancel(context.Background())
	defer stopFeed()
	if *demo {
		demoFeed := feed.New(adaptor, feed.Options{
			UpdatesPerSecond: cfg.Demo.UpdatesPerSecond,
			TrackCount:       cfg.Demo.TrackCount,
		})
		go func() {
			if err := demoFeed.Run(feedCtx); err != nil && feedCtx.Err() == nil {
				log.Printf("Demo feed stopped: %v", err)
			}
		}()
		log.Println("🛩️  Demo telemetry feed enabled")
	}

	go func() {
		log.Printf("📡 Bridge listening on http://%s", httpServer.Addr)
		log.Printf("   Viewer endpoint: ws://%s/ws", httpServer.Addr)

		var err error
		if cfg.Server.TLSEnabled {
			err = httpServer.ListenAndServeTLS(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("👋 Shutting down bridge...")
	stopFeed()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("✅ Bridge stopped")
}

// setupRoutes configures the HTTP surface: the viewer WebSocket and a
// small status API.
func setupRoutes(cfg *config.Config, adaptor *scene.Adaptor, authSvc *auth.Service) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Group(func(r chi.Router) {
		if authSvc != nil {
			r.Use(authSvc.Middleware(auth.RoleViewer))
		}
		r.Get("/ws", adaptor.Handler().ServeHTTP)
	})

	r.Get("/api/v1/status", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"viewerConnected":%t,"pendingCommands":%d}`,
			adaptor.Connected(), adaptor.PendingCommands())
	})

	return r
}

// cleanupLoop trims archived samples daily so the archive stays bounded.
func cleanupLoop(db *archive.DB) {
	const retention = 7 * 24 * time.Hour
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		if err := db.CleanupOldData(ctx, retention); err != nil {
			log.Printf("Archive cleanup failed: %v", err)
		}
		cancel()
	}
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
