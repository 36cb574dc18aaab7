package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"questgen/internal/app"
	"questgen/internal/auth"
	"questgen/internal/db"
	"questgen/internal/storage"

	"github.com/joho/godotenv"
)

func main() {
	if len(os.Args) > 2 && os.Args[1] == "hash-password" {
		hash, err := auth.HashPassword(os.Args[2])
		if err != nil {
			log.Printf("hash password: %v", err)
			os.Exit(1)
		}
		fmt.Println(hash)
		return
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("load .env: %v", err)
	}
	cfg := app.LoadConfig()

	dbConn, err := db.Open(context.Background(), cfg.DBDriver, cfg.DBDSN, cfg.Pool())
	if err != nil {
		log.Printf("database error: %v", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	files, err := storage.NewFileStore(cfg.UploadDir)
	if err != nil {
		log.Printf("upload dir error: %v", err)
		os.Exit(1)
	}

	if cfg.AdminPassHash == "" {
		log.Printf("ADMIN_PASS_HASH is empty; all /api requests will be rejected. Generate one with: web hash-password <password>")
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           app.NewRouter(cfg, dbConn, files),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("questgen web listening on %s (env=%s, db=%s)", cfg.HTTPAddr, cfg.AppEnv, cfg.DBDriver)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("server stopped: %v", err)
		os.Exit(1)
	}
	log.Printf("questgen web stopped")
}
