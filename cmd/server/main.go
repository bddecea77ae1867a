package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"intel-service/internal/config"
	"intel-service/internal/db"
	httphandler "intel-service/internal/http"
	"intel-service/internal/hub"
	"intel-service/internal/location"
	"intel-service/internal/repository"
	"intel-service/internal/service"
	"intel-service/internal/vision"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal().Err(err).Msg("configuration error")
	}

	gdb, err := db.Connect(cfg.Database.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("database error")
	}

	repo := repository.NewIntelRepository(gdb)

	if cfg.Auth.AdminPassword != "" {
		if err := ensureAdminUser(repo, cfg.Auth.AdminUser, cfg.Auth.AdminPassword); err != nil {
			log.Fatal().Err(err).Msg("admin bootstrap failed")
		}
	}

	cache := location.NewCache(cfg.Location.DefaultLat, cfg.Location.DefaultLon, cfg.Location.StaleAfter)
	broadcaster := hub.New(log.With().Str("component", "hub").Logger())
	defer broadcaster.Close()

	visionClient := vision.NewClient(cfg.Vision.URL, cfg.Vision.Token, cfg.Vision.Region,
		log.With().Str("component", "vision").Logger())

	matcher := service.NewMatchService(repo, repo, log.With().Str("component", "matcher").Logger())
	graph := service.NewGraphService(repo, cfg.Graph.IncidentWindow,
		log.With().Str("component", "graph").Logger())

	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := httphandler.NewHandler(matcher, graph, cache, broadcaster, visionClient, repo, cfg, log)
	handler.Register(r)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.Info().Str("addr", cfg.Server.Addr).Msg("server listening")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("shutdown error")
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}
}

// ensureAdminUser creates the bootstrap admin account on first run.
func ensureAdminUser(repo *repository.IntelRepository, username, password string) error {
	ctx := context.Background()
	_, err := repo.GetUserByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return repo.CreateUser(ctx, &repository.User{
		Username:     username,
		PasswordHash: string(hash),
		FullName:     "Administrador",
		Role:         "admin",
	})
}
