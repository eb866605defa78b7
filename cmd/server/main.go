package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wablast-backend/internal/config"
	"wablast-backend/internal/dashboard"
	"wablast-backend/internal/database"
	"wablast-backend/internal/handler"
	"wablast-backend/internal/middleware"
	"wablast-backend/internal/phone"
	"wablast-backend/internal/repository"
	"wablast-backend/internal/service"
	"wablast-backend/internal/whatsapp"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.LoadConfig()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Logger()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	if err := database.RunMigrations("migrations"); err != nil {
		log.Fatal().Err(err).Msg("migrations failed")
	}

	norm := phone.New(cfg.CountryCode, cfg.NationalNumLen)

	// Dashboard state is the single owned session/run context.
	state := dashboard.NewState()
	go state.Hub().Run()

	sessionMgr, err := whatsapp.NewSessionManager(cfg, state)
	if err != nil {
		log.Fatal().Err(err).Msg("whatsapp session init failed")
	}
	if err := sessionMgr.Connect(context.Background()); err != nil {
		// The console still serves contact CRUD while disconnected;
		// the reconnect timer or a restart brings the session back.
		log.Error().Err(err).Msg("initial whatsapp connect failed")
	}

	contactRepo := repository.NewContactRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	tokenRepo := repository.NewTokenRepository(db)

	contactSvc := service.NewContactService(contactRepo, norm)
	ingestSvc := service.NewIngestService(contactRepo, norm)
	directorySvc := service.NewDirectoryService(
		cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL,
		tokenRepo, contactRepo, norm)
	broadcastSvc := service.NewBroadcastService(
		contactRepo, historyRepo, state, sessionMgr, cfg.SendDelay, cfg.SendJitter)

	authHandler := handler.NewAuthHandler(cfg, state)
	contactHandler := handler.NewContactHandler(contactSvc)
	uploadHandler := handler.NewUploadHandler(ingestSvc)
	directoryHandler := handler.NewDirectoryHandler(directorySvc, cfg)
	broadcastHandler := handler.NewBroadcastHandler(broadcastSvc, state)

	mw := middleware.NewMiddleware(cfg)

	router := mux.NewRouter()

	// Public: operator login and the OAuth redirect pair.
	router.HandleFunc("/auth/login", authHandler.Login).Methods("POST")
	router.HandleFunc("/auth/directory", directoryHandler.Authorize).Methods("GET")
	router.HandleFunc("/auth/directory/callback", directoryHandler.Callback).Methods("GET")

	// WebSocket authenticates via ?token=.
	router.HandleFunc("/ws", authHandler.WebSocketHandler)

	api := router.PathPrefix("/").Subrouter()
	api.Use(mw.AuthMiddleware)

	api.HandleFunc("/contacts/sets", contactHandler.ListSets).Methods("GET")
	// Directory routes are registered before the {setName} wildcards.
	api.HandleFunc("/contacts/directory", directoryHandler.ListContacts).Methods("GET")
	api.HandleFunc("/contacts/directory/save", directoryHandler.SaveSelected).Methods("POST")
	api.HandleFunc("/contacts/directory", directoryHandler.Disconnect).Methods("DELETE")
	api.HandleFunc("/contacts/{setName}/export.csv", contactHandler.ExportCSV).Methods("GET")
	api.HandleFunc("/contacts/{setName}/add", contactHandler.AddContact).Methods("POST")
	api.HandleFunc("/contacts/{setName}/rename", contactHandler.RenameSet).Methods("PATCH")
	api.HandleFunc("/contacts/{setName}/{contactID}", contactHandler.UpdateContact).Methods("PUT")
	api.HandleFunc("/contacts/{setName}/{contactID}", contactHandler.DeleteContact).Methods("DELETE")
	api.HandleFunc("/contacts/{setName}", contactHandler.GetSet).Methods("GET")
	api.HandleFunc("/contacts/{setName}", contactHandler.DeleteSet).Methods("DELETE")
	api.HandleFunc("/upload/{setName}", uploadHandler.HandleUpload).Methods("POST")
	api.HandleFunc("/send/{setName}", broadcastHandler.Send).Methods("POST")
	api.HandleFunc("/history", broadcastHandler.History).Methods("GET")
	api.HandleFunc("/status", broadcastHandler.Status).Methods("GET")

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	server := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: c.Handler(router),
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info().Str("port", cfg.AppPort).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-stop
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
	sessionMgr.Disconnect()

	log.Info().Msg("stopped")
}
