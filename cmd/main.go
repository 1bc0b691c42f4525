package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/cors"

	"tripbot/internal/config"
	"tripbot/internal/tripbot"
	"tripbot/utils"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	configPath := flag.String("config", "config.yaml", "Path to the YAML config file")
	addr := flag.String("addr", "", "HTTP network address (overrides server.address)")
	issueRole := flag.String("issue-token", "", "Print a token for the given role (bridge or admin) and exit")
	flag.Parse()

	infoLog := log.New(os.Stdout, "INFO\t", log.Ldate|log.Ltime)
	errorLog := log.New(os.Stderr, "ERROR\t", log.Ldate|log.Ltime|log.Lshortfile)

	botCfg, err := tripbot.LoadTripBotConfig()
	if err != nil {
		errorLog.Fatal(err)
	}

	if *issueRole != "" {
		if err := issueToken(botCfg.BridgeTokenSecret, *issueRole); err != nil {
			errorLog.Fatal(err)
		}
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		errorLog.Fatal(err)
	}
	if *addr == "" {
		*addr = cfg.Server.Address
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := stdLogger{info: infoLog, err: errorLog}
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		errorLog.Fatal(err)
	}
	defer closeStore()

	locker, closeLocker, err := openLocker(ctx, cfg, botCfg.LockTTL, logger)
	if err != nil {
		errorLog.Fatal(err)
	}
	defer closeLocker()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	app := &application{
		errorLog: errorLog,
		infoLog:  infoLog,
		registry: registry,
		deps: &tripbot.Deps{
			Store:    store,
			Locker:   locker,
			Logger:   logger,
			Config:   botCfg,
			Registry: registry,
		},
	}

	handler, err := app.routes()
	if err != nil {
		errorLog.Fatal(err)
	}
	if err := tripbot.StartWorkers(ctx, app.deps); err != nil {
		errorLog.Fatal(err)
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowCredentials: true,
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
	})

	srv := &http.Server{
		Addr:         *addr,
		ErrorLog:     errorLog,
		Handler:      addSecurityHeaders(c.Handler(handler)),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 20 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errorLog.Printf("shutdown: %v", err)
		}
	}()

	infoLog.Printf("Starting server on %s (store=%s)", *addr, cfg.Store.Backend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errorLog.Fatal(err)
	}
	infoLog.Printf("Server stopped")
}

func issueToken(secret, role string) error {
	if role != utils.RoleBridge && role != utils.RoleAdmin {
		return fmt.Errorf("unknown role %q", role)
	}
	tokens, err := utils.NewManager(secret)
	if err != nil {
		return err
	}
	token, err := tokens.NewJWT(role, role, 0)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
