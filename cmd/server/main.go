// File: cmd/server/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"operationcode_backend/internal/auth"
	"operationcode_backend/internal/config"
	"operationcode_backend/internal/platform/logger"
	"operationcode_backend/internal/user"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	switch cmd {
	case "worker":
		runWorker(cfg)
	case "grant-group":
		if err := runGrantGroup(cfg, os.Args[2:]); err != nil {
			log.Fatalf("FATAL: %v", err)
		}
	case "", "serve":
		startServer(cfg)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\nusage: %s [serve|worker|grant-group -email EMAIL -group GROUP]\n", cmd, os.Args[0])
		os.Exit(2)
	}
}

func startServer(cfg *config.Config) {
	server, cleanup, err := initializeServer(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize server: %v", err)
	}
	defer cleanup()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Printf("INFO: Received signal '%s'. Shutting down server...", sig)
	case err := <-errCh:
		if err != nil {
			log.Printf("ERROR: Server failed: %v", err)
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ServerTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: Server forced to shutdown due to error: %v", err)
	} else {
		log.Println("INFO: Server shutdown complete.")
	}
}

func runWorker(cfg *config.Config) {
	if !strings.EqualFold(cfg.JobsBackend, config.JobsBackendAsynq) {
		log.Fatalf("FATAL: the worker subcommand needs JOBS_BACKEND=%s; the local backend runs inside the server", config.JobsBackendAsynq)
	}
	worker, cleanup, err := initializeWorker(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize worker: %v", err)
	}
	defer cleanup()

	if err := worker.Start(); err != nil {
		log.Fatalf("FATAL: Failed to start worker: %v", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Printf("INFO: Received signal '%s'. Stopping worker...", sig)
	worker.Stop()
}

// runGrantGroup adds an existing user to a group, e.g. ProfileAdmin.
func runGrantGroup(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("grant-group", flag.ExitOnError)
	email := fs.String("email", "", "email of the user to grant the group to")
	group := fs.String("group", cfg.ProfileAdminGroup, "group name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		fs.Usage()
		return fmt.Errorf("-email is required")
	}

	appLogger, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	db, cleanup, err := provideDB(cfg, appLogger)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer cleanup()

	svc := user.NewService(user.NewGORMRepository(db), auth.NewJWTService(cfg, appLogger), nil, cfg, appLogger)
	if err := svc.AddUserToGroup(context.Background(), *email, *group); err != nil {
		return err
	}
	appLogger.Info("Group granted", zap.String("email", *email), zap.String("group", *group))
	return nil
}
