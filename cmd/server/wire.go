// File: cmd/server/wire.go
//go:build wireinject
// +build wireinject

package main

import (
	"operationcode_backend/internal/app"
	"operationcode_backend/internal/auth"
	"operationcode_backend/internal/config"
	"operationcode_backend/internal/jobs"
	"operationcode_backend/internal/middleware"
	"operationcode_backend/internal/onboarding"
	"operationcode_backend/internal/platform/logger"
	"operationcode_backend/internal/profile"
	"operationcode_backend/internal/shared"
	"operationcode_backend/internal/user"

	"github.com/google/wire"
)

var platformSet = wire.NewSet(
	logger.New,
	provideDB,
)

var userSet = wire.NewSet(
	auth.NewJWTService,
	wire.Bind(new(shared.TokenService), new(*auth.JWTService)),
	user.NewGORMRepository,
	user.NewService,
	wire.Bind(new(user.Service), new(*user.ServiceImplementation)),
	wire.Bind(new(onboarding.UserLookup), new(*user.ServiceImplementation)),
	wire.Bind(new(user.RegistrationListener), new(*onboarding.Fanout)),
)

var jobsSet = wire.NewSet(
	jobs.NewBackend,
	provideEnqueuer,
	provideSweeper,
	jobs.NewDeadLetterSweepJob,
	onboarding.NewMailer,
	provideDispatcher,
	onboarding.NewFanout,
	app.NewWorker,
)

// initializeServer is the main Wire injector.
func initializeServer(cfg *config.Config) (*app.Server, func(), error) {
	wire.Build(
		platformSet,
		userSet,
		jobsSet,

		user.NewHandler,
		profile.NewGORMRepository,
		profile.NewService,
		profile.NewHandler,
		auth.NewProviderRegistry,
		auth.NewSocialService,
		auth.NewTokenBlocklist,
		auth.NewHandler,
		middleware.NewRateLimitStore,

		app.NewServer,
	)
	return nil, nil, nil
}

// initializeWorker builds a job worker without the HTTP server.
func initializeWorker(cfg *config.Config) (*app.Worker, func(), error) {
	wire.Build(
		platformSet,
		userSet,
		jobsSet,
	)
	return nil, nil, nil
}
