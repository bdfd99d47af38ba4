package main

import (
	"context"
	"flag"
	"time"

	"todo_api/internal/auth"
	"todo_api/internal/config"
	"todo_api/internal/db"
	"todo_api/internal/observability"
	"todo_api/internal/user"

	"github.com/sirupsen/logrus"
)

func main() {
	users := flag.String("users", "One:one,Two:two,Three:three:admin", "users to create, as name:password[:role|role],...")
	flag.Parse()

	cfg := config.Load()
	if err := observability.SetupLogging(cfg.Log); err != nil {
		logrus.WithError(err).Fatal("Invalid logging configuration")
	}

	creds, err := user.ParseSeedSpec(*users)
	if err != nil {
		logrus.WithError(err).Fatal("Invalid -users value")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	database, err := db.Init(&cfg.DB)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	defer database.Close()

	if err := db.Migrate(ctx, database); err != nil {
		logrus.WithError(err).Fatal("Failed to migrate database")
	}

	// Tokens are never issued here, only the repository and hashing are used.
	service := user.NewUserService(user.NewUserRepository(), auth.NewTokenService(cfg.JWT.Secret, time.Minute, 0), database)

	ids, err := service.CreateUsers(ctx, creds)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to seed users")
	}

	for i, c := range creds {
		logrus.WithFields(logrus.Fields{
			"user_id":  ids[i],
			"username": c.Username,
			"roles":    c.Roles,
		}).Info("User created")
	}
}
