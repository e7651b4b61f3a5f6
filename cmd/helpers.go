/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/caltechads/deployfish/internal/adapter"
	"github.com/caltechads/deployfish/internal/aws"
	"github.com/caltechads/deployfish/internal/config"
	"github.com/caltechads/deployfish/internal/loader"
	"github.com/caltechads/deployfish/internal/manager"
	"github.com/caltechads/deployfish/internal/reconcile"
	"github.com/caltechads/deployfish/internal/terraform"
)

// session bundles the collaborators every command needs once the config
// file is loaded: the parsed config, the model loader, the managers and
// the reconciler, all sharing one logger.
type session struct {
	cfg        *config.Config
	managers   *manager.Registry
	loader     *loader.Loader
	reconciler *reconcile.Reconciler
	log        zerolog.Logger
}

// sessionFactory can be injected for testing
var sessionFactory func(ctx context.Context) (*session, error)

// SetSessionFactory allows injection of a session factory (for testing)
func SetSessionFactory(f func(ctx context.Context) (*session, error)) {
	sessionFactory = f
}

// newSession builds the default session: real AWS clients, the config
// file named by the global flags, and the default adapter registry.
func newSession(ctx context.Context) (*session, error) {
	if sessionFactory != nil {
		return sessionFactory(ctx)
	}

	log := newLogger()

	client, err := aws.NewDefaultClient(ctx, aws.Config{
		Region:  awsRegion,
		Profile: awsProfile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS client: %w", err)
	}

	cfg, err := config.Load(ctx, config.Options{
		Filename:  configFilename,
		EnvFile:   envFile,
		ImportEnv: importEnv,
		StateLoader: &terraform.StateLoader{
			S3:    client.S3(),
			Token: tfeToken(),
		},
	})
	if err != nil {
		return nil, err
	}

	adapters := adapter.Default()
	managers := manager.New(client, adapters, log)
	return &session{
		cfg:        cfg,
		managers:   managers,
		loader:     loader.New(cfg, adapters, managers, log),
		reconciler: reconcile.New(managers, log),
		log:        log,
	}, nil
}

// newLogger builds the console logger the commands share.  --verbose
// raises the level to debug.
func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

// tfeToken resolves the Terraform Enterprise token from the --tfe_token
// flag, falling back to ATLAS_TOKEN.
func tfeToken() string {
	if tfeTokenFlag != "" {
		return tfeTokenFlag
	}
	return os.Getenv("ATLAS_TOKEN")
}
