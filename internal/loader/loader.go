/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/

// Package loader turns command-line identifiers into models.  Commands
// name things the way people do ("web", "prod") while the managers want
// primary keys ("prod-cluster:web"); the loader dereferences through the
// config file and builds either the eager config-sourced model or the
// lazy AWS-sourced one.
package loader

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/caltechads/deployfish/internal/adapter"
	"github.com/caltechads/deployfish/internal/config"
	"github.com/caltechads/deployfish/internal/manager"
	"github.com/caltechads/deployfish/internal/model"
)

// Loader builds models from config stanzas or live AWS state.
type Loader struct {
	cfg      *config.Config
	adapters *adapter.Registry
	managers *manager.Registry
	log      zerolog.Logger
}

// New builds a Loader over a parsed config file.
func New(cfg *config.Config, adapters *adapter.Registry, managers *manager.Registry, log zerolog.Logger) *Loader {
	return &Loader{
		cfg:      cfg,
		adapters: adapters,
		managers: managers,
		log:      log.With().Str("component", "loader").Logger(),
	}
}

// ServiceFromConfig builds the eager model of the services: item matching
// name, which may be the item's name or its environment.
func (l *Loader) ServiceFromConfig(ctx context.Context, name string) (*model.Service, error) {
	item, err := l.cfg.GetSectionItem("services", name)
	if err != nil {
		return nil, err
	}
	return adapter.NewServiceFromConfig(ctx, l.adapters, item)
}

// ServiceFromAWS loads the live service.  name may be a bare config name,
// an environment, or a full "cluster:service" primary key.
func (l *Loader) ServiceFromAWS(ctx context.Context, name string) (*model.Service, error) {
	pk, err := l.ServicePK(name)
	if err != nil {
		return nil, err
	}
	return l.managers.Service.Get(ctx, pk)
}

// ServicePK dereferences a service identifier to "cluster:service".  An
// identifier already containing ':' passes through untouched, so commands
// work without a config file when given the full key.
func (l *Loader) ServicePK(name string) (string, error) {
	if strings.Contains(name, ":") {
		return name, nil
	}
	item, err := l.cfg.GetSectionItem("services", name)
	if err != nil {
		return "", err
	}
	cluster, _ := item["cluster"].(string)
	serviceName, _ := item["name"].(string)
	svc := model.ServiceData{ClusterName: cluster, ServiceName: serviceName}
	return (&model.Service{Data: svc}).PK(), nil
}

// StandaloneTaskFromConfig builds the eager model of the top-level tasks:
// item matching name.
func (l *Loader) StandaloneTaskFromConfig(ctx context.Context, name string) (*model.StandaloneTask, error) {
	item, err := l.cfg.GetSectionItem("tasks", name)
	if err != nil {
		return nil, err
	}
	return adapter.NewStandaloneTaskFromConfig(ctx, l.adapters, item)
}

// Services builds eager models for every services: item.
func (l *Loader) Services(ctx context.Context) ([]*model.Service, error) {
	items, err := l.cfg.GetSection("services")
	if err != nil {
		return nil, err
	}
	out := make([]*model.Service, 0, len(items))
	for _, item := range items {
		svc, err := adapter.NewServiceFromConfig(ctx, l.adapters, item)
		if err != nil {
			return nil, err
		}
		out = append(out, svc)
	}
	return out, nil
}

// StandaloneTasks builds eager models for every top-level tasks: item.
func (l *Loader) StandaloneTasks(ctx context.Context) ([]*model.StandaloneTask, error) {
	items, err := l.cfg.GetSection("tasks")
	if err != nil {
		var missing *config.SectionNotFoundError
		if errors.As(err, &missing) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]*model.StandaloneTask, 0, len(items))
	for _, item := range items {
		task, err := adapter.NewStandaloneTaskFromConfig(ctx, l.adapters, item)
		if err != nil {
			return nil, err
		}
		out = append(out, task)
	}
	return out, nil
}
