/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/

// Package reconcile orders the multi-step writes that bring live AWS
// state in line with a config-sourced model.  No step is transactional:
// ordering is chosen so a failed save can be re-run and the already
// completed steps are simply idempotent.  Config is authoritative for
// owned sub-resources: present in config means create or update, absent
// from config but live means delete, and live state is re-read right
// before every destructive decision.
package reconcile

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/caltechads/deployfish/internal/manager"
	"github.com/caltechads/deployfish/internal/model"
)

// DefaultDeployTimeout bounds how long WaitForStable watches a deploy.
const DefaultDeployTimeout = 15 * time.Minute

// Reconciler drives multi-step saves and deletes through the managers.
type Reconciler struct {
	managers *manager.Registry
	log      zerolog.Logger

	// DeployTimeout bounds WaitForStable; zero means DefaultDeployTimeout.
	DeployTimeout time.Duration
}

// New builds a Reconciler over the given manager registry.
func New(managers *manager.Registry, log zerolog.Logger) *Reconciler {
	return &Reconciler{managers: managers, log: log.With().Str("component", "reconcile").Logger()}
}

// SaveService creates or updates the service and everything it owns, in
// dependency order:
//
//  1. register each helper task's task definition
//  2. stamp the helper bindings onto the service's task definition
//  3. register the service's task definition
//  4. create, reuse or delete the service discovery entry
//  5. create or update the service itself
//  6. create, update or delete the scaling setup
//  7. write or delete the helper tasks' schedule rules
//
// The first failure aborts the remaining steps; completed steps stay in
// place and re-running the save picks up where it left off.
func (r *Reconciler) SaveService(ctx context.Context, svc *model.Service) error {
	pk := svc.PK()
	serviceTD, err := svc.TaskDefinition(ctx)
	if err != nil {
		return err
	}
	if err := r.expandWildcardSecrets(ctx, svc, serviceTD); err != nil {
		return err
	}

	// Step 1: helper task definitions.
	bindings := make(map[string]string, len(svc.HelperTasks()))
	for _, helper := range svc.HelperTasks() {
		if err := r.managers.TaskDefinition.Save(ctx, helper.TaskDefinition); err != nil {
			return err
		}
		bindings[helper.Family()] = helper.TaskDefinition.PK()
	}

	// Steps 2 and 3: bindings, then the service's own task definition.
	serviceTD.SetHelperBindings(bindings)
	if err := r.managers.TaskDefinition.Save(ctx, serviceTD); err != nil {
		return err
	}
	svc.Data.TaskDefinition = serviceTD.PK()

	// Step 4: service discovery.
	if err := r.reconcileServiceDiscovery(ctx, svc); err != nil {
		return err
	}

	// Step 5: the service itself.
	exists, err := r.managers.Service.Exists(ctx, pk)
	if err != nil {
		return err
	}
	if exists {
		if err := r.managers.Service.Update(ctx, svc); err != nil {
			return err
		}
	} else {
		if err := r.managers.Service.Create(ctx, svc); err != nil {
			return err
		}
	}

	// Step 6: application scaling.
	if err := r.reconcileScaling(ctx, svc); err != nil {
		return err
	}

	// Step 7: helper task schedule rules.
	for _, helper := range svc.HelperTasks() {
		if err := r.reconcileSchedule(ctx, helper.Data, helper.TaskDefinition.Data.Arn); err != nil {
			return err
		}
	}
	r.log.Info().Str("service", pk).Msg("service saved")
	return nil
}

// expandWildcardSecrets materializes wildcard external secrets against
// Parameter Store and points the task definition's containers at the
// concrete parameters found, so the registered revision references what
// actually exists at deploy time.
func (r *Reconciler) expandWildcardSecrets(ctx context.Context, svc *model.Service, td *model.TaskDefinition) error {
	secrets, err := svc.Secrets(ctx)
	if err != nil {
		return err
	}
	wildcards := false
	for _, secret := range secrets {
		if secret.Wildcard {
			wildcards = true
			break
		}
	}
	if !wildcards {
		return nil
	}
	expanded, err := r.managers.Secret.Expand(ctx, secrets)
	if err != nil {
		return err
	}
	svc.SetSecrets(expanded)
	td.AttachSecretRefs(expanded)
	return nil
}

// reconcileServiceDiscovery creates or reuses the configured Cloud Map
// entry, or deletes a live one the config no longer declares.
func (r *Reconciler) reconcileServiceDiscovery(ctx context.Context, svc *model.Service) error {
	desired, err := svc.ServiceDiscovery(ctx)
	if err != nil {
		return err
	}
	if desired != nil {
		live, err := r.managers.Discovery.FindByName(ctx, desired.Data.NamespaceID, desired.Data.Name)
		if err != nil {
			var notFound *model.DoesNotExistError
			if !errors.As(err, &notFound) {
				return err
			}
			if err := r.managers.Discovery.Create(ctx, desired); err != nil {
				return err
			}
		} else {
			desired.Data.ID = live.Data.ID
			desired.Data.Arn = live.Data.Arn
		}
		svc.Data.ServiceRegistries = []model.ServiceRegistry{{RegistryArn: desired.Data.Arn}}
		return nil
	}

	// Nothing declared: delete a live entry if the deployed service still
	// points at one.
	live, err := r.managers.Service.Get(ctx, svc.PK())
	if err != nil {
		var notFound *model.DoesNotExistError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	if len(live.Data.ServiceRegistries) == 0 {
		return nil
	}
	entry, err := r.managers.Discovery.GetByArn(ctx, live.Data.ServiceRegistries[0].RegistryArn)
	if err != nil {
		var notFound *model.DoesNotExistError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	svc.Data.ServiceRegistries = nil
	return r.managers.Discovery.Delete(ctx, entry.Data.ID)
}

// reconcileScaling writes the configured scaling setup or tears down a
// live one the config no longer declares.
func (r *Reconciler) reconcileScaling(ctx context.Context, svc *model.Service) error {
	desired, err := svc.AppScaling(ctx)
	if err != nil {
		return err
	}
	if desired != nil {
		return r.managers.Scaling.Save(ctx, desired)
	}
	resourceID := "service/" + svc.Data.ClusterName + "/" + svc.Data.ServiceName
	return r.managers.Scaling.Delete(ctx, resourceID)
}

// reconcileSchedule writes the task's schedule rule, or deletes a stale
// one when the config no longer carries a schedule.
func (r *Reconciler) reconcileSchedule(ctx context.Context, data model.TaskData, tdArn string) error {
	ruleName := model.ScheduleRuleName(data.Name)
	if data.Schedule == "" {
		return r.managers.Schedule.Delete(ctx, ruleName)
	}
	cluster, err := r.managers.Cluster.Get(ctx, data.ClusterName)
	if err != nil {
		return err
	}
	rule := &model.ScheduleRule{
		Source: model.SourceConfig,
		Data: model.ScheduleRuleData{
			Name:                 ruleName,
			ScheduleExpression:   data.Schedule,
			State:                "ENABLED",
			TaskDefinitionArn:    tdArn,
			ClusterArn:           cluster.Data.Arn,
			Count:                data.Count,
			LaunchType:           data.LaunchType,
			PlatformVersion:      data.PlatformVersion,
			Group:                data.Group,
			RoleArn:              data.ScheduleRole,
			NetworkConfiguration: data.NetworkConfiguration,
		},
	}
	return r.managers.Schedule.Save(ctx, rule)
}

// DeleteService removes the service and everything it owns: scaling,
// schedule rules, the service itself and its service discovery entry.
// Task definition revisions are immutable and stay behind.
func (r *Reconciler) DeleteService(ctx context.Context, svc *model.Service) error {
	pk := svc.PK()
	resourceID := "service/" + svc.Data.ClusterName + "/" + svc.Data.ServiceName
	if err := r.managers.Scaling.Delete(ctx, resourceID); err != nil {
		return err
	}
	for _, helper := range svc.HelperTasks() {
		if err := r.managers.Schedule.Delete(ctx, model.ScheduleRuleName(helper.Data.Name)); err != nil {
			return err
		}
	}

	// Read the live record first: it knows the discovery entry's ARN.
	live, err := r.managers.Service.Get(ctx, pk)
	if err != nil {
		var notFound *model.DoesNotExistError
		if errors.As(err, &notFound) {
			r.log.Info().Str("service", pk).Msg("service does not exist, nothing more to delete")
			return nil
		}
		return err
	}
	if err := r.managers.Service.Delete(ctx, pk); err != nil {
		return err
	}
	if len(live.Data.ServiceRegistries) > 0 {
		entry, err := r.managers.Discovery.GetByArn(ctx, live.Data.ServiceRegistries[0].RegistryArn)
		if err != nil {
			var notFound *model.DoesNotExistError
			if errors.As(err, &notFound) {
				return nil
			}
			return err
		}
		if err := r.managers.Discovery.Delete(ctx, entry.Data.ID); err != nil {
			return err
		}
	}
	r.log.Info().Str("service", pk).Msg("service deleted")
	return nil
}

// Scale sets the live service's desired count.
func (r *Reconciler) Scale(ctx context.Context, pk string, count int32) error {
	return r.managers.Service.Scale(ctx, pk, count)
}

// Restart forces a new deployment of the live service.
func (r *Reconciler) Restart(ctx context.Context, pk string) error {
	return r.managers.Service.Restart(ctx, pk)
}

// WaitForStable blocks until the service's deploy settles or the deploy
// timeout elapses.
func (r *Reconciler) WaitForStable(ctx context.Context, pk string) error {
	timeout := r.DeployTimeout
	if timeout <= 0 {
		timeout = DefaultDeployTimeout
	}
	err := r.managers.Service.WaitUntilStable(ctx, pk, timeout)
	var wait *manager.WaitTimeoutError
	if errors.As(err, &wait) {
		return &DeploymentTimeoutError{Service: pk, Timeout: timeout}
	}
	return err
}

// WriteSecrets writes every owned secret to Parameter Store, skipping
// external ones, and returns how many were written.
func (r *Reconciler) WriteSecrets(ctx context.Context, secrets []*model.Secret) (int, error) {
	written := 0
	for _, secret := range secrets {
		if secret.ReadOnly() {
			r.log.Debug().Str("parameter", secret.Name).Msg("skipping external secret")
			continue
		}
		if err := r.managers.Secret.Save(ctx, secret); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}
