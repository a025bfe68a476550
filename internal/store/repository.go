// Nutricoach - Personal Nutrition Coaching Backend
// Copyright 2026 Nutricoach Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nutricoach/nutricoach

// Package store provides the Repository abstraction for user profiles,
// plans, diary logs, and dashboards, with an in-memory implementation
// for tests and a BadgerDB implementation for durable deployments.
package store

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/nutricoach/nutricoach/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// Repository is the persistence boundary of the pipeline. All reads
// are read-your-writes per user key; racing writers for the same user
// resolve last-write-wins.
type Repository interface {
	UpsertProfile(ctx context.Context, profile models.UserProfile) error
	GetProfile(ctx context.Context, user string) (models.UserProfile, error)

	SavePlan(ctx context.Context, plan models.NutritionPlan) error
	LatestPlan(ctx context.Context, user string) (models.NutritionPlan, error)

	AppendLog(ctx context.Context, log models.DailyLog) error
	Logs(ctx context.Context, user string) ([]models.DailyLog, error)

	SaveDashboard(ctx context.Context, dashboard models.DashboardState) error
	Dashboard(ctx context.Context, user string) (models.DashboardState, error)

	// Reset removes all records for one user.
	Reset(ctx context.Context, user string) error
}

// MemoryRepository is a map-backed Repository for tests and dev runs.
type MemoryRepository struct {
	mu         sync.RWMutex
	profiles   map[string]models.UserProfile
	plans      map[string]models.NutritionPlan
	logs       map[string][]models.DailyLog
	dashboards map[string]models.DashboardState
}

// NewMemoryRepository returns an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		profiles:   make(map[string]models.UserProfile),
		plans:      make(map[string]models.NutritionPlan),
		logs:       make(map[string][]models.DailyLog),
		dashboards: make(map[string]models.DashboardState),
	}
}

// UpsertProfile stores or replaces a user profile.
func (r *MemoryRepository) UpsertProfile(_ context.Context, profile models.UserProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[profile.Name] = profile
	return nil
}

// GetProfile returns the stored profile for a user.
func (r *MemoryRepository) GetProfile(_ context.Context, user string) (models.UserProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	profile, ok := r.profiles[user]
	if !ok {
		return models.UserProfile{}, ErrNotFound
	}
	return profile, nil
}

// SavePlan stores the current plan for the plan's user.
func (r *MemoryRepository) SavePlan(_ context.Context, plan models.NutritionPlan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plans[plan.User] = plan
	return nil
}

// LatestPlan returns the most recently saved plan for a user.
func (r *MemoryRepository) LatestPlan(_ context.Context, user string) (models.NutritionPlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	plan, ok := r.plans[user]
	if !ok {
		return models.NutritionPlan{}, ErrNotFound
	}
	return plan, nil
}

// AppendLog appends a diary log to the user's history.
func (r *MemoryRepository) AppendLog(_ context.Context, log models.DailyLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs[log.User] = append(r.logs[log.User], log)
	return nil
}

// Logs returns the user's diary history ordered by date.
func (r *MemoryRepository) Logs(_ context.Context, user string) ([]models.DailyLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	logs := make([]models.DailyLog, len(r.logs[user]))
	copy(logs, r.logs[user])
	sort.SliceStable(logs, func(i, j int) bool { return logs[i].Date.Before(logs[j].Date) })
	return logs, nil
}

// SaveDashboard stores the latest dashboard for the dashboard's user.
func (r *MemoryRepository) SaveDashboard(_ context.Context, dashboard models.DashboardState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dashboards[dashboard.User] = dashboard
	return nil
}

// Dashboard returns the stored dashboard for a user.
func (r *MemoryRepository) Dashboard(_ context.Context, user string) (models.DashboardState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	dashboard, ok := r.dashboards[user]
	if !ok {
		return models.DashboardState{}, ErrNotFound
	}
	return dashboard, nil
}

// Reset removes every record for the user.
func (r *MemoryRepository) Reset(_ context.Context, user string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.profiles, user)
	delete(r.plans, user)
	delete(r.logs, user)
	delete(r.dashboards, user)
	return nil
}
