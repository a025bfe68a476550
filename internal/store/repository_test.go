// Nutricoach - Personal Nutrition Coaching Backend
// Copyright 2026 Nutricoach Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nutricoach/nutricoach

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/nutricoach/nutricoach/internal/models"
)

func testRepositories(t *testing.T) map[string]Repository {
	t.Helper()
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return map[string]Repository{
		"memory": NewMemoryRepository(),
		"badger": NewBadgerRepository(db),
	}
}

func TestRepositoryProfileRoundTrip(t *testing.T) {
	for name, repo := range testRepositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if _, err := repo.GetProfile(ctx, "ana"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("GetProfile on empty store = %v, want ErrNotFound", err)
			}

			profile := models.UserProfile{
				Name: "ana", Age: 32, WeightKg: 65, HeightCm: 168,
				Sex: models.SexFemale, ActivityLevel: models.ActivityModerate, Goal: models.GoalMaintain,
			}
			if err := repo.UpsertProfile(ctx, profile); err != nil {
				t.Fatalf("UpsertProfile: %v", err)
			}

			got, err := repo.GetProfile(ctx, "ana")
			if err != nil {
				t.Fatalf("GetProfile: %v", err)
			}
			if got.WeightKg != 65 || got.Goal != models.GoalMaintain {
				t.Errorf("profile = %+v, want the stored one", got)
			}

			// Upsert replaces.
			profile.WeightKg = 63
			if err := repo.UpsertProfile(ctx, profile); err != nil {
				t.Fatalf("UpsertProfile: %v", err)
			}
			got, _ = repo.GetProfile(ctx, "ana")
			if got.WeightKg != 63 {
				t.Errorf("weight after upsert = %.1f, want 63", got.WeightKg)
			}
		})
	}
}

func TestRepositoryPlanLastWriteWins(t *testing.T) {
	for name, repo := range testRepositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if _, err := repo.LatestPlan(ctx, "ana"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("LatestPlan on empty store = %v, want ErrNotFound", err)
			}

			first := models.NutritionPlan{User: "ana", MacroTargets: models.MacroBreakdown{Calories: 2000}}
			second := models.NutritionPlan{User: "ana", MacroTargets: models.MacroBreakdown{Calories: 2200}}
			if err := repo.SavePlan(ctx, first); err != nil {
				t.Fatalf("SavePlan: %v", err)
			}
			if err := repo.SavePlan(ctx, second); err != nil {
				t.Fatalf("SavePlan: %v", err)
			}

			got, err := repo.LatestPlan(ctx, "ana")
			if err != nil {
				t.Fatalf("LatestPlan: %v", err)
			}
			if got.MacroTargets.Calories != 2200 {
				t.Errorf("latest plan calories = %.0f, want 2200", got.MacroTargets.Calories)
			}
		})
	}
}

func TestRepositoryLogsOrderedAndIsolated(t *testing.T) {
	for name, repo := range testRepositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

			for i := 0; i < 3; i++ {
				log := models.DailyLog{User: "ana", Date: base.AddDate(0, 0, i)}
				if err := repo.AppendLog(ctx, log); err != nil {
					t.Fatalf("AppendLog: %v", err)
				}
			}
			if err := repo.AppendLog(ctx, models.DailyLog{User: "bruno", Date: base}); err != nil {
				t.Fatalf("AppendLog: %v", err)
			}

			logs, err := repo.Logs(ctx, "ana")
			if err != nil {
				t.Fatalf("Logs: %v", err)
			}
			if len(logs) != 3 {
				t.Fatalf("logs = %d, want 3 (no cross-user leakage)", len(logs))
			}
			for i := 1; i < len(logs); i++ {
				if logs[i].Date.Before(logs[i-1].Date) {
					t.Errorf("logs out of order: %v before %v", logs[i].Date, logs[i-1].Date)
				}
			}

			empty, err := repo.Logs(ctx, "nobody")
			if err != nil {
				t.Fatalf("Logs: %v", err)
			}
			if len(empty) != 0 {
				t.Errorf("logs for unknown user = %d, want 0", len(empty))
			}
		})
	}
}

func TestRepositoryDashboardAndReset(t *testing.T) {
	for name, repo := range testRepositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			board := models.DashboardState{
				User:        "ana",
				LastUpdated: time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC),
			}
			if err := repo.SaveDashboard(ctx, board); err != nil {
				t.Fatalf("SaveDashboard: %v", err)
			}
			if err := repo.UpsertProfile(ctx, models.UserProfile{Name: "ana", Age: 30, WeightKg: 60, HeightCm: 165, Sex: models.SexFemale, ActivityLevel: models.ActivityLight, Goal: models.GoalCut}); err != nil {
				t.Fatalf("UpsertProfile: %v", err)
			}
			if err := repo.AppendLog(ctx, models.DailyLog{User: "ana", Date: board.LastUpdated}); err != nil {
				t.Fatalf("AppendLog: %v", err)
			}

			got, err := repo.Dashboard(ctx, "ana")
			if err != nil {
				t.Fatalf("Dashboard: %v", err)
			}
			if !got.LastUpdated.Equal(board.LastUpdated) {
				t.Errorf("dashboard last updated = %v, want %v", got.LastUpdated, board.LastUpdated)
			}

			if err := repo.Reset(ctx, "ana"); err != nil {
				t.Fatalf("Reset: %v", err)
			}
			if _, err := repo.Dashboard(ctx, "ana"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Dashboard after reset = %v, want ErrNotFound", err)
			}
			if _, err := repo.GetProfile(ctx, "ana"); !errors.Is(err, ErrNotFound) {
				t.Errorf("GetProfile after reset = %v, want ErrNotFound", err)
			}
			logs, _ := repo.Logs(ctx, "ana")
			if len(logs) != 0 {
				t.Errorf("logs after reset = %d, want 0", len(logs))
			}
		})
	}
}
