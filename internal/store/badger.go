// Nutricoach - Personal Nutrition Coaching Backend
// Copyright 2026 Nutricoach Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nutricoach/nutricoach

package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/nutricoach/nutricoach/internal/models"
)

// Key prefixes for BadgerDB storage
const (
	profileKeyPrefix   = "profile:"
	planKeyPrefix      = "plan:"
	logKeyPrefix       = "log:"
	dashboardKeyPrefix = "dashboard:"
)

// BadgerRepository implements Repository using BadgerDB for durable
// storage. Suitable for production use with persistence across
// restarts.
type BadgerRepository struct {
	db *badger.DB

	// seq disambiguates log keys appended within the same nanosecond.
	seq atomic.Uint64
}

// NewBadgerRepository wraps an already-opened BadgerDB handle.
func NewBadgerRepository(db *badger.DB) *BadgerRepository {
	return &BadgerRepository{db: db}
}

// OpenBadger opens (or creates) a BadgerDB at dir and returns a
// repository over it. The caller owns closing the returned DB.
func OpenBadger(dir string) (*BadgerRepository, *badger.DB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("open badger: %w", err)
	}
	return NewBadgerRepository(db), db, nil
}

// UpsertProfile stores or replaces a user profile.
func (r *BadgerRepository) UpsertProfile(_ context.Context, profile models.UserProfile) error {
	return r.setJSON(profileKeyPrefix+profile.Name, profile)
}

// GetProfile returns the stored profile for a user.
func (r *BadgerRepository) GetProfile(_ context.Context, user string) (models.UserProfile, error) {
	var profile models.UserProfile
	err := r.getJSON(profileKeyPrefix+user, &profile)
	return profile, err
}

// SavePlan stores the current plan for the plan's user.
func (r *BadgerRepository) SavePlan(_ context.Context, plan models.NutritionPlan) error {
	return r.setJSON(planKeyPrefix+plan.User, plan)
}

// LatestPlan returns the most recently saved plan for a user.
func (r *BadgerRepository) LatestPlan(_ context.Context, user string) (models.NutritionPlan, error) {
	var plan models.NutritionPlan
	err := r.getJSON(planKeyPrefix+user, &plan)
	return plan, err
}

// AppendLog appends a diary log under a monotonic sequence key so
// prefix iteration returns logs in insertion order.
func (r *BadgerRepository) AppendLog(_ context.Context, log models.DailyLog) error {
	data, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("marshal log: %w", err)
	}
	key := fmt.Sprintf("%s%s:%020d:%06d", logKeyPrefix, log.User, time.Now().UnixNano(), r.seq.Add(1))
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// Logs returns the user's diary history in insertion order.
func (r *BadgerRepository) Logs(_ context.Context, user string) ([]models.DailyLog, error) {
	var logs []models.DailyLog
	prefix := []byte(logKeyPrefix + user + ":")
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var log models.DailyLog
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &log)
			}); err != nil {
				return fmt.Errorf("unmarshal log: %w", err)
			}
			logs = append(logs, log)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(logs, func(i, j int) bool { return logs[i].Date.Before(logs[j].Date) })
	return logs, nil
}

// SaveDashboard stores the latest dashboard for the dashboard's user.
func (r *BadgerRepository) SaveDashboard(_ context.Context, dashboard models.DashboardState) error {
	return r.setJSON(dashboardKeyPrefix+dashboard.User, dashboard)
}

// Dashboard returns the stored dashboard for a user.
func (r *BadgerRepository) Dashboard(_ context.Context, user string) (models.DashboardState, error) {
	var dashboard models.DashboardState
	err := r.getJSON(dashboardKeyPrefix+user, &dashboard)
	return dashboard, err
}

// Reset removes every record for the user.
func (r *BadgerRepository) Reset(_ context.Context, user string) error {
	return r.db.Update(func(txn *badger.Txn) error {
		for _, key := range []string{
			profileKeyPrefix + user,
			planKeyPrefix + user,
			dashboardKeyPrefix + user,
		} {
			if err := txn.Delete([]byte(key)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("delete %s: %w", key, err)
			}
		}
		prefix := []byte(logKeyPrefix + user + ":")
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		var keys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return fmt.Errorf("delete log: %w", err)
			}
		}
		return nil
	})
}

func (r *BadgerRepository) setJSON(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

func (r *BadgerRepository) getJSON(key string, out any) error {
	return r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get %s: %w", key, err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
}
