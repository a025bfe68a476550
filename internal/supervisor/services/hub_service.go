// Nutricoach - Personal Nutrition Coaching Backend
// Copyright 2026 Nutricoach Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nutricoach/nutricoach

package services

import (
	"context"
)

// HubRunner matches *realtime.Hub's Serve method without importing
// the realtime package.
type HubRunner interface {
	Serve(ctx context.Context) error
}

// HubService wraps the realtime hub as a supervised service. The hub
// already follows the suture.Service pattern, so the wrapper only
// delegates and provides a name for logging.
type HubService struct {
	hub  HubRunner
	name string
}

// NewHubService creates the wrapper.
func NewHubService(hub HubRunner) *HubService {
	return &HubService{
		hub:  hub,
		name: "realtime-hub",
	}
}

// Serve implements suture.Service. The hub returns ctx.Err() on
// normal shutdown after closing all connected clients.
func (s *HubService) Serve(ctx context.Context) error {
	return s.hub.Serve(ctx)
}

// String implements fmt.Stringer; suture uses it in log messages.
func (s *HubService) String() string {
	return s.name
}
