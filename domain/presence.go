// Package domain contains core concepts of the real-time service.
// This file defines presence entries and the sets used to report deliveries.
// No runtime, network, or storage logic should be added here.
package domain

import (
	"sort"
	"time"
)

type PresenceStatus string

const (
	ONLINE  PresenceStatus = "ONLINE"
	OFFLINE PresenceStatus = "OFFLINE"
)

// PresenceEntry describes one user currently known online.
// There is at most one entry per user: a newer connection replaces the previous one.
type PresenceEntry struct {
	UserID       string    `json:"userId"`
	ConnectionID string    `json:"connectionId"`
	DisplayName  string    `json:"displayName"`
	Since        time.Time `json:"since"`
}

// PresenceChanged is broadcast to every connection on register and unregister.
type PresenceChanged struct {
	UserID string         `json:"userId"`
	Status PresenceStatus `json:"status"`
}

// UserSet is a set of user identities.
type UserSet map[string]struct{}

func NewUserSet(userIDs ...string) UserSet {
	s := make(UserSet, len(userIDs))
	for _, id := range userIDs {
		s.Add(id)
	}
	return s
}

func (s UserSet) Add(userID string) {
	s[userID] = struct{}{}
}

func (s UserSet) Has(userID string) bool {
	_, ok := s[userID]
	return ok
}

// Slice returns the members sorted, mostly for stable logs and responses.
func (s UserSet) Slice() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
