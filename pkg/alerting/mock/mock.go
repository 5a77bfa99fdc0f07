package mock

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/fleetops/fleetops/pkg/alerting"
)

// Silencer keeps silences in memory and records the order of operations.
type Silencer struct {
	mu       sync.Mutex
	next     int
	active   map[alerting.SilenceID][]string
	Events   []string
	AddErr   error
	QueryErr error
}

func NewSilencer() *Silencer {
	return &Silencer{active: map[alerting.SilenceID][]string{}}
}

func (s *Silencer) AddSilence(_ context.Context, matchers []string, _ time.Duration, _ string) (alerting.SilenceID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.AddErr != nil {
		return "", s.AddErr
	}
	s.next++
	id := alerting.SilenceID(fmt.Sprintf("silence-%d", s.next))
	s.active[id] = append([]string{}, matchers...)
	s.Events = append(s.Events, fmt.Sprintf("add %s %v", id, matchers))
	return id, nil
}

// QuerySilences returns active silences carrying every given matcher.
func (s *Silencer) QuerySilences(_ context.Context, matchers []string) ([]alerting.Silence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.QueryErr != nil {
		return nil, s.QueryErr
	}

	found := []alerting.Silence{}
	for id, silenceMatchers := range s.active {
		matches := true
		for _, m := range matchers {
			if !slices.Contains(silenceMatchers, m) {
				matches = false
				break
			}
		}
		if matches {
			found = append(found, alerting.Silence{ID: id})
		}
	}
	slices.SortFunc(found, func(a, b alerting.Silence) int {
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return found, nil
}

func (s *Silencer) ExpireSilences(_ context.Context, ids []alerting.SilenceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if _, present := s.active[id]; !present {
			return fmt.Errorf("silence %s not found", id)
		}
		delete(s.active, id)
		s.Events = append(s.Events, fmt.Sprintf("expire %s", id))
	}
	return nil
}

func (s *Silencer) Active() []alerting.SilenceID {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := []alerting.SilenceID{}
	for id := range s.active {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
