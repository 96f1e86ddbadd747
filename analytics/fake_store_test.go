package analytics

import (
	"context"
	"sort"
	"sync"
	"time"

	"balramcms/api/models"
)

// memStore is an in-memory EventStore with optional injected failures.
type memStore struct {
	mu     sync.Mutex
	events []models.TelemetryEvent

	insertErr  error
	countErr   map[string]error
	sessionErr error
	avgErr     error
	topErr     error
}

func (s *memStore) InsertEvents(_ context.Context, events []models.TelemetryEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	s.events = append(s.events, events...)
	return nil
}

func (s *memStore) CountEvents(_ context.Context, eventType string, since time.Time) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.countErr[eventType]; err != nil {
		return 0, err
	}
	var n uint64
	for _, e := range s.events {
		if e.EventType == eventType && !e.Timestamp.Before(since) {
			n++
		}
	}
	return n, nil
}

func (s *memStore) CountSessions(_ context.Context, since time.Time) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessionErr != nil {
		return 0, s.sessionErr
	}
	seen := map[string]struct{}{}
	for _, e := range s.events {
		if !e.Timestamp.Before(since) {
			seen[e.SessionID] = struct{}{}
		}
	}
	return uint64(len(seen)), nil
}

func (s *memStore) AveragePayloadNumber(_ context.Context, eventType, key string, since time.Time) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.avgErr != nil {
		return 0, s.avgErr
	}
	var sum float64
	var n int
	for _, e := range s.events {
		if e.EventType != eventType || e.Timestamp.Before(since) {
			continue
		}
		if v, ok := e.Payload[key].(float64); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return sum / float64(n), nil
}

func (s *memStore) TopPayloadValues(_ context.Context, eventType, key string, since time.Time, limit int) ([]models.TopSubject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.topErr != nil {
		return nil, s.topErr
	}
	counts := map[string]uint64{}
	var order []string
	for _, e := range s.events {
		if e.EventType != eventType || e.Timestamp.Before(since) {
			continue
		}
		v, ok := e.Payload[key].(string)
		if !ok {
			continue
		}
		if _, seen := counts[v]; !seen {
			order = append(order, v)
		}
		counts[v]++
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if len(order) > limit {
		order = order[:limit]
	}
	var out []models.TopSubject
	for _, v := range order {
		out = append(out, models.TopSubject{Subject: v, Views: counts[v]})
	}
	return out, nil
}

type stubArchiver struct {
	batches [][]models.TelemetryEvent
	accept  bool
}

func (a *stubArchiver) Submit(events []models.TelemetryEvent) bool {
	a.batches = append(a.batches, events)
	return a.accept
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}
