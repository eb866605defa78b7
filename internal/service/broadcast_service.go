package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"wablast-backend/internal/apperr"
	"wablast-backend/internal/dashboard"
	"wablast-backend/internal/model"

	"github.com/rs/zerolog/log"
)

// Sender is the outbound side of the messaging session.
type Sender interface {
	IsConnected() bool
	Send(ctx context.Context, phone, text string) error
}

// HistoryStore persists completed broadcast runs.
type HistoryStore interface {
	Append(run *model.BroadcastRun) error
	List(limit int) ([]*model.BroadcastRun, error)
}

// BroadcastService runs one broadcast at a time: a snapshot of the set is
// read once, then each contact gets a single send attempt in stored order
// with a randomized pause between attempts. Per-recipient failures are
// counted and logged, never retried, and never abort the run.
type BroadcastService struct {
	Contacts ContactStore
	History  HistoryStore
	State    *dashboard.State
	Sender   Sender

	BaseDelay time.Duration
	Jitter    time.Duration

	// sleep is swappable so tests run without real delays.
	sleep func(time.Duration)

	mu      sync.Mutex
	running bool
}

func NewBroadcastService(contacts ContactStore, history HistoryStore, state *dashboard.State, sender Sender, baseDelay, jitter time.Duration) *BroadcastService {
	return &BroadcastService{
		Contacts:  contacts,
		History:   history,
		State:     state,
		Sender:    sender,
		BaseDelay: baseDelay,
		Jitter:    jitter,
		sleep:     time.Sleep,
	}
}

// Broadcast sends message to every contact of the set and returns the
// final counters. The run cannot be canceled once started.
func (s *BroadcastService) Broadcast(ctx context.Context, setName, message string) (*model.BroadcastRun, error) {
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("empty message: %w", apperr.ErrInvalid)
	}
	if !s.Sender.IsConnected() {
		return nil, apperr.ErrUnavailable
	}

	set, err := s.Contacts.GetSetByName(setName)
	if err != nil {
		return nil, err
	}
	// Snapshot once; mutations during the run are not observed.
	contacts, err := s.Contacts.GetContacts(set.ID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, fmt.Errorf("a broadcast is already running: %w", apperr.ErrConflict)
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	run := &model.BroadcastRun{
		SetName: setName,
		Message: message,
		Total:   len(contacts),
	}
	s.State.ResetRun(run.Total)

	for i, c := range contacts {
		label := c.Phone
		if c.Name != "" {
			label = fmt.Sprintf("%s (%s)", c.Phone, c.Name)
		}

		if err := s.Sender.Send(ctx, c.Phone, message); err != nil {
			run.Failed++
			s.State.RecordFailed(fmt.Sprintf("Failed to send to %s: %v", label, err))
		} else {
			run.Sent++
			s.State.RecordSent(fmt.Sprintf("Sent to %s", label))
		}

		if i < len(contacts)-1 {
			s.sleep(s.throttleDelay())
		}
	}

	if err := s.History.Append(run); err != nil {
		// Counters are still valid; losing the record is the accepted
		// non-transactional gap between run state and history.
		log.Error().Err(err).Str("set", setName).Msg("failed to append broadcast history")
	}
	return run, nil
}

// throttleDelay is the only outbound backpressure: a uniform draw from
// [BaseDelay, BaseDelay+Jitter), unconditionally applied between sends.
func (s *BroadcastService) throttleDelay() time.Duration {
	if s.Jitter <= 0 {
		return s.BaseDelay
	}
	return s.BaseDelay + time.Duration(rand.Int63n(int64(s.Jitter)))
}

func (s *BroadcastService) ListHistory(limit int) ([]*model.BroadcastRun, error) {
	return s.History.List(limit)
}
