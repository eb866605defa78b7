package dashboard

import (
	"sync"
	"time"

	"wablast-backend/internal/model"
)

const (
	EventStatus   = "status"
	EventQR       = "qr"
	EventProgress = "progress"
	EventLogs     = "logs"
)

// State is the single owned session/run context: connection status, the
// pending pairing payload, broadcast progress counters and the log buffer.
// Every mutation publishes the new value to the hub. The process has
// exactly one State; it is re-initialized in place on reconnect.
type State struct {
	mu       sync.RWMutex
	hub      *Hub
	status   model.SessionStatus
	qr       *string
	progress model.Progress
	logs     []string
}

func NewState() *State {
	s := &State{
		status: model.SessionStatusDisconnected,
		logs:   []string{},
	}
	s.hub = NewHub(s.snapshotEvents)
	return s
}

func (s *State) Hub() *Hub { return s.hub }

func (s *State) SetStatus(status model.SessionStatus) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
	s.hub.Publish(EventStatus, status)
}

func (s *State) Status() model.SessionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// SetQR publishes a new pairing payload; nil clears it.
func (s *State) SetQR(qr *string) {
	s.mu.Lock()
	s.qr = qr
	s.mu.Unlock()
	s.hub.Publish(EventQR, qr)
}

// ResetRun clears the counters and log buffer for a new broadcast and
// publishes the reset state.
func (s *State) ResetRun(total int) {
	s.mu.Lock()
	s.progress = model.Progress{Total: total}
	s.logs = []string{}
	progress := s.progress
	logs := s.logsCopyLocked()
	s.mu.Unlock()

	s.hub.Publish(EventProgress, progress)
	s.hub.Publish(EventLogs, logs)
}

// RecordSent counts one successful send and appends its log line.
func (s *State) RecordSent(line string) {
	s.record(line, func(p *model.Progress) { p.Sent++ })
}

// RecordFailed counts one failed send and appends its log line.
func (s *State) RecordFailed(line string) {
	s.record(line, func(p *model.Progress) { p.Failed++ })
}

func (s *State) record(line string, bump func(*model.Progress)) {
	s.mu.Lock()
	bump(&s.progress)
	s.logs = append(s.logs, line)
	progress := s.progress
	logs := s.logsCopyLocked()
	s.mu.Unlock()

	s.hub.Publish(EventProgress, progress)
	s.hub.Publish(EventLogs, logs)
}

func (s *State) Progress() model.Progress {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.progress
}

func (s *State) logsCopyLocked() []string {
	logs := make([]string, len(s.logs))
	copy(logs, s.logs)
	return logs
}

// snapshotEvents materializes the current value of all four event kinds
// for a newly connected observer.
func (s *State) snapshotEvents() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	return []Event{
		{Type: EventStatus, Data: s.status, Timestamp: now},
		{Type: EventQR, Data: s.qr, Timestamp: now},
		{Type: EventProgress, Data: s.progress, Timestamp: now},
		{Type: EventLogs, Data: s.logsCopyLocked(), Timestamp: now},
	}
}
