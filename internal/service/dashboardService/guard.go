package dashboardService

import "sync"

// sequence hands out per-chat monotonically increasing numbers and remembers
// the latest one issued. Telebot runs handlers on separate goroutines, so
// two overlapping searches from one chat are possible; a result is only kept
// when its number is still the latest for the chat.
type sequence struct {
	mu     sync.Mutex
	latest map[int64]uint64
}

func newSequence() *sequence {
	return &sequence{latest: make(map[int64]uint64)}
}

func (s *sequence) next(chatID int64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest[chatID]++
	return s.latest[chatID]
}

func (s *sequence) isLatest(chatID int64, seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest[chatID] == seq
}

// inflight is a non-reentrant per-chat guard: one prediction request at a
// time per chat.
type inflight struct {
	mu    sync.Mutex
	chats map[int64]struct{}
}

func newInflight() *inflight {
	return &inflight{chats: make(map[int64]struct{})}
}

func (f *inflight) acquire(chatID int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, busy := f.chats[chatID]; busy {
		return false
	}
	f.chats[chatID] = struct{}{}
	return true
}

func (f *inflight) release(chatID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.chats, chatID)
}
