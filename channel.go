package scandir

import "sync"

// resultStore buffers the entries and errors produced by the walker and
// hands them to consumers through offset-tracked drains. Pushes never
// block; a drain copies the selected window out under the lock.
//
// Offsets implement the only-new protocol: each buffer keeps the index one
// past the last item returned by an only-new drain. Consecutive only-new
// drains therefore deliver every item exactly once, in push order. A full
// drain returns everything retained and leaves the offset alone.
//
// With retention disabled (store=false) every drain evicts what it just
// returned, so the two drain modes coincide and memory stays bounded by
// the drain cadence instead of the tree size.
type resultStore struct {
	mu       sync.Mutex
	store    bool
	entries  []Entry
	errors   []ScanError
	entryOff int
	errorOff int
}

func newResultStore(store bool) *resultStore {
	return &resultStore{store: store}
}

func (s *resultStore) pushEntry(e Entry) {
	s.mu.Lock()
	s.entries = append(s.entries, e)
	s.mu.Unlock()
}

func (s *resultStore) pushError(e ScanError) {
	s.mu.Lock()
	s.errors = append(s.errors, e)
	s.mu.Unlock()
}

func (s *resultStore) drainEntries(onlyNew bool) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	from := 0
	if onlyNew {
		from = s.entryOff
	}
	out := make([]Entry, len(s.entries)-from)
	copy(out, s.entries[from:])

	switch {
	case !s.store:
		// Nil rather than reslice: eviction exists to release memory.
		s.entries = nil
		s.entryOff = 0
	case onlyNew:
		s.entryOff = len(s.entries)
	}
	return out
}

func (s *resultStore) drainErrors(onlyNew bool) []ScanError {
	s.mu.Lock()
	defer s.mu.Unlock()

	from := 0
	if onlyNew {
		from = s.errorOff
	}
	out := make([]ScanError, len(s.errors)-from)
	copy(out, s.errors[from:])

	switch {
	case !s.store:
		s.errors = nil
		s.errorOff = 0
	case onlyNew:
		s.errorOff = len(s.errors)
	}
	return out
}

// entriesCount reports how many entries a drain with the same flag would
// return, without consuming anything.
func (s *resultStore) entriesCount(onlyNew bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if onlyNew {
		return len(s.entries) - s.entryOff
	}
	return len(s.entries)
}

func (s *resultStore) errorsCount(onlyNew bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if onlyNew {
		return len(s.errors) - s.errorOff
	}
	return len(s.errors)
}

// reset drops both buffers and their offsets.
func (s *resultStore) reset() {
	s.mu.Lock()
	s.entries = nil
	s.errors = nil
	s.entryOff = 0
	s.errorOff = 0
	s.mu.Unlock()
}
