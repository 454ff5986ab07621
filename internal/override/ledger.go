package override

import (
	"sync"
	"time"
)

// DefaultTTL is how long a local submission masks the stored status.
const DefaultTTL = 24 * time.Hour

// Key identifies an equipment item by whichever handles the caller has.
// Either field may be empty, but not both.
type Key struct {
	Barcode string
	ID      string
}

func (k Key) valid() bool {
	return k.Barcode != "" || k.ID != ""
}

// Ledger records local submissions so a just-completed check shows as done
// before the store confirms it. Entries expire at read time; nothing sweeps them.
type Ledger struct {
	mu        sync.RWMutex
	ttl       time.Duration
	byBarcode map[string]time.Time
	byID      map[string]time.Time
}

// NewLedger creates an empty ledger. A non-positive ttl uses DefaultTTL.
func NewLedger(ttl time.Duration) *Ledger {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Ledger{
		ttl:       ttl,
		byBarcode: make(map[string]time.Time),
		byID:      make(map[string]time.Time),
	}
}

// TTL returns the expiry window.
func (l *Ledger) TTL() time.Duration {
	return l.ttl
}

// Mark records a local submission at `at` under both handles of k.
// Expired entries are dropped on the way.
func (l *Ledger) Mark(k Key, at time.Time) {
	if !k.valid() {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.pruneLocked(at)
	if k.Barcode != "" {
		l.byBarcode[k.Barcode] = at
	}
	if k.ID != "" {
		l.byID[k.ID] = at
	}
}

// Lookup returns the most recent mark recorded under either handle of k,
// regardless of expiry.
func (l *Ledger) Lookup(k Key) (time.Time, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	b, okB := l.byBarcode[k.Barcode]
	if k.Barcode == "" {
		okB = false
	}
	i, okI := l.byID[k.ID]
	if k.ID == "" {
		okI = false
	}

	switch {
	case okB && okI:
		if i.After(b) {
			return i, true
		}
		return b, true
	case okB:
		return b, true
	case okI:
		return i, true
	}
	return time.Time{}, false
}

// Active reports whether k has an unexpired mark at now.
func (l *Ledger) Active(k Key, now time.Time) bool {
	at, ok := l.Lookup(k)
	if !ok {
		return false
	}
	return now.Sub(at) < l.ttl
}

// Forget removes both handles of k.
func (l *Ledger) Forget(k Key) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if k.Barcode != "" {
		delete(l.byBarcode, k.Barcode)
	}
	if k.ID != "" {
		delete(l.byID, k.ID)
	}
}

// Len returns the number of stored handles, expired or not.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.byBarcode) + len(l.byID)
}

// Prune drops entries already expired at now and returns how many handles went.
func (l *Ledger) Prune(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pruneLocked(now)
}

func (l *Ledger) pruneLocked(now time.Time) int {
	n := 0
	for k, at := range l.byBarcode {
		if now.Sub(at) >= l.ttl {
			delete(l.byBarcode, k)
			n++
		}
	}
	for k, at := range l.byID {
		if now.Sub(at) >= l.ttl {
			delete(l.byID, k)
			n++
		}
	}
	return n
}
