package faults

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultReporterCapacity is the default ring size of a Reporter.
const DefaultReporterCapacity = 100

// Entry is one recorded fault.
type Entry struct {
	ID       string    `json:"id"`
	Time     time.Time `json:"time"`
	Code     string    `json:"code"`
	Category string    `json:"category"`
	Severity string    `json:"severity"`
	Message  string    `json:"message"`
}

// Reporter accumulates recent faults in a bounded ring. It is safe for
// concurrent use; multiple extractors share one instance. Construct it
// explicitly and inject it; Clear exists for test isolation.
type Reporter struct {
	mu       sync.Mutex
	entries  []Entry
	capacity int
	total    int
}

// NewReporter creates a reporter keeping at most capacity entries. A
// capacity of zero or less uses DefaultReporterCapacity.
func NewReporter(capacity int) *Reporter {
	if capacity <= 0 {
		capacity = DefaultReporterCapacity
	}
	return &Reporter{capacity: capacity}
}

// Report records an error. Plain errors are wrapped into a validation-class
// fault first. Nil errors and nil reporters are ignored, so call sites do
// not need their own guards.
func (r *Reporter) Report(err error) {
	if r == nil || err == nil {
		return
	}

	var f *Fault
	if !errors.As(err, &f) {
		f = New(CategoryOf(err), SeverityOf(err), err.Error(), nil)
	}

	entry := Entry{
		ID:       uuid.New().String(),
		Time:     time.Now(),
		Code:     f.Code,
		Category: f.Category.String(),
		Severity: f.Severity.String(),
		Message:  f.Message,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.total++
	r.entries = append(r.entries, entry)
	if len(r.entries) > r.capacity {
		r.entries = r.entries[len(r.entries)-r.capacity:]
	}
}

// Recent returns up to n most recent entries, newest last.
func (r *Reporter) Recent(n int) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n <= 0 || n > len(r.entries) {
		n = len(r.entries)
	}
	out := make([]Entry, n)
	copy(out, r.entries[len(r.entries)-n:])
	return out
}

// Total returns the number of faults reported since the last Clear,
// including entries already evicted from the ring.
func (r *Reporter) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

// Clear drops all recorded entries.
func (r *Reporter) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
	r.total = 0
}
