package adapters

import (
	"sync"
	"time"

	"github.com/ZanzyTHEbar/tube-o-meter/internal/errors"
)

// Data API unit costs
const (
	SearchCost        = 100
	ListCost          = 1
	DefaultDailyQuota = 10000
)

// pacific is where the Data API quota day starts
var pacific = loadPacific()

func loadPacific() *time.Location {
	if loc, err := time.LoadLocation("America/Los_Angeles"); err == nil {
		return loc
	}
	return time.FixedZone("PST", -8*3600)
}

// QuotaUsage is a snapshot of the units charged in the current quota day
type QuotaUsage struct {
	Used      int            `json:"used"`
	Limit     int            `json:"limit"`
	Remaining int            `json:"remaining"`
	Enforced  bool           `json:"enforced"`
	Calls     map[string]int `json:"calls"`
	ResetsAt  time.Time      `json:"resets_at"`
}

// QuotaTracker counts Data API units per quota day. By default the limit is
// informational; when enforced, a call that would overrun it is refused.
type QuotaTracker struct {
	mu       sync.Mutex
	limit    int
	enforce  bool
	used     int
	calls    map[string]int
	day      time.Time
	now      func() time.Time
	observer func(endpoint string, units int)
}

// NewQuotaTracker creates a tracker; a non-positive limit means 10,000
func NewQuotaTracker(limit int, enforce bool) *QuotaTracker {
	if limit <= 0 {
		limit = DefaultDailyQuota
	}
	return &QuotaTracker{
		limit:   limit,
		enforce: enforce,
		calls:   make(map[string]int),
		now:     time.Now,
	}
}

func dayStart(t time.Time) time.Time {
	t = t.In(pacific)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, pacific)
}

// rollover resets the counters when the quota day has changed. Callers hold mu.
func (q *QuotaTracker) rollover() {
	today := dayStart(q.now())
	if !today.Equal(q.day) {
		q.day = today
		q.used = 0
		q.calls = make(map[string]int)
	}
}

// Charge records cost units for endpoint
func (q *QuotaTracker) Charge(endpoint string, cost int) error {
	q.mu.Lock()
	q.rollover()
	if q.enforce && q.used+cost > q.limit {
		used, limit := q.used, q.limit
		q.mu.Unlock()
		return errors.NewQuotaExceededError(used, cost, limit)
	}
	q.used += cost
	q.calls[endpoint]++
	observer := q.observer
	q.mu.Unlock()

	if observer != nil {
		observer(endpoint, cost)
	}
	return nil
}

// Usage returns the current quota day's counters
func (q *QuotaTracker) Usage() QuotaUsage {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.rollover()

	calls := make(map[string]int, len(q.calls))
	for k, v := range q.calls {
		calls[k] = v
	}
	remaining := q.limit - q.used
	if remaining < 0 {
		remaining = 0
	}
	return QuotaUsage{
		Used:      q.used,
		Limit:     q.limit,
		Remaining: remaining,
		Enforced:  q.enforce,
		Calls:     calls,
		ResetsAt:  q.day.AddDate(0, 0, 1),
	}
}
