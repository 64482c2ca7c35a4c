package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	UsersCreated              uint64 `json:"users_created"`
	UsersUpdated              uint64 `json:"users_updated"`
	UsersDeleted              uint64 `json:"users_deleted"`
	UsersRejected             uint64 `json:"users_rejected"`
	ValidationsValid          uint64 `json:"validations_valid"`
	ValidationsInvalid        uint64 `json:"validations_invalid"`
	ValidationsUnavailable    uint64 `json:"validations_unavailable"`
	ValidationDurationTotalNs int64  `json:"validation_duration_total_ns"`
}

// InMemoryRecorder stores metrics in memory for tests and the dev metrics endpoint.
type InMemoryRecorder struct {
	usersCreated              uint64
	usersUpdated              uint64
	usersDeleted              uint64
	usersRejected             uint64
	validationsValid          uint64
	validationsInvalid        uint64
	validationsUnavailable    uint64
	validationDurationTotalNs int64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		UsersCreated:              atomic.LoadUint64(&m.usersCreated),
		UsersUpdated:              atomic.LoadUint64(&m.usersUpdated),
		UsersDeleted:              atomic.LoadUint64(&m.usersDeleted),
		UsersRejected:             atomic.LoadUint64(&m.usersRejected),
		ValidationsValid:          atomic.LoadUint64(&m.validationsValid),
		ValidationsInvalid:        atomic.LoadUint64(&m.validationsInvalid),
		ValidationsUnavailable:    atomic.LoadUint64(&m.validationsUnavailable),
		ValidationDurationTotalNs: atomic.LoadInt64(&m.validationDurationTotalNs),
	}
}

// IncUserCreated increments user created counter.
func (m *InMemoryRecorder) IncUserCreated() {
	atomic.AddUint64(&m.usersCreated, 1)
}

// IncUserUpdated increments user updated counter.
func (m *InMemoryRecorder) IncUserUpdated() {
	atomic.AddUint64(&m.usersUpdated, 1)
}

// IncUserDeleted increments user deleted counter.
func (m *InMemoryRecorder) IncUserDeleted() {
	atomic.AddUint64(&m.usersDeleted, 1)
}

// IncUserRejected increments the counter of creations refused for an invalid email.
func (m *InMemoryRecorder) IncUserRejected() {
	atomic.AddUint64(&m.usersRejected, 1)
}

// ObserveValidationCall records the outcome and duration of a validation call.
func (m *InMemoryRecorder) ObserveValidationCall(outcome string, duration time.Duration) {
	switch outcome {
	case OutcomeValid:
		atomic.AddUint64(&m.validationsValid, 1)
	case OutcomeInvalid:
		atomic.AddUint64(&m.validationsInvalid, 1)
	default:
		atomic.AddUint64(&m.validationsUnavailable, 1)
	}
	atomic.AddInt64(&m.validationDurationTotalNs, duration.Nanoseconds())
}
