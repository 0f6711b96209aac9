package ratelimit

import (
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type ModelTier string

const (
	TierStandard ModelTier = "standard"
	TierDegraded ModelTier = "degraded"
)

// degradeAfter is the error count above which the cheaper model tier is used.
const degradeAfter = 2

// MaxCooldown caps the exponential cooldown.
const MaxCooldown = 30 * time.Minute

// Transition is the outcome of recording a quota error.
type Transition int

const (
	// Rotated means the pool moved to another key and the caller may retry.
	Rotated Transition = iota
	// CooledDown means the generative API is bypassed until the cooldown ends.
	CooledDown
)

func (t Transition) String() string {
	if t == CooledDown {
		return "cooldown"
	}
	return "rotated"
}

// State is a point-in-time copy of the limiter.
type State struct {
	ErrorCount    int        `json:"errorCount"`
	CooldownUntil *time.Time `json:"cooldownUntil"`
	InCooldown    bool       `json:"inCooldown"`
	CurrentTier   ModelTier  `json:"currentModel"`
	LastError     string     `json:"lastError,omitempty"`
	KeyIndex      int        `json:"keyIndex"`
	PoolSize      int        `json:"poolSize"`
}

// Limiter tracks consecutive quota failures and the cooldown deadline for a
// KeyPool. Cooldown expiry is evaluated lazily on each query.
type Limiter struct {
	mu            sync.Mutex
	pool          *KeyPool
	errorCount    int
	cooldownUntil time.Time
	currentTier   ModelTier
	lastError     string
	logger        *logrus.Entry
}

func NewLimiter(pool *KeyPool) *Limiter {
	return &Limiter{
		pool:        pool,
		currentTier: TierStandard,
		logger:      logrus.WithField("component", "ratelimit"),
	}
}

func (l *Limiter) Pool() *KeyPool {
	return l.pool
}

// IsAvailable reports whether the generative API may be called at now.
func (l *Limiter) IsAvailable(now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cooldownUntil.IsZero() || !now.Before(l.cooldownUntil)
}

// SelectTier picks the model tier for the next attempt from the error count.
func (l *Limiter) SelectTier() ModelTier {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.currentTier = TierFor(l.errorCount)
	return l.currentTier
}

func TierFor(errorCount int) ModelTier {
	if errorCount > degradeAfter {
		return TierDegraded
	}
	return TierStandard
}

// CooldownFor returns the cooldown after the k-th consecutive quota error:
// min(30, 2^(k-1)) minutes.
func CooldownFor(errorCount int) time.Duration {
	if errorCount < 1 {
		errorCount = 1
	}
	minutes := math.Pow(2, float64(errorCount-1))
	if minutes >= MaxCooldown.Minutes() {
		return MaxCooldown
	}
	return time.Duration(minutes * float64(time.Minute))
}

// RecordSuccess clears the error count and any cooldown.
func (l *Limiter) RecordSuccess() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errorCount = 0
	l.cooldownUntil = time.Time{}
	l.lastError = ""
}

// RecordQuotaError applies the quota transition for a failure on the key at
// usedIndex. With more than one key the pool rotates; with a single key the
// limiter enters cooldown.
func (l *Limiter) RecordQuotaError(usedIndex int, now time.Time, cause error) Transition {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.errorCount++
	if cause != nil {
		l.lastError = cause.Error()
	}

	if l.pool.Size() > 1 {
		next, moved := l.pool.RotateFrom(usedIndex)
		l.logger.WithFields(logrus.Fields{
			"error_count": l.errorCount,
			"key":         next + 1,
			"pool_size":   l.pool.Size(),
			"rotated":     moved,
		}).Warn("Quota error, rotated API key")
		return Rotated
	}

	cooldown := CooldownFor(l.errorCount)
	l.cooldownUntil = now.Add(cooldown)
	l.logger.WithFields(logrus.Fields{
		"error_count":    l.errorCount,
		"cooldown":       cooldown,
		"cooldown_until": l.cooldownUntil.Format(time.RFC3339),
	}).Warn("Quota error, entering API cooldown")
	return CooledDown
}

func (l *Limiter) Snapshot(now time.Time) State {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, idx := l.pool.Current()
	st := State{
		ErrorCount:  l.errorCount,
		CurrentTier: l.currentTier,
		LastError:   l.lastError,
		KeyIndex:    idx,
		PoolSize:    l.pool.Size(),
	}
	if !l.cooldownUntil.IsZero() {
		until := l.cooldownUntil
		st.CooldownUntil = &until
		st.InCooldown = now.Before(until)
	}
	return st
}
