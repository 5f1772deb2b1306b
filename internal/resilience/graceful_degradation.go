package resilience

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/tube-o-meter/internal/errors"
)

// DegradationLevel represents the current degradation state
type DegradationLevel int

const (
	LevelNormal DegradationLevel = iota
	LevelDegraded
	LevelCritical
	LevelEmergency
)

func (l DegradationLevel) String() string {
	switch l {
	case LevelNormal:
		return "normal"
	case LevelDegraded:
		return "degraded"
	case LevelCritical:
		return "critical"
	case LevelEmergency:
		return "emergency"
	default:
		return "unknown"
	}
}

// MarshalText renders the level by name in JSON payloads
func (l DegradationLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// DegradationConfig holds configuration for graceful degradation. Error
// rates are fractions in [0,1] measured over RecoveryTimeWindow.
type DegradationConfig struct {
	HealthCheckInterval time.Duration `json:"health_check_interval" yaml:"health_check_interval"`
	DegradedThreshold   float64       `json:"degraded_threshold" yaml:"degraded_threshold"`
	CriticalThreshold   float64       `json:"critical_threshold" yaml:"critical_threshold"`
	EmergencyThreshold  float64       `json:"emergency_threshold" yaml:"emergency_threshold"`
	RecoveryTimeWindow  time.Duration `json:"recovery_time_window" yaml:"recovery_time_window"`
	HealthCheckTimeout  time.Duration `json:"health_check_timeout" yaml:"health_check_timeout"`
	MaxDegradedDuration time.Duration `json:"max_degraded_duration" yaml:"max_degraded_duration"`
	MinRequests         int           `json:"min_requests" yaml:"min_requests"`
}

// DefaultDegradationConfig returns sensible defaults
func DefaultDegradationConfig() DegradationConfig {
	return DegradationConfig{
		HealthCheckInterval: 30 * time.Second,
		DegradedThreshold:   0.1,
		CriticalThreshold:   0.25,
		EmergencyThreshold:  0.5,
		RecoveryTimeWindow:  5 * time.Minute,
		HealthCheckTimeout:  5 * time.Second,
		MaxDegradedDuration: 10 * time.Minute,
		MinRequests:         4,
	}
}

// ServiceHealth is a snapshot of one upstream's recent behaviour
type ServiceHealth struct {
	ServiceName   string           `json:"service_name"`
	Level         DegradationLevel `json:"level"`
	ErrorRate     float64          `json:"error_rate"`
	TotalRequests int64            `json:"total_requests"`
	ErrorCount    int64            `json:"error_count"`
	LastError     string           `json:"last_error,omitempty"`
	LastErrorTime time.Time        `json:"last_error_time,omitempty"`
	DegradedSince *time.Time       `json:"degraded_since,omitempty"`
	StatusMessage string           `json:"status_message"`
}

type outcome struct {
	at      time.Time
	success bool
}

type serviceState struct {
	health ServiceHealth
	window []outcome
}

// HealthCheckFunc represents a function that checks service health
type HealthCheckFunc func(ctx context.Context) error

// DegradationManager tracks upstream error rates over a rolling window and
// reports when a service should no longer be called
type DegradationManager struct {
	config       DegradationConfig
	services     map[string]*serviceState
	healthChecks map[string]HealthCheckFunc
	mutex        sync.RWMutex
	now          func() time.Time
}

// NewDegradationManager creates a new degradation manager
func NewDegradationManager(config DegradationConfig) *DegradationManager {
	defaults := DefaultDegradationConfig()
	if config.HealthCheckInterval <= 0 {
		config.HealthCheckInterval = defaults.HealthCheckInterval
	}
	if config.RecoveryTimeWindow <= 0 {
		config.RecoveryTimeWindow = defaults.RecoveryTimeWindow
	}
	if config.HealthCheckTimeout <= 0 {
		config.HealthCheckTimeout = defaults.HealthCheckTimeout
	}
	if config.MaxDegradedDuration <= 0 {
		config.MaxDegradedDuration = defaults.MaxDegradedDuration
	}
	if config.EmergencyThreshold <= 0 {
		config.DegradedThreshold = defaults.DegradedThreshold
		config.CriticalThreshold = defaults.CriticalThreshold
		config.EmergencyThreshold = defaults.EmergencyThreshold
	}

	return &DegradationManager{
		config:       config,
		services:     make(map[string]*serviceState),
		healthChecks: make(map[string]HealthCheckFunc),
		now:          time.Now,
	}
}

// RegisterService registers a service with its health check function
func (dm *DegradationManager) RegisterService(serviceName string, healthCheck HealthCheckFunc) {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	dm.services[serviceName] = &serviceState{
		health: ServiceHealth{
			ServiceName:   serviceName,
			Level:         LevelNormal,
			StatusMessage: "Service is healthy",
		},
	}
	if healthCheck != nil {
		dm.healthChecks[serviceName] = healthCheck
	}

	slog.Info("Registered service for degradation management", "service", serviceName)
}

// RecordRequest records a request and its success/failure
func (dm *DegradationManager) RecordRequest(serviceName string, success bool) {
	dm.record(serviceName, success, nil)
}

// RecordError records a failed request together with its cause
func (dm *DegradationManager) RecordError(serviceName string, err error) {
	dm.record(serviceName, false, err)
}

func (dm *DegradationManager) record(serviceName string, success bool, err error) {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	state, exists := dm.services[serviceName]
	if !exists {
		return
	}

	now := dm.now()
	state.window = append(state.window, outcome{at: now, success: success})
	if !success {
		state.health.LastErrorTime = now
		if err != nil {
			state.health.LastError = err.Error()
		} else {
			state.health.LastError = "request failed"
		}
	}

	dm.updateDegradationLevel(state, now)
}

// updateDegradationLevel drops outcomes older than the window and derives
// the level from what remains
func (dm *DegradationManager) updateDegradationLevel(state *serviceState, now time.Time) {
	cutoff := now.Add(-dm.config.RecoveryTimeWindow)
	keep := state.window[:0]
	var errs int64
	for _, o := range state.window {
		if o.at.Before(cutoff) {
			continue
		}
		keep = append(keep, o)
		if !o.success {
			errs++
		}
	}
	state.window = keep

	health := &state.health
	health.TotalRequests = int64(len(keep))
	health.ErrorCount = errs
	health.ErrorRate = 0
	if health.TotalRequests > 0 {
		health.ErrorRate = float64(errs) / float64(health.TotalRequests)
	}

	oldLevel := health.Level
	newLevel := LevelNormal
	statusMessage := "Service is healthy"

	if health.TotalRequests >= int64(dm.config.MinRequests) {
		switch {
		case health.ErrorRate >= dm.config.EmergencyThreshold:
			newLevel = LevelEmergency
			statusMessage = "Service is in emergency state - high error rate"
		case health.ErrorRate >= dm.config.CriticalThreshold:
			newLevel = LevelCritical
			statusMessage = "Service is in critical state - elevated error rate"
		case health.ErrorRate >= dm.config.DegradedThreshold:
			newLevel = LevelDegraded
			statusMessage = "Service is degraded - moderate error rate"
		}
	}

	if newLevel == LevelDegraded && health.DegradedSince != nil &&
		now.Sub(*health.DegradedSince) > dm.config.MaxDegradedDuration {
		newLevel = LevelEmergency
		statusMessage = "Service has been degraded too long - entering emergency state"
	}

	switch {
	case newLevel == LevelNormal:
		health.DegradedSince = nil
	case health.DegradedSince == nil:
		since := now
		health.DegradedSince = &since
	}

	health.Level = newLevel
	health.StatusMessage = statusMessage

	if oldLevel != newLevel {
		slog.Warn("Service degradation level changed",
			"service", health.ServiceName,
			"old_level", oldLevel.String(),
			"new_level", newLevel.String(),
			"error_rate", health.ErrorRate,
			"total_requests", health.TotalRequests,
			"error_count", health.ErrorCount)
	}
}

// GetServiceHealth returns the health status of a service
func (dm *DegradationManager) GetServiceHealth(serviceName string) (ServiceHealth, bool) {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	state, exists := dm.services[serviceName]
	if !exists {
		return ServiceHealth{}, false
	}
	dm.updateDegradationLevel(state, dm.now())
	return state.health, true
}

// GetAllServiceHealth returns health status for all services
func (dm *DegradationManager) GetAllServiceHealth() map[string]ServiceHealth {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	now := dm.now()
	result := make(map[string]ServiceHealth, len(dm.services))
	for name, state := range dm.services {
		dm.updateDegradationLevel(state, now)
		result[name] = state.health
	}
	return result
}

// IsServiceAvailable reports false only when the service is in emergency
// state. Unregistered services are treated as available.
func (dm *DegradationManager) IsServiceAvailable(serviceName string) bool {
	health, exists := dm.GetServiceHealth(serviceName)
	if !exists {
		return true
	}
	return health.Level != LevelEmergency
}

// StartHealthChecks runs the registered health checks every interval until
// ctx ends
func (dm *DegradationManager) StartHealthChecks(ctx context.Context) {
	ticker := time.NewTicker(dm.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			dm.performHealthChecks(ctx)
		}
	}
}

func (dm *DegradationManager) performHealthChecks(ctx context.Context) {
	dm.mutex.RLock()
	checks := make(map[string]HealthCheckFunc, len(dm.healthChecks))
	for name, check := range dm.healthChecks {
		checks[name] = check
	}
	dm.mutex.RUnlock()

	var wg sync.WaitGroup
	for serviceName, healthCheck := range checks {
		wg.Add(1)
		go func(name string, check HealthCheckFunc) {
			defer wg.Done()
			checkCtx, cancel := context.WithTimeout(ctx, dm.config.HealthCheckTimeout)
			defer cancel()

			if err := check(checkCtx); err != nil {
				dm.RecordError(name, errors.WrapError(err, "health check failed for service %s", name))
				return
			}
			dm.RecordRequest(name, true)
		}(serviceName, healthCheck)
	}
	wg.Wait()
}

// ResetService clears a service's recorded outcomes
func (dm *DegradationManager) ResetService(serviceName string) {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	if state, exists := dm.services[serviceName]; exists {
		state.window = nil
		state.health = ServiceHealth{
			ServiceName:   serviceName,
			Level:         LevelNormal,
			StatusMessage: "Service is healthy",
		}
		slog.Info("Service health reset", "service", serviceName)
	}
}

// GracefulShutdown logs the final status of every service
func (dm *DegradationManager) GracefulShutdown() {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	slog.Info("Degradation manager shutting down", "services", len(dm.services))
	for name, state := range dm.services {
		slog.Info("Final service status",
			"service", name,
			"level", state.health.Level.String(),
			"error_rate", state.health.ErrorRate,
			"total_requests", state.health.TotalRequests,
			"error_count", state.health.ErrorCount)
	}
}
