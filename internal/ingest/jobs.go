// File path: internal/ingest/jobs.go

// Package ingest tracks ingestion runs: a per-job state machine observable
// by concurrent readers, and the runner that walks a corpus directory
// through chunking, embedding, extraction, and resolution.
package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/nicodishanthj/corpusfuse/internal/common"
)

type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Terminal reports whether the status ends a run.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// JobState is the observable progress of one ingestion job. Reads always
// receive a snapshot copy, never the live struct the worker mutates.
type JobState struct {
	Status          Status
	ProgressPercent float64
	Phase           string
	Message         string
	CurrentFile     string
	Counters        map[string]int
	StartTime       time.Time
	EndTime         time.Time
	ErrorMessage    string
}

func (s JobState) clone() JobState {
	out := s
	out.Counters = make(map[string]int, len(s.Counters))
	for k, v := range s.Counters {
		out.Counters[k] = v
	}
	return out
}

type jobEntry struct {
	state   JobState
	version int64
}

// Manager serializes all mutations of job states behind one mutex and
// guarantees at most one running ingestion per job id.
type Manager struct {
	mu   sync.Mutex
	jobs map[string]*jobEntry

	// Poll and heartbeat intervals for Watch, overridable in tests.
	pollInterval      time.Duration
	heartbeatInterval time.Duration
}

func NewManager() *Manager {
	return &Manager{
		jobs:              make(map[string]*jobEntry),
		pollInterval:      time.Second,
		heartbeatInterval: 5 * time.Second,
	}
}

// Start transitions the job to Running. It returns false without mutating
// anything when the job is already running.
func (m *Manager) Start(jobID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry, ok := m.jobs[jobID]; ok && entry.state.Status == StatusRunning {
		return false
	}
	m.jobs[jobID] = &jobEntry{
		state: JobState{
			Status:    StatusRunning,
			Phase:     "starting",
			Counters:  make(map[string]int),
			StartTime: time.Now(),
		},
		version: 1,
	}
	common.Logger().Info("ingest: job started", "job", jobID)
	return true
}

// Update merges partial fields into the running state via the mutate
// callback, which runs under the manager lock. Only the worker goroutine
// that owns the run should call it.
func (m *Manager) Update(jobID string, mutate func(state *JobState)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.jobs[jobID]
	if !ok || entry.state.Status != StatusRunning {
		return
	}
	mutate(&entry.state)
	entry.version++
}

// Complete transitions the job to Completed or Error, stamping the end
// time. Success clamps progress to 100.
func (m *Manager) Complete(jobID string, success bool, errMessage string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.jobs[jobID]
	if !ok || entry.state.Status.Terminal() {
		return
	}
	entry.state.EndTime = time.Now()
	if success {
		entry.state.Status = StatusCompleted
		entry.state.ProgressPercent = 100
	} else {
		entry.state.Status = StatusError
		entry.state.ErrorMessage = errMessage
	}
	entry.version++
	common.Logger().Info("ingest: job finished", "job", jobID, "status", entry.state.Status)
}

// GetState returns a snapshot of the job state. Absent jobs read as Idle.
func (m *Manager) GetState(jobID string) JobState {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.jobs[jobID]
	if !ok {
		return JobState{Status: StatusIdle, Counters: map[string]int{}}
	}
	return entry.state.clone()
}

// Reset clears the job back to absent, equivalent to Idle with zeroed
// counters. It is the only path out of Running other than completion.
func (m *Manager) Reset(jobID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, jobID)
}

// SetWatchIntervals overrides the polling cadence, for tests.
func (m *Manager) SetWatchIntervals(poll, heartbeat time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if poll > 0 {
		m.pollInterval = poll
	}
	if heartbeat > 0 {
		m.heartbeatInterval = heartbeat
	}
}

func (m *Manager) snapshotVersion(jobID string) (JobState, int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.jobs[jobID]
	if !ok {
		return JobState{Status: StatusIdle, Counters: map[string]int{}}, 0
	}
	return entry.state.clone(), entry.version
}

// Watch emits state snapshots on every observed change, re-polling at the
// poll interval and emitting an unchanged heartbeat snapshot when nothing
// has moved for the heartbeat interval. The channel closes once the job
// reaches a terminal state or ctx is canceled.
func (m *Manager) Watch(ctx context.Context, jobID string) <-chan JobState {
	m.mu.Lock()
	poll := m.pollInterval
	heartbeat := m.heartbeatInterval
	m.mu.Unlock()

	out := make(chan JobState, 1)
	go func() {
		defer close(out)
		lastVersion := int64(-1)
		lastEmit := time.Now()
		ticker := time.NewTicker(poll)
		defer ticker.Stop()
		for {
			state, version := m.snapshotVersion(jobID)
			changed := version != lastVersion
			if changed || time.Since(lastEmit) >= heartbeat {
				select {
				case out <- state:
				case <-ctx.Done():
					return
				}
				lastVersion = version
				lastEmit = time.Now()
			}
			if state.Status.Terminal() {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return out
}
