// Package sched triggers pipeline runs on cron schedules.
package sched

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/soochol/flume/internal/pipeline"
)

// Schedule defines a cron-based recurring pipeline run.
type Schedule struct {
	ID        string    `json:"id"`
	Pipeline  string    `json:"pipeline"`
	CronExpr  string    `json:"cron_expr"`
	Timezone  string    `json:"timezone"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
}

// Service owns the cron runner and the registered schedules.
type Service struct {
	runner *pipeline.Runner
	cron   *cron.Cron

	mu        sync.Mutex
	schedules map[string]*Schedule
	entryMap  map[string]cron.EntryID
}

func New(runner *pipeline.Runner) *Service {
	return &Service{
		runner:    runner,
		cron:      cron.New(),
		schedules: make(map[string]*Schedule),
		entryMap:  make(map[string]cron.EntryID),
	}
}

// Start begins firing schedules. Stop with Stop.
func (s *Service) Start() {
	s.cron.Start()
	slog.Info("scheduler started")
}

// Stop halts the cron runner and waits for in-flight jobs.
func (s *Service) Stop() {
	<-s.cron.Stop().Done()
	slog.Info("scheduler stopped")
}

// parseCronExpr tries 6-field (with seconds) then 5-field (standard)
// parsing. A non-UTC timezone is applied via the CRON_TZ= prefix.
func parseCronExpr(expr, timezone string) (cron.Schedule, error) {
	if timezone != "" && timezone != "UTC" {
		expr = "CRON_TZ=" + timezone + " " + expr
	}
	parser6 := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser6.Parse(expr)
	if err == nil {
		return sched, nil
	}
	parser5 := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return parser5.Parse(expr)
}

// Add validates and registers a schedule, filling in its ID and creation
// time.
func (s *Service) Add(sched *Schedule) error {
	if _, err := s.runner.Store().Get(sched.Pipeline); err != nil {
		return fmt.Errorf("schedule references pipeline %q: %w", sched.Pipeline, err)
	}

	cronSched, err := parseCronExpr(sched.CronExpr, sched.Timezone)
	if err != nil {
		return fmt.Errorf("parse cron expression %q: %w", sched.CronExpr, err)
	}

	if sched.ID == "" {
		sched.ID = uuid.NewString()
	}
	sched.CreatedAt = time.Now()
	sched.Enabled = true

	entryID := s.cron.Schedule(cronSched, cron.FuncJob(func() {
		s.fire(sched)
	}))

	s.mu.Lock()
	s.schedules[sched.ID] = sched
	s.entryMap[sched.ID] = entryID
	s.mu.Unlock()

	slog.Info("scheduler: registered cron job",
		"id", sched.ID, "pipeline", sched.Pipeline, "cron", sched.CronExpr)
	return nil
}

// Remove unregisters a schedule.
func (s *Service) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entryID, ok := s.entryMap[id]
	if !ok {
		return fmt.Errorf("schedule %q not found", id)
	}
	s.cron.Remove(entryID)
	delete(s.entryMap, id)
	delete(s.schedules, id)
	return nil
}

// List returns the registered schedules.
func (s *Service) List() []*Schedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Schedule, 0, len(s.schedules))
	for _, sched := range s.schedules {
		out = append(out, sched)
	}
	return out
}

func (s *Service) fire(sched *Schedule) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if _, err := s.runner.Run(ctx, sched.Pipeline, "cron", sched.ID); err != nil {
		slog.Warn("scheduler: run failed", "pipeline", sched.Pipeline, "schedule", sched.ID, "err", err)
	}
}
