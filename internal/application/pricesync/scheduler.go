package pricesync

import (
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const DefaultSchedule = "@every 30s"

// Trigger starts a sync without blocking.
type Trigger interface {
	TriggerSync() bool
}

// Scheduler fires a Trigger on a cron expression.
type Scheduler struct {
	trigger Trigger

	mu sync.Mutex
	c  *cron.Cron
}

func NewScheduler(t Trigger) *Scheduler {
	return &Scheduler{trigger: t}
}

// Start registers the trigger on spec and starts the cron loop. An empty spec uses
// DefaultSchedule. Calling Start again replaces the previous schedule.
func (s *Scheduler) Start(spec string) error {
	if spec == "" {
		spec = DefaultSchedule
	}
	c := cron.New()
	if _, err := c.AddFunc(spec, s.fire); err != nil {
		return err
	}

	s.mu.Lock()
	prev := s.c
	s.c = c
	s.mu.Unlock()
	if prev != nil {
		<-prev.Stop().Done()
	}

	c.Start()
	log.Info().Str("schedule", spec).Msg("price sync scheduler started")
	return nil
}

// Stop halts the schedule and waits for a running job callback to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
	log.Info().Msg("price sync scheduler stopped")
}

func (s *Scheduler) fire() {
	if !s.trigger.TriggerSync() {
		log.Debug().Msg("scheduled price sync skipped, previous run still active")
	}
}
