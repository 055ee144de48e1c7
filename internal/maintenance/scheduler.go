// Package maintenance runs the gateway's periodic housekeeping jobs —
// sink flush/rotation, throughput stats logging, Avro batch flush —
// independent of the per-connection goroutines that do the actual
// protocol work.
package maintenance

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/galileosky/mercury-gateway/pkg/log"
)

// Flusher is satisfied by any sink that needs a periodic flush/rotate
// tick (the JSON Lines sink's file handle, the Avro sink's batch
// buffer).
type Flusher interface {
	Flush() error
}

// Stats accumulates the counters the throughput job reports each tick.
// Session handlers call its Add* methods; the stats job resets the
// counters each time it reports them.
type Stats struct {
	framesParsed  atomic.Int64
	recordsPushed atomic.Int64
	sinkErrors    atomic.Int64
}

func (s *Stats) AddFrame()      { s.framesParsed.Add(1) }
func (s *Stats) AddRecord()     { s.recordsPushed.Add(1) }
func (s *Stats) AddSinkError()  { s.sinkErrors.Add(1) }

func (s *Stats) snapshotAndReset() (frames, records, errs int64) {
	return s.framesParsed.Swap(0), s.recordsPushed.Swap(0), s.sinkErrors.Swap(0)
}

// Scheduler wraps a gocron scheduler with the gateway's specific jobs.
// Built as an explicit value owned by main, not a package-level
// singleton.
type Scheduler struct {
	s     gocron.Scheduler
	stats *Stats
}

// New creates (but does not start) a scheduler. flushInterval governs
// jsonlFlush's tick, statsInterval governs the throughput log line.
// avroFlush/avroInterval are optional and only registered when both are
// non-nil/non-zero.
func New(stats *Stats, flushInterval, statsInterval time.Duration, jsonlFlush Flusher, avroFlush Flusher, avroInterval time.Duration) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("maintenance: creating scheduler: %w", err)
	}

	sched := &Scheduler{s: s, stats: stats}

	if jsonlFlush != nil {
		if _, err := s.NewJob(gocron.DurationJob(flushInterval), gocron.NewTask(func() {
			if err := jsonlFlush.Flush(); err != nil {
				log.Warnf("maintenance: jsonl flush: %v", err)
			}
		})); err != nil {
			return nil, fmt.Errorf("maintenance: registering jsonl flush job: %w", err)
		}
	}

	if _, err := s.NewJob(gocron.DurationJob(statsInterval), gocron.NewTask(func() {
		frames, records, errs := stats.snapshotAndReset()
		log.Infof("throughput: frames=%d records=%d sink_errors=%d", frames, records, errs)
	})); err != nil {
		return nil, fmt.Errorf("maintenance: registering stats job: %w", err)
	}

	if avroFlush != nil && avroInterval > 0 {
		if _, err := s.NewJob(gocron.DurationJob(avroInterval), gocron.NewTask(func() {
			if err := avroFlush.Flush(); err != nil {
				log.Warnf("maintenance: avro flush: %v", err)
			}
		})); err != nil {
			return nil, fmt.Errorf("maintenance: registering avro flush job: %w", err)
		}
	}

	return sched, nil
}

// Start runs the registered jobs until Shutdown is called.
func (sc *Scheduler) Start() { sc.s.Start() }

// Shutdown drains in-flight jobs and stops the scheduler.
func (sc *Scheduler) Shutdown() error { return sc.s.Shutdown() }
