// Package monitor runs the reading pipeline: raw samples are pulled from
// the sensor on the averaging schedule, smoothed by per-channel moving
// averages, and reported to the graphite server once per refresh period.
// Readings that cannot be delivered wait in an in-memory backlog and are
// drained, oldest first, by the next cycle that reaches the server.
package monitor

import (
	"context"
	"log"
	"math/rand"
	"time"

	"github.com/NathanielJS1541/TemperatureMonitor/pkg/backlog"
	"github.com/NathanielJS1541/TemperatureMonitor/pkg/clock"
	"github.com/NathanielJS1541/TemperatureMonitor/pkg/config"
	"github.com/NathanielJS1541/TemperatureMonitor/pkg/filter"
	"github.com/NathanielJS1541/TemperatureMonitor/pkg/graphite"
	"github.com/NathanielJS1541/TemperatureMonitor/pkg/netlink"
	"github.com/NathanielJS1541/TemperatureMonitor/pkg/sensor"
	"github.com/NathanielJS1541/TemperatureMonitor/pkg/status"
)

// Monitor owns the whole pipeline. Everything runs on the goroutine that
// calls Run; the collaborators are never touched concurrently.
type Monitor struct {
	cfg    *config.Config
	sensor sensor.Sensor
	clock  clock.Clock
	link   netlink.Link
	status status.Indicator
	dial   graphite.DialFunc

	temperature *filter.MovingAverage
	humidity    *filter.MovingAverage
	queue       *backlog.Queue

	// Schedule state, in epoch seconds. lastUpdateTime stamps the reading
	// produced by the current cycle.
	lastUpdateTime  int64
	nextAverageTime int64
	nextUpdateTime  int64

	// sleep is replaced in tests to drive a fake clock. It returns false
	// when the context is cancelled.
	sleep func(ctx context.Context, d time.Duration) bool
	rng   *rand.Rand
}

// New wires a monitor from its collaborators.
func New(cfg *config.Config, sen sensor.Sensor, clk clock.Clock, link netlink.Link, ind status.Indicator, dial graphite.DialFunc) *Monitor {
	windowSize := cfg.Sampling.WindowSize()

	return &Monitor{
		cfg:         cfg,
		sensor:      sen,
		clock:       clk,
		link:        link,
		status:      ind,
		dial:        dial,
		temperature: filter.New(windowSize),
		humidity:    filter.New(windowSize),
		queue:       backlog.New(cfg.Backlog.MaxEntries),
		sleep:       sleepCtx,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run initializes the collaborators and executes the sampling loop until
// the context is cancelled. There is no other exit: every failure is
// handled by waiting and retrying.
func (m *Monitor) Run(ctx context.Context) error {
	if err := m.startup(ctx); err != nil {
		return err
	}

	now := m.clock.Now()
	m.lastUpdateTime = now
	m.nextAverageTime = now + int64(m.cfg.Sampling.AveragingPeriodSeconds)
	m.nextUpdateTime = now + int64(m.cfg.Sampling.RefreshPeriodSeconds)
	m.status.Set(status.Idle)
	log.Printf("monitor running: refresh %s, averaging %s, window %d",
		m.cfg.Sampling.RefreshPeriod(), m.cfg.Sampling.AveragingPeriod(), m.temperature.Cap())

	for {
		now = m.clock.Now()

		// Averaging wins when both thresholds are crossed in the same
		// poll, so the final sample is folded into the cycle's result.
		if now >= m.nextAverageTime {
			m.takeSample()
			m.nextAverageTime += int64(m.cfg.Sampling.AveragingPeriodSeconds)
			continue
		}

		if now >= m.nextUpdateTime {
			m.lastUpdateTime = now
			if !m.deliverCycle(ctx) {
				return ctx.Err()
			}
			// The schedule advances whether or not delivery succeeded; a
			// failed cycle's reading waits in the backlog.
			m.nextUpdateTime += int64(m.cfg.Sampling.RefreshPeriodSeconds)
			continue
		}

		// Sleep until the next scheduled event, whichever comes sooner.
		wake := m.nextAverageTime
		if m.nextUpdateTime < wake {
			wake = m.nextUpdateTime
		}
		if !m.sleep(ctx, time.Duration(wake-now)*time.Second) {
			return ctx.Err()
		}
	}
}

// startup brings up the sensor, link, and clock, then primes the filters.
// Each prerequisite is retried indefinitely; the pipeline never proceeds
// past a failed one.
func (m *Monitor) startup(ctx context.Context) error {
	m.status.Set(status.AwaitingSensor)
	for {
		err := m.sensor.Init()
		if err == nil {
			break
		}
		log.Printf("sensor init failed: %v", err)
		if !m.sleep(ctx, m.cfg.Retry.ConnectDelay()) {
			return ctx.Err()
		}
	}

	m.status.Set(status.AwaitingWifi)
	for !m.link.IsUp() {
		m.link.Reconnect()
		if !m.sleep(ctx, m.cfg.Retry.ConnectDelay()) {
			return ctx.Err()
		}
	}

	m.status.Set(status.AwaitingTimeSync)
	for !m.clock.Resync() {
		log.Printf("time sync failed, retrying")
		if !m.sleep(ctx, m.cfg.Retry.ConnectDelay()) {
			return ctx.Err()
		}
	}

	// Prime both filters with a full window of real readings so the first
	// cycle never averages over a partial window.
	for m.temperature.Len() < m.temperature.Cap() {
		s, err := m.sensor.Read()
		if err != nil {
			log.Printf("priming read failed: %v", err)
			if !m.sleep(ctx, m.cfg.Retry.IdleDelay()) {
				return ctx.Err()
			}
			continue
		}
		m.temperature.Push(s.Temperature)
		m.humidity.Push(s.RelativeHumidity)
	}

	return nil
}

// takeSample folds one raw sensor sample into both moving averages.
func (m *Monitor) takeSample() {
	// Keep the clock disciplined; a failed resync keeps the last offset.
	m.clock.Resync()

	s, err := m.sensor.Read()
	if err != nil {
		log.Printf("sensor read failed: %v", err)
		return
	}
	m.temperature.Push(s.Temperature)
	m.humidity.Push(s.RelativeHumidity)
}

// Backlog returns the number of readings awaiting delivery.
func (m *Monitor) Backlog() int {
	return m.queue.Len()
}

// sleepCtx waits for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
