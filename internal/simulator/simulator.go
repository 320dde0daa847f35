// Package simulator moves vehicles along a fixed route and broadcasts the
// positions to subscribed listeners.
package simulator

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/logistics-tracker/internal/models"
)

// DefaultInterval is the time between position updates.
const DefaultInterval = 2500 * time.Millisecond

// VehicleSource supplies the fleet once at start-up.
type VehicleSource interface {
	FetchVehicles(ctx context.Context, orgID string) ([]models.Vehicle, error)
}

// Listener receives a copy of every vehicle after each tick.
type Listener func([]models.Vehicle)

// Ticker is the subset of time.Ticker the loop needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct{ *time.Ticker }

func (t realTicker) C() <-chan time.Time { return t.Ticker.C }

func newRealTicker(d time.Duration) Ticker { return realTicker{time.NewTicker(d)} }

type subscription struct {
	id int
	fn Listener
}

// Simulator owns its copy of the fleet; the source is read once.
type Simulator struct {
	source    VehicleSource
	orgID     string
	interval  time.Duration
	waypoints []models.Location
	newTicker func(time.Duration) Ticker

	once     sync.Once
	startErr error

	mu        sync.Mutex
	vehicles  []models.Vehicle
	step      int
	listeners []subscription
	nextID    int
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithInterval overrides DefaultInterval.
func WithInterval(d time.Duration) Option {
	return func(s *Simulator) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithOrg scopes the initial vehicle fetch to an organization.
func WithOrg(orgID string) Option {
	return func(s *Simulator) { s.orgID = orgID }
}

// WithTicker replaces the ticker factory; tests drive ticks by hand.
func WithTicker(factory func(time.Duration) Ticker) Option {
	return func(s *Simulator) { s.newTicker = factory }
}

// New builds a simulator that walks every vehicle through waypoints.
func New(source VehicleSource, waypoints []models.Location, opts ...Option) *Simulator {
	s := &Simulator{
		source:    source,
		interval:  DefaultInterval,
		waypoints: append([]models.Location(nil), waypoints...),
		newTicker: newRealTicker,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start loads the fleet and launches the tick loop, which runs until ctx is
// done. Only the first call does anything; later calls return its result.
func (s *Simulator) Start(ctx context.Context) error {
	s.once.Do(func() {
		if len(s.waypoints) == 0 {
			s.startErr = fmt.Errorf("simulator needs at least one waypoint")
			return
		}
		vehicles, err := s.source.FetchVehicles(ctx, s.orgID)
		if err != nil {
			s.startErr = fmt.Errorf("load vehicles: %w", err)
			return
		}
		s.mu.Lock()
		s.vehicles = vehicles
		s.mu.Unlock()

		ticker := s.newTicker(s.interval)
		go s.run(ctx, ticker)

		log.WithFields(log.Fields{
			"vehicles": len(vehicles),
			"interval": s.interval,
		}).Info("Position simulator started")
	})
	return s.startErr
}

func (s *Simulator) run(ctx context.Context, ticker Ticker) {
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Debug("Position simulator stopped")
			return
		case now := <-ticker.C():
			s.tick(now)
		}
	}
}

// tick advances every vehicle one waypoint and notifies listeners.
func (s *Simulator) tick(now time.Time) {
	s.mu.Lock()
	s.step++
	wp := s.waypoints[s.step%len(s.waypoints)]
	speed := float64(40 + s.step%10)
	heading := models.NormalizeHeading(float64(120 + s.step*10))
	seen := models.ISOTime(now)
	for i := range s.vehicles {
		s.vehicles[i].Lat = wp.Lat
		s.vehicles[i].Lng = wp.Lng
		s.vehicles[i].Speed = speed
		s.vehicles[i].Heading = heading
		s.vehicles[i].LastSeen = seen
	}
	listeners := append([]subscription(nil), s.listeners...)
	snapshot := append([]models.Vehicle(nil), s.vehicles...)
	s.mu.Unlock()

	for _, l := range listeners {
		s.emit(l, append([]models.Vehicle(nil), snapshot...))
	}
}

// emit isolates listeners from each other: a panic is logged and dropped.
func (s *Simulator) emit(l subscription, vehicles []models.Vehicle) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{"listener": l.id, "panic": r}).Error("Position listener panicked")
		}
	}()
	l.fn(vehicles)
}

// Subscribe registers fn and returns a function that removes it.
// Listeners run in registration order on the simulator goroutine.
func (s *Simulator) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, l := range s.listeners {
				if l.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Vehicles returns a copy of the current simulated fleet.
func (s *Simulator) Vehicles() []models.Vehicle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Vehicle(nil), s.vehicles...)
}

// Step reports how many ticks have run.
func (s *Simulator) Step() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}
