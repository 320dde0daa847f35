package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/logistics-tracker/internal/config"
	"github.com/ukydev/logistics-tracker/internal/db"
	mockstore "github.com/ukydev/logistics-tracker/internal/mock"
	"github.com/ukydev/logistics-tracker/internal/models"
	"github.com/ukydev/logistics-tracker/internal/simulator"
	"github.com/ukydev/logistics-tracker/internal/telemetry"
)

// vehicleSource picks the fleet to simulate: the remote organization when the
// master flag is on and MongoDB answers, the fixtures otherwise.
func vehicleSource(cfg config.Config) (simulator.VehicleSource, string, func()) {
	if cfg.Flags.Enabled && cfg.Flags.OrgID != "" {
		client, err := db.ConnectMongo(cfg.MongoURI)
		if err == nil {
			return db.NewMongoStore(client.Database(cfg.MongoDB)), cfg.Flags.OrgID, func() {
				_ = client.Disconnect(context.Background())
			}
		}
		log.WithError(err).Warn("MongoDB unavailable, simulating fixture fleet")
	}
	return mockstore.NewStore(mockstore.WithDelayScale(0)), "", func() {}
}

func logTick(vehicles []models.Vehicle) {
	if len(vehicles) == 0 {
		return
	}
	v := vehicles[0]
	log.WithFields(log.Fields{
		"vehicles": len(vehicles),
		"lat":      v.Lat,
		"lng":      v.Lng,
		"speed":    v.Speed,
		"heading":  v.Heading,
	}).Debug("Simulator tick")
}

// simulate publishes every tick over MQTT until ctx ends.
func simulate(ctx context.Context, cfg config.Config, source simulator.VehicleSource, orgID string, client telemetry.Client, opts ...simulator.Option) error {
	opts = append([]simulator.Option{simulator.WithInterval(cfg.SimTick), simulator.WithOrg(orgID)}, opts...)
	sim := simulator.New(source, mockstore.RoutePolyline, opts...)

	publisher := telemetry.NewPublisher(client, cfg.MQTTTopicPrefix)
	defer sim.Subscribe(publisher.PublishVehicles)()
	defer sim.Subscribe(logTick)()

	if err := sim.Start(ctx); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"vehicles": len(sim.Vehicles()),
		"interval": cfg.SimTick,
		"topic":    telemetry.PositionWildcard(cfg.MQTTTopicPrefix),
	}).Info("Position simulation started")

	<-ctx.Done()
	log.WithField("ticks", sim.Step()).Info("Position simulation stopped")
	return nil
}

func main() {
	cfg := config.Load()
	cfg.ConfigureLogging()

	if cfg.MQTTBroker == "" {
		log.WithError(errors.New("MQTT_BROKER is not set")).Fatal("Simulator needs a broker")
	}
	client, err := telemetry.Connect(cfg.MQTTBroker, cfg.MQTTClientID+"-simulator")
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MQTT broker")
	}
	defer client.Disconnect(250)

	source, orgID, closeSource := vehicleSource(cfg)
	defer closeSource()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := simulate(ctx, cfg, source, orgID, client); err != nil {
		log.WithError(err).Error("Simulator failed")
		os.Exit(1)
	}
}
