package telemetry

import (
	"context"
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/logistics-tracker/internal/models"
)

// LocationUpdater applies a GPS fix to a vehicle.
type LocationUpdater interface {
	UpdateVehicleLocation(ctx context.Context, id string, update models.LocationUpdate) error
}

// Ingestor turns position messages from the broker into vehicle updates.
type Ingestor struct {
	client  Client
	prefix  string
	updater LocationUpdater
	ctx     context.Context
}

func NewIngestor(client Client, prefix string, updater LocationUpdater) *Ingestor {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return &Ingestor{client: client, prefix: prefix, updater: updater, ctx: context.Background()}
}

// Start subscribes to every vehicle's position topic. The subscription is
// dropped when ctx is done.
func (i *Ingestor) Start(ctx context.Context) error {
	i.ctx = ctx
	topic := PositionWildcard(i.prefix)
	if err := wait(i.client.Subscribe(topic, 0, i.handle), tokenTimeout); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	log.WithField("topic", topic).Info("Listening for vehicle positions")

	go func() {
		<-ctx.Done()
		if err := wait(i.client.Unsubscribe(topic), tokenTimeout); err != nil {
			log.WithError(err).WithField("topic", topic).Warn("Failed to unsubscribe")
		}
	}()
	return nil
}

func (i *Ingestor) handle(_ mqtt.Client, msg mqtt.Message) {
	if err := i.Ingest(i.ctx, msg.Topic(), msg.Payload()); err != nil {
		log.WithError(err).WithField("topic", msg.Topic()).Warn("Dropped position message")
	}
}

// Ingest decodes one message and applies it. The topic decides which
// vehicle is updated.
func (i *Ingestor) Ingest(ctx context.Context, topic string, payload []byte) error {
	id, ok := vehicleFromTopic(i.prefix, topic)
	if !ok {
		return fmt.Errorf("unexpected topic %q", topic)
	}
	var tele models.PositionTelemetry
	if err := json.Unmarshal(payload, &tele); err != nil {
		return fmt.Errorf("decode position: %w", err)
	}
	if tele.VehicleID != "" && tele.VehicleID != id {
		log.WithFields(log.Fields{"topic_vehicle": id, "payload_vehicle": tele.VehicleID}).Warn("Position payload names another vehicle")
	}
	update := tele.Update()
	if err := update.Validate(); err != nil {
		return err
	}
	return i.updater.UpdateVehicleLocation(ctx, id, update)
}
