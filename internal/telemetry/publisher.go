package telemetry

import (
	"encoding/json"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/logistics-tracker/internal/models"
)

// Publisher sends simulated positions to the broker, one message per vehicle.
type Publisher struct {
	client Client
	prefix string
	now    func() time.Time
}

func NewPublisher(client Client, prefix string) *Publisher {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return &Publisher{client: client, prefix: prefix, now: time.Now}
}

func (p *Publisher) message(v models.Vehicle) models.PositionTelemetry {
	ts, err := models.ParseISOTime(v.LastSeen)
	if err != nil {
		ts = p.now()
	}
	return models.PositionTelemetry{
		VehicleID: v.ID,
		Timestamp: ts.UTC(),
		Location:  models.Location{Lat: v.Lat, Lng: v.Lng},
		Speed:     v.Speed,
		Heading:   v.Heading,
		Status:    string(v.Status),
	}
}

// PublishVehicles has the simulator listener signature. Failures are logged
// per vehicle and do not stop the rest of the batch.
func (p *Publisher) PublishVehicles(vehicles []models.Vehicle) {
	for _, v := range vehicles {
		data, err := json.Marshal(p.message(v))
		if err != nil {
			log.WithError(err).WithField("vehicle_id", v.ID).Error("Failed to marshal position")
			continue
		}
		topic := PositionTopic(p.prefix, v.ID)
		if err := wait(p.client.Publish(topic, 0, false, data), tokenTimeout); err != nil {
			log.WithError(err).WithField("topic", topic).Warn("Failed to publish position")
			continue
		}
		log.WithFields(log.Fields{"vehicle_id": v.ID, "topic": topic}).Debug("Published position")
	}
}
