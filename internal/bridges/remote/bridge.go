package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hearthside/hearthside-core/internal/access"
	"github.com/hearthside/hearthside-core/internal/device"
	"github.com/hearthside/hearthside-core/internal/energy"
	"github.com/hearthside/hearthside-core/internal/infrastructure/mqtt"
)

// commandTimeout bounds how long a remote command may take end to end.
const commandTimeout = 10 * time.Second

// Conn is the slice of the MQTT client the bridge uses. Satisfied by
// *mqtt.Client; tests substitute a fake.
type Conn interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	PublishRetained(topic string, payload []byte) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// CommandRequest is the payload remote clients publish to submit a command.
type CommandRequest struct {
	// RequestID is echoed in the result so clients can correlate.
	RequestID   string `json:"request_id,omitempty"`
	CaregiverID string `json:"caregiver_id"`
	Text        string `json:"text"`
	Emergency   bool   `json:"emergency,omitempty"`
}

// CommandResponse is the payload published for every processed request.
type CommandResponse struct {
	RequestID string         `json:"request_id,omitempty"`
	Outcome   access.Outcome `json:"outcome"`
	Message   string         `json:"message"`
	Error     string         `json:"error,omitempty"`
}

// Bridge connects remote MQTT clients to the access controller. Inbound
// command requests run through the same permission checks as local ones,
// and device state plus energy snapshots are mirrored to retained topics so
// remote dashboards always see current state.
type Bridge struct {
	conn       Conn
	controller *access.Controller
	logger     device.Logger
	qos        byte
}

// New creates a bridge over the given connection.
func New(conn Conn, controller *access.Controller, logger device.Logger, qos byte) *Bridge {
	return &Bridge{conn: conn, controller: controller, logger: logger, qos: qos}
}

// Start subscribes to the command request topic.
func (b *Bridge) Start() error {
	topic := mqtt.Topics{}.CommandRequest()
	if err := b.conn.Subscribe(topic, b.qos, b.handleCommand); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	b.logger.Info("remote bridge started", "topic", topic)
	return nil
}

// Stop unsubscribes from the command request topic.
func (b *Bridge) Stop() error {
	return b.conn.Unsubscribe(mqtt.Topics{}.CommandRequest())
}

func (b *Bridge) handleCommand(_ string, payload []byte) error {
	var req CommandRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		b.publishResult(CommandResponse{Error: "malformed command request"})
		return fmt.Errorf("unmarshal command request: %w", err)
	}
	if req.CaregiverID == "" {
		b.publishResult(CommandResponse{RequestID: req.RequestID, Error: "caregiver_id is required"})
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	result, err := b.controller.Execute(ctx, req.CaregiverID, req.Text, req.Emergency)
	if err != nil {
		b.publishResult(CommandResponse{RequestID: req.RequestID, Error: err.Error()})
		return fmt.Errorf("execute remote command: %w", err)
	}

	b.publishResult(CommandResponse{
		RequestID: req.RequestID,
		Outcome:   result.Outcome,
		Message:   result.Message,
	})
	return nil
}

func (b *Bridge) publishResult(resp CommandResponse) {
	payload, err := json.Marshal(resp)
	if err != nil {
		b.logger.Error("marshal command response", "error", err)
		return
	}
	if err := b.conn.Publish(mqtt.Topics{}.CommandResult(), payload, b.qos, false); err != nil {
		b.logger.Error("publish command result", "error", err)
	}
}

// PublishDeviceState mirrors a device's state to its retained topic. Wired
// to the registry's change callback so every mutation is reflected.
func (b *Bridge) PublishDeviceState(d device.Device) {
	payload, err := json.Marshal(d)
	if err != nil {
		b.logger.Error("marshal device state", "device_id", d.ID, "error", err)
		return
	}
	if err := b.conn.PublishRetained(mqtt.Topics{}.DeviceState(d.ID), payload); err != nil {
		b.logger.Warn("publish device state", "device_id", d.ID, "error", err)
	}
}

// RecordEnergy mirrors an energy snapshot to its retained topic.
// Implements energy.Sink.
func (b *Bridge) RecordEnergy(_ context.Context, snap energy.Snapshot) {
	payload, err := json.Marshal(snap)
	if err != nil {
		b.logger.Error("marshal energy snapshot", "error", err)
		return
	}
	if err := b.conn.PublishRetained(mqtt.Topics{}.EnergySnapshot(), payload); err != nil {
		b.logger.Warn("publish energy snapshot", "error", err)
	}
}
