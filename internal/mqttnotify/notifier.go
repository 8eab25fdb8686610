package mqttnotify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"officemap-data/internal/config"
	"officemap-data/internal/domain"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// FloorPublishedEvent 楼层发布事件（大厅/前台展示屏订阅后刷新座位图）
type FloorPublishedEvent struct {
	TenantID    string    `json:"tenantId"`
	FloorID     string    `json:"floorId"`
	Version     int       `json:"version"`
	Name        string    `json:"name"`
	PublishedBy string    `json:"publishedBy"`
	PublishedAt time.Time `json:"publishedAt"`
}

// Notifier 通过MQTT广播楼层发布事件
type Notifier struct {
	client mqtt.Client
	topic  string
	logger *zap.Logger
}

// NewNotifier 创建发布通知器并连接Broker
func NewNotifier(cfg *config.MQTTConfig, logger *zap.Logger) (*Notifier, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return &Notifier{
		client: client,
		topic:  cfg.Topic,
		logger: logger,
	}, nil
}

// FloorPublished 广播一次发布事件
// retained=true：新上线的展示屏立即拿到最近一次发布
func (n *Notifier) FloorPublished(ctx context.Context, floor *domain.Floor) error {
	event := FloorPublishedEvent{
		TenantID:    floor.TenantID,
		FloorID:     floor.ID,
		Version:     floor.Version,
		Name:        floor.Name,
		PublishedBy: floor.UpdateBy,
		PublishedAt: floor.UpdateAt,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal publish event: %w", err)
	}

	token := n.client.Publish(n.topic, 1, true, payload)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", n.topic, token.Error())
	}

	n.logger.Debug("Published floor event",
		zap.String("topic", n.topic),
		zap.String("floor_id", floor.ID),
		zap.Int("version", floor.Version),
	)
	return nil
}

// Close 断开连接
func (n *Notifier) Close() {
	n.client.Disconnect(250) // 250ms等待时间
}
