package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/cintia-dashboard/internal/infra"
)

// Publisher: то, что нужно от redis.Client для рассылки сигналов.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// ReloadNotifier сообщает остальным инстансам о новой версии данных.
// Формат сигнала: "instance_id:version".
type ReloadNotifier struct {
	pub        Publisher
	instanceID string
}

func NewReloadNotifier(pub Publisher, instanceID string) *ReloadNotifier {
	return &ReloadNotifier{pub: pub, instanceID: instanceID}
}

func (n *ReloadNotifier) Notify(ctx context.Context, version string) error {
	payload := n.instanceID + ":" + version
	if err := n.pub.Publish(ctx, infra.RedisChanDatasetReload, payload).Err(); err != nil {
		return fmt.Errorf("publish reload signal: %w", err)
	}
	return nil
}

// ParseReloadSignal разбирает "instance_id:version".
func ParseReloadSignal(payload string) (instanceID, version string, err error) {
	parts := strings.Split(payload, ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid signal format: %q", payload)
	}
	return parts[0], parts[1], nil
}

// ListenReloadResilient: "живучая" подписка на сигналы перезагрузки.
// Переподписывается после обрыва, свои же сигналы пропускает.
func ListenReloadResilient(
	ctx context.Context,
	rdb *redis.Client,
	logger *zap.Logger,
	instanceID string,
	onReconnect func() error, // синхронизация после переподключения, может быть nil
	onReload func(version string),
) {
	channel := infra.RedisChanDatasetReload
	for {
		pubsub := rdb.Subscribe(ctx, channel)

		if _, err := pubsub.Receive(ctx); err != nil {
			pubsub.Close()
			logger.Error("failed to subscribe", zap.String("chan", channel), zap.Error(err))
			if !sleepCtx(ctx, 5*time.Second) {
				return
			}
			continue
		}

		// Пока подписки не было, сигналы могли потеряться
		if onReconnect != nil {
			if err := onReconnect(); err != nil {
				logger.Error("sync failed on reconnect", zap.Error(err))
			}
		}

		ch := pubsub.Channel()

	loop:
		for {
			select {
			case <-ctx.Done():
				pubsub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break loop // Канал закрыт, идем на переподключение
				}

				from, version, err := ParseReloadSignal(msg.Payload)
				if err != nil {
					logger.Error("invalid signal format", zap.String("payload", msg.Payload))
					continue
				}
				if from == instanceID {
					continue
				}
				onReload(version)
			}
		}

		pubsub.Close()
		if !sleepCtx(ctx, time.Second) {
			return
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
