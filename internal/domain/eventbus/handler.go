package eventbus

import (
	"kumbara-device-go/internal/platform/logging"
)

// Trace debug-logs every event published on the bus.
func Trace(b *Bus, logger *logging.Logger) error {
	for _, topic := range Topics {
		topic := topic
		if err := b.Subscribe(topic, func(data interface{}) {
			logger.DebugTag("EVENT", "%s %+v", topic, data)
		}); err != nil {
			return err
		}
	}
	return nil
}
