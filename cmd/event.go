package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/roamstay/payment-service/internal/core/events"
	"github.com/roamstay/payment-service/pkg/logger"
	"github.com/spf13/cobra"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event utilities",
	Long:  `Publish test events against the in-process bus to exercise subscribed handlers.`,
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Publish a test event",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		publishTestEvent(args[0])
	},
}

func publishTestEvent(eventType string) {
	log := logger.Default()
	eventBus := events.NewEventBus(log)

	eventBus.Subscribe(eventType, func(ctx context.Context, event events.Event) error {
		log.Info("received event",
			"event_id", event.EventID(),
			"event_type", event.EventType(),
			"payload", event.Payload())
		return nil
	})

	var event events.Event
	switch eventType {
	case events.EventTypeOrderCreated:
		event = events.NewOrderCreatedEvent("order_test", "receipt_test", 50000, "INR")
	case events.EventTypePaymentVerified:
		event = events.NewPaymentVerifiedEvent("order_test", "pay_test")
	case events.EventTypeVerificationFailed:
		event = events.NewVerificationFailedEvent("order_test", "pay_test", "signature mismatch")
	default:
		fmt.Printf("unknown event type %q\n", eventType)
		return
	}

	if err := eventBus.PublishSync(context.Background(), event); err != nil {
		log.Error("failed to publish event", "error", err)
		return
	}

	// give async log output a moment to flush
	time.Sleep(100 * time.Millisecond)
}

func init() {
	eventCmd.AddCommand(publishEventCmd)
}
