package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/groblegark/stayput/internal/events"
)

var watchCmd = &cobra.Command{
	Use:   "watch [topic]",
	Short: "Stream fleet lifecycle events to stdout",
	Long: `Subscribes to the lifecycle event bus and prints one JSON event per
line. The topic defaults to "stayput.>" (everything); NATS wildcards
are accepted, e.g. "stayput.session.*".`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topic := "stayput.>"
		if len(args) > 0 {
			topic = args[0]
		}
		natsURL := os.Getenv("STAYPUT_NATS_URL")
		if natsURL == "" {
			return fmt.Errorf("STAYPUT_NATS_URL is required")
		}

		sub, err := events.NewNATSSubscriber(natsURL,
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				log.Printf("nats: disconnected: %v", err)
			}),
			nats.ReconnectHandler(func(_ *nats.Conn) {
				log.Printf("nats: reconnected")
			}),
		)
		if err != nil {
			return fmt.Errorf("connecting to NATS: %w", err)
		}
		defer sub.Close()

		ch, cancel, err := sub.Subscribe(topic)
		if err != nil {
			return fmt.Errorf("subscribing to %s: %w", topic, err)
		}
		defer cancel()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case msg, ok := <-ch:
				if !ok {
					return nil
				}
				fmt.Println(string(msg))
			}
		}
	},
}
