package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/gridq/internal/events"
	"github.com/alfredjeanlab/gridq/internal/ui"
)

var eventsCmd = &cobra.Command{
	Use:     "events",
	Short:   "Tail dataset load events from NATS",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if natsURL == "" {
			return fmt.Errorf("--nats-url (or GRIDQ_NATS_URL) is required")
		}
		topic, _ := cmd.Flags().GetString("topic")

		sub, err := events.NewNATSSubscriber(natsURL)
		if err != nil {
			return err
		}
		defer sub.Close()

		ch, cancel, err := sub.Subscribe(topic)
		if err != nil {
			return err
		}
		defer cancel()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		logger.Info("watching events", "topic", topic)
		for {
			select {
			case <-ctx.Done():
				return nil
			case msg, ok := <-ch:
				if !ok {
					return nil
				}
				printEvent(msg)
			}
		}
	},
}

func printEvent(msg events.Message) {
	if jsonOutput {
		fmt.Println(string(msg.Data))
		return
	}
	var body bytes.Buffer
	if err := json.Compact(&body, msg.Data); err != nil {
		body.Reset()
		body.Write(msg.Data)
	}
	fmt.Fprintf(os.Stdout, "%s %s %s\n",
		ui.RenderMuted(time.Now().Format(time.TimeOnly)),
		ui.RenderAccent(msg.Topic),
		body.String(),
	)
}

func init() {
	eventsCmd.Flags().String("topic", events.TopicAll, "NATS subject to tail (wildcards allowed)")
}
