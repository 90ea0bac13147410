// cmd/feeder replays a JSON-lines file of order events onto the
// orders subject, throttled, for demo and integration use.
//
// Grounded on original_source/src/pusher/main.go's publish_orders loop
// and saiputravu-Exchange/cmd/client/client.go's flag-driven CLI
// entrypoint, repurposed to publish over the bus instead of a raw TCP
// connection.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"fenrir/internal/bus"
	"fenrir/internal/config"
	"fenrir/internal/sink"
	"fenrir/internal/types"
)

func main() {
	configPath := flag.String("config", "", "path to settings.yaml (optional)")
	inputPath := flag.String("input", "", "path to a JSON-lines order file (overrides config)")
	throttle := flag.Duration("throttle", 200*time.Millisecond, "pause between published events")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	settings, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	path := settings.Engine.InputPath
	if *inputPath != "" {
		path = *inputPath
	}

	events, err := sink.ReadEvents(path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read replay file")
	}
	if len(events) == 0 {
		log.Warn().Str("path", path).Msg("no events found to publish")
		return
	}
	log.Info().Int("count", len(events)).Msg("loaded events from file")

	broker := bus.New(settings.Nats)
	if err := broker.Connect(); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to bus")
	}
	defer broker.Close()

	for i := range events {
		select {
		case <-ctx.Done():
			log.Warn().Msg("publishing interrupted by shutdown signal")
			return
		default:
		}

		event := fillOrderID(events[i])
		events[i] = event

		data, err := json.Marshal(event)
		if err != nil {
			log.Error().Err(err).Int("index", i+1).Msg("failed to marshal event")
			continue
		}
		if err := broker.Publish(settings.Nats.OrdersSubject, data); err != nil {
			log.Error().Err(err).Int("index", i+1).Msg("failed to publish event")
			continue
		}
		log.Info().Int("index", i+1).Str("order_id", event.Base().OrderID).Msg("published event")

		time.Sleep(*throttle)
	}

	log.Info().Msg("all events published")
}

// fillOrderID assigns a fresh id to create events whose order_id was
// left blank in the replay file, the way a real order-entry client
// would stamp one on before sending.
func fillOrderID(event types.Event) types.Event {
	ce, ok := event.(types.CreateEvent)
	if !ok || ce.OrderID != "" {
		return event
	}
	ce.OrderID = uuid.New().String()
	return ce
}
