// cmd/engine runs the matching core against a live bus: it subscribes
// to the orders subject, runs every decoded event through the Matcher,
// and publishes + sinks any trades produced.
//
// Grounded on saiputravu-Exchange/cmd/server/server.go's
// signal.NotifyContext + tomb.WithContext shutdown shape, and on
// original_source/src/engine/main.go's subscribe-decode-match-publish
// loop.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"fenrir/internal/bus"
	"fenrir/internal/config"
	"fenrir/internal/matcher"
	"fenrir/internal/sink"
	"fenrir/internal/types"
	"fenrir/internal/workerpool"
)

func main() {
	configPath := flag.String("config", "", "path to settings.yaml (optional)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	settings, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	broker := bus.New(settings.Nats)
	if err := broker.Connect(); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to bus")
	}
	defer broker.Close()

	tradeSink, err := sink.Open(settings.Engine.OutputPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open trade sink")
	}
	defer tradeSink.Close()

	m := matcher.New()

	t, ctx := tomb.WithContext(ctx)

	pool := workerpool.New(runtime.NumCPU(), func(_ *tomb.Tomb, task workerpool.Task) error {
		handleMessage(task, m, broker, tradeSink, settings)
		return nil
	})
	pool.Run(t)

	if err := broker.Subscribe(settings.Nats.OrdersSubject, func(payload []byte) {
		pool.Submit(payload)
	}); err != nil {
		log.Fatal().Err(err).Msg("failed to subscribe to orders subject")
	}

	log.Info().Str("subject", settings.Nats.OrdersSubject).Msg("matching engine running")

	<-ctx.Done()
	log.Info().Msg("shutting down gracefully")
	t.Kill(nil)
	_ = t.Wait()
}

// handleMessage decodes one bus message, runs it through the matcher,
// and fans any produced trades out to the trades subject and the file
// sink. Decode failures and unknown event types are logged and
// dropped, never forwarded to the matcher (spec.md §7).
func handleMessage(payload []byte, m *matcher.Matcher, broker bus.Broker, tradeSink *sink.TradeSink, settings config.Settings) {
	event, err := types.Decode(payload)
	if err != nil {
		log.Warn().Err(err).Msg("failed to decode event, dropping")
		return
	}

	trades := m.HandleEvent(event)
	for _, trade := range trades {
		log.Info().
			Str("symbol", string(trade.Symbol)).
			Int64("qty", trade.Qty).
			Int64("price", trade.Price).
			Msg("trade created")

		data, err := json.Marshal(trade)
		if err != nil {
			log.Error().Err(err).Msg("failed to marshal trade")
			continue
		}
		if err := broker.Publish(settings.Nats.TradesSubject, data); err != nil {
			log.Error().Err(err).Msg("failed to publish trade")
		}
		if err := tradeSink.WriteTrade(trade); err != nil {
			log.Error().Err(err).Msg("failed to persist trade")
		}
	}
}
