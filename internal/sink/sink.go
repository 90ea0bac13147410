// Package sink implements JSON-lines trade persistence and replay file
// reading: one record per line, append mode, directory created if
// missing.
//
// Grounded on original_source/src/common/utils/file_manager.py
// (write_json/read_json, directory auto-creation, malformed-line
// skip-and-warn) reimplemented over a buffered *os.File.
package sink

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"

	"fenrir/internal/types"
)

// TradeSink appends trades to a JSON-lines file, one object per line,
// flushed after every write.
type TradeSink struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
}

// Open opens (creating if needed, including parent directories) the
// file at path for append.
func Open(path string) (*TradeSink, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sink: create directory %s: %w", dir, err)
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("sink: open %s: %w", path, err)
	}

	return &TradeSink{file: f, writer: bufio.NewWriter(f)}, nil
}

// WriteTrade appends one trade as a JSON line and flushes immediately.
func (s *TradeSink) WriteTrade(trade types.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(trade)
	if err != nil {
		return fmt.Errorf("sink: marshal trade: %w", err)
	}
	if _, err := s.writer.Write(data); err != nil {
		return fmt.Errorf("sink: write trade: %w", err)
	}
	if err := s.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("sink: write newline: %w", err)
	}
	if err := s.writer.Flush(); err != nil {
		return fmt.Errorf("sink: flush: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (s *TradeSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writer.Flush(); err != nil {
		return fmt.Errorf("sink: flush on close: %w", err)
	}
	return s.file.Close()
}

// ReadEvents reads a JSON-lines file of inbound events, for replay by
// cmd/feeder. A malformed line is logged and skipped rather than
// aborting the read, mirroring file_manager.read_json.
func ReadEvents(path string) ([]types.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Error().Str("path", path).Msg("replay file not found")
			return nil, nil
		}
		return nil, fmt.Errorf("sink: open %s: %w", path, err)
	}
	defer f.Close()

	var events []types.Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		event, err := types.Decode(raw)
		if err != nil {
			log.Warn().Err(err).Int("line", line).Msg("skipping malformed event")
			continue
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("sink: scan %s: %w", path, err)
	}

	log.Info().Int("count", len(events)).Str("path", path).Msg("loaded events from file")
	return events, nil
}
