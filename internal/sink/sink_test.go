package sink_test

import (
	"bufio"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fenrir/internal/sink"
	"fenrir/internal/types"
)

func TestTradeSink_WriteTrade_AppendsJSONLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "trades.jsonl")

	s, err := sink.Open(path)
	require.NoError(t, err)

	trade1 := types.Trade{TS: 1, Seq: 1, Symbol: types.ABC, BuyOrderID: "b1", SellOrderID: "s1", Qty: 5, Price: 100, MakerOrderID: "s1", TakerSide: types.Buy}
	trade2 := types.Trade{TS: 2, Seq: 2, Symbol: types.ABC, BuyOrderID: "b2", SellOrderID: "s2", Qty: 3, Price: 101, MakerOrderID: "s2", TakerSide: types.Sell}

	require.NoError(t, s.WriteTrade(trade1))
	require.NoError(t, s.WriteTrade(trade2))
	require.NoError(t, s.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"buy_order_id":"b1"`)
	assert.Contains(t, lines[1], `"buy_order_id":"b2"`)
}

func TestReadEvents_SkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orders.jsonl")

	content := "" +
		`{"type":"create","ts":1,"seq":1,"symbol":"ABC","order_id":"o1","side":"B","price":100,"qty":5}` + "\n" +
		"not json at all\n" +
		`{"type":"cancel","ts":2,"seq":2,"symbol":"ABC","order_id":"o1"}` + "\n"

	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	events, err := sink.ReadEvents(path)
	require.NoError(t, err)
	require.Len(t, events, 2)

	_, ok := events[0].(types.CreateEvent)
	assert.True(t, ok)
	_, ok = events[1].(types.CancelEvent)
	assert.True(t, ok)
}

func TestReadEvents_MissingFileReturnsEmpty(t *testing.T) {
	events, err := sink.ReadEvents("/nonexistent/path/orders.jsonl")
	require.NoError(t, err)
	assert.Empty(t, events)
}
