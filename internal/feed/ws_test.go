package feed_test

import (
	"strings"
	"testing"

	"github.com/MuhammadAliAbid58/HFT-2/internal/event"
	"github.com/MuhammadAliAbid58/HFT-2/internal/feed"
)

func TestParseMessage_Tick(t *testing.T) {
	msg := []byte(`{"type":"tick","symbol":"EURUSD","bid":"1.10500","ask":"1.10512","ts_ms":1724972400000,"seq":42}`)

	ev, err := feed.ParseMessage(msg)
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	te, ok := ev.(event.TickEvent)
	if !ok {
		t.Fatalf("event type = %T", ev)
	}
	if te.Tick.BidMicros != 1105000 {
		t.Errorf("bid = %d; want 1105000", te.Tick.BidMicros)
	}
	if te.Tick.AskMicros != 1105120 {
		t.Errorf("ask = %d; want 1105120", te.Tick.AskMicros)
	}
	if te.Tick.Seq != 42 {
		t.Errorf("seq = %d; want 42", te.Tick.Seq)
	}
	if int64(te.Tick.Ts) != 1724972400000000 {
		t.Errorf("ts = %d; want micros", te.Tick.Ts)
	}
}

func TestParseMessage_Depth(t *testing.T) {
	msg := []byte(`{"type":"depth","symbol":"USDJPY","bids":[["147.25","1.5"]],"asks":[["147.27","0.5"]],"ts_ms":1724972400000,"seq":7}`)

	ev, err := feed.ParseMessage(msg)
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	de, ok := ev.(event.DepthEvent)
	if !ok {
		t.Fatalf("event type = %T", ev)
	}
	if de.Dom.Bids[0].PriceMicros != 147250000 {
		t.Errorf("bid price = %d", de.Dom.Bids[0].PriceMicros)
	}
	if de.Dom.Bids[0].Volume != 1500000 {
		t.Errorf("bid volume = %d", de.Dom.Bids[0].Volume)
	}
	if de.Dom.Asks[0].Volume != 500000 {
		t.Errorf("ask volume = %d", de.Dom.Asks[0].Volume)
	}
	// Imbalance: (1.5 - 0.5) / 2.0 = +0.5.
	if got := de.Dom.Imbalance(); got != 500000 {
		t.Errorf("imbalance = %d; want 500000", got)
	}
}

func TestParseMessage_Errors(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want string
	}{
		{"Garbage", `not json`, "decode"},
		{"Unknown Type", `{"type":"heartbeat"}`, "unknown"},
		{"Bad Price", `{"type":"tick","symbol":"EURUSD","bid":"x","ask":"1.1","ts_ms":1,"seq":1}`, "bid"},
		{"Crossed Quote", `{"type":"tick","symbol":"EURUSD","bid":"1.20","ask":"1.10","ts_ms":1,"seq":1}`, "crossed"},
		{"Empty Depth Side", `{"type":"depth","symbol":"EURUSD","bids":[],"asks":[["1.1","1"]],"ts_ms":1,"seq":1}`, "empty side"},
		{"Malformed Level", `{"type":"depth","symbol":"EURUSD","bids":[["1.1"]],"asks":[["1.1","1"]],"ts_ms":1,"seq":1}`, "level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := feed.ParseMessage([]byte(tt.msg))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %q; want substring %q", err, tt.want)
			}
		})
	}
}

func TestWSConfigValidate(t *testing.T) {
	cfg := feed.WSConfig{}
	if err := cfg.Validate(); err == nil {
		t.Error("empty config must fail")
	}
}
