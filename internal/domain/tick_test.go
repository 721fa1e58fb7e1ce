package domain

import (
	"testing"
)

func TestTick_Valid(t *testing.T) {
	tests := []struct {
		name string
		bid  int64
		ask  int64
		want bool
	}{
		{"Normal", 1105000, 1105200, true},
		{"Zero Spread", 1105000, 1105000, true},
		{"Crossed", 1105200, 1105000, false},
		{"Zero Bid", 0, 1105000, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tick := Tick{Symbol: "EURUSD", BidMicros: quantPM(tt.bid), AskMicros: quantPM(tt.ask)}
			if got := tick.Valid(); got != tt.want {
				t.Errorf("Valid() = %v; want %v", got, tt.want)
			}
		})
	}
}

func TestDomSnapshot_Imbalance(t *testing.T) {
	tests := []struct {
		name    string
		bidVols []int64
		askVols []int64
		want    int64
	}{
		{"Balanced", []int64{100, 100}, []int64{100, 100}, 0},
		{"All Bids Heavier", []int64{300}, []int64{100}, 500000},
		{"All Asks Heavier", []int64{100}, []int64{300}, -500000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dom := &DomSnapshot{Symbol: "EURUSD"}
			for i, v := range tt.bidVols {
				dom.Bids = append(dom.Bids, DomLevel{PriceMicros: quantPM(1105000 - int64(i)*100), Volume: vu(v)})
			}
			for i, v := range tt.askVols {
				dom.Asks = append(dom.Asks, DomLevel{PriceMicros: quantPM(1105200 + int64(i)*100), Volume: vu(v)})
			}
			if got := dom.Imbalance(); got != tt.want {
				t.Errorf("Imbalance() = %d; want %d", got, tt.want)
			}
		})
	}
}

func TestDomSnapshot_Valid(t *testing.T) {
	var nilDom *DomSnapshot
	if nilDom.Valid() {
		t.Error("nil snapshot must be invalid")
	}

	empty := &DomSnapshot{Symbol: "EURUSD", Bids: []DomLevel{{quantPM(1105000), 100}}}
	if empty.Valid() {
		t.Error("snapshot without asks must be invalid")
	}
}
