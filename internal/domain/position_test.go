package domain

import (
	"testing"

	"github.com/MuhammadAliAbid58/HFT-2/pkg/quant"
)

func TestPosition_PnlMicros(t *testing.T) {
	tests := []struct {
		name string
		dir  Direction
		exit quant.PriceMicros
		want int64
	}{
		{"Long Profit", Long, 1107000, 2000},
		{"Long Loss", Long, 1104000, -1000},
		{"Short Profit", Short, 1103000, 2000},
		{"Short Loss", Short, 1106000, -1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Position{Direction: tt.dir, EntryMicros: 1105000}
			if got := p.PnlMicros(tt.exit); got != tt.want {
				t.Errorf("PnlMicros = %d; want %d", got, tt.want)
			}
		})
	}
}

func TestPositionState_Terminal(t *testing.T) {
	terminals := map[PositionState]bool{
		StatePendingOpen:  false,
		StateOpen:         false,
		StatePendingClose: false,
		StateClosed:       true,
		StateRejected:     true,
	}
	for state, want := range terminals {
		if got := state.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v; want %v", state, got, want)
		}
	}
}
