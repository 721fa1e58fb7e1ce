package signal_test

import (
	"testing"

	"github.com/MuhammadAliAbid58/HFT-2/internal/domain"
	"github.com/MuhammadAliAbid58/HFT-2/internal/signal"
)

func snap(bias, imbalance int64) domain.MarketSnapshot {
	return domain.MarketSnapshot{
		Tick:                domain.Tick{Symbol: "EURUSD", BidMicros: 1105000, AskMicros: 1105100},
		DirectionBiasMicros: bias,
		ImbalanceMicros:     imbalance,
	}
}

func TestEvaluate(t *testing.T) {
	p := signal.DefaultParams()

	tests := []struct {
		name string
		snap domain.MarketSnapshot
		slot signal.SlotView
		want domain.Intent
	}{
		{"Open Long", snap(400000, 300000), signal.SlotView{}, domain.OpenLong},
		{"Open Short", snap(-400000, -300000), signal.SlotView{}, domain.OpenShort},
		{"Bias Without Book Agreement", snap(400000, 0), signal.SlotView{}, domain.NoAction},
		{"Weak Bias", snap(100000, 300000), signal.SlotView{}, domain.NoAction},
		{"Re-entrant Open Is NoAction", snap(400000, 300000), signal.SlotView{HasPosition: true, Direction: domain.Long}, domain.NoAction},
		{"Close Long On Reversal", snap(-400000, 0), signal.SlotView{HasPosition: true, Direction: domain.Long}, domain.CloseExisting},
		{"Close Short On Reversal", snap(400000, 0), signal.SlotView{HasPosition: true, Direction: domain.Short}, domain.CloseExisting},
		{"Hold Long While Rising", snap(400000, 300000), signal.SlotView{HasPosition: true, Direction: domain.Long}, domain.NoAction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := signal.Evaluate(tt.snap, tt.slot, p); got != tt.want {
				t.Errorf("Evaluate() = %s; want %s", got, tt.want)
			}
		})
	}
}

func TestParams_Validate(t *testing.T) {
	if !signal.DefaultParams().Validate() {
		t.Error("default params must validate")
	}
	bad := signal.Params{OpenBiasMicros: 0, OpenImbalanceMicros: 1, ReverseBiasMicros: 1}
	if bad.Validate() {
		t.Error("zero open bias must not validate")
	}
}
