package domain

// Symbol describes a tradeable forex instrument.
// PipMicros is the pip size expressed in price micros: 100 for 5-digit
// pairs (0.0001), 10000 for JPY pairs (0.01).
type Symbol struct {
	Name      string `yaml:"name" json:"name"`
	PipMicros int64  `yaml:"pip_micros" json:"pip_micros"`
}

// DefaultSymbols mirrors the standard four-pair session setup.
func DefaultSymbols() []Symbol {
	return []Symbol{
		{Name: "EURUSD", PipMicros: 100},
		{Name: "GBPUSD", PipMicros: 100},
		{Name: "USDJPY", PipMicros: 10000},
		{Name: "AUDUSD", PipMicros: 100},
	}
}
