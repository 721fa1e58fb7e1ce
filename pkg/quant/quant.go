package quant

import (
	"fmt"
	"time"
)

// PriceMicros represents a price multiplied by 1,000,000 (10^6).
// E.g., EURUSD 1.10500 = 1,105,000 PriceMicros.
type PriceMicros int64

// VolumeUnits represents an order-book size in whole units of base currency.
type VolumeUnits int64

// TimeStamp represents Unix Microseconds.
type TimeStamp int64

const PriceScale = 1000000

// Now returns the current wall clock as a TimeStamp.
func Now() TimeStamp {
	return TimeStamp(time.Now().UnixMicro())
}

func (p PriceMicros) String() string {
	return fmt.Sprintf("%.6f", float64(p)/PriceScale)
}

func (t TimeStamp) Time() time.Time {
	return time.UnixMicro(int64(t))
}
