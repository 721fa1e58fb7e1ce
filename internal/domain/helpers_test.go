package domain

import "github.com/MuhammadAliAbid58/HFT-2/pkg/quant"

func quantPM(v int64) quant.PriceMicros { return quant.PriceMicros(v) }
func vu(v int64) quant.VolumeUnits      { return quant.VolumeUnits(v) }
