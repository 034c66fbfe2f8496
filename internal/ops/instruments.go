package ops

import "stocksim/internal/market"

// DefaultInstruments is the built-in instrument set.
func DefaultInstruments() []market.Metadata {
	return []market.Metadata{
		{Name: "Aurora Robotics", Symbol: "AUR", Price: 24_500, Cap: 10_000_000, Volatility: 0.9, Bias: true, OutlookMagnitude: 17, ShareTxForMovement: 85_000, MaxShares: 34_000_000},
		{Name: "Bluewater Shipping", Symbol: "BWS", Price: 3_900, Cap: 1_500_000, Volatility: 1.2, Bias: false, OutlookMagnitude: 6, ShareTxForMovement: 60_000, MaxShares: 50_000_000},
		{Name: "Cinder Energy", Symbol: "CDR", Price: 8_100, Cap: 4_000_000, Volatility: 0.7, Bias: true, OutlookMagnitude: 9, ShareTxForMovement: 70_000, MaxShares: 42_000_000},
		{Name: "Delta Pharmaceuticals", Symbol: "DPH", Price: 15_200, Cap: 7_500_000, Volatility: 0.6, Bias: true, OutlookMagnitude: 12, ShareTxForMovement: 95_000, MaxShares: 28_000_000},
		{Name: "Everline Telecom", Symbol: "EVT", Price: 6_400, Cap: 2_500_000, Volatility: 0.5, Bias: false, OutlookMagnitude: 4, ShareTxForMovement: 75_000, MaxShares: 46_000_000},
		{Name: "Foundry Metals", Symbol: "FDM", Price: 2_300, Cap: 900_000, Volatility: 1.5, Bias: true, OutlookMagnitude: 3, ShareTxForMovement: 50_000, MaxShares: 60_000_000},
		{Name: "Greenleaf Foods", Symbol: "GLF", Price: 1_100, Cap: 500_000, Volatility: 0.4, Bias: true, OutlookMagnitude: 2, ShareTxForMovement: 55_000, MaxShares: 70_000_000},
		{Name: "Helix Quantum", Symbol: "HLX", Price: 41_000, Cap: 20_000_000, Volatility: 1.1, Bias: true, OutlookMagnitude: 20, ShareTxForMovement: 100_000, MaxShares: 22_000_000},
	}
}
