package signalengine

import (
	"marketpulse/internal/indicatorkit"
	"marketpulse/internal/model"
)

// Component weights, fixed integers per spec.
const (
	WeightPriceMovement   = 20
	WeightVolume          = 15
	WeightVelocity        = 20
	WeightFunding         = 15
	WeightOpenInterest    = 10
	WeightMultiTimeframe  = 20
)

func priceMovementComponent(a model.VolatilityAlert) model.SignalComponent {
	return model.SignalComponent{
		Name:      "PriceMovement",
		Direction: directionFromAlert(a.Direction),
		Strength:  indicatorkit.Clamp(absF(a.Change24h)*4, 0, 100),
		Weight:    WeightPriceMovement,
	}
}

func volumeComponent(a model.VolumeAlert) model.SignalComponent {
	return model.SignalComponent{
		Name:      "Volume",
		Direction: directionFromAlert(a.Direction),
		Strength:  indicatorkit.Clamp(a.Multiplier*20, 0, 100),
		Weight:    WeightVolume,
	}
}

func velocityComponent(a model.VelocityAlert) model.SignalComponent {
	return model.SignalComponent{
		Name:      "Velocity",
		Direction: directionFromAlert(a.Direction),
		Strength:  indicatorkit.Clamp(absF(a.VelocityPct)*40, 0, 100),
		Weight:    WeightVelocity,
	}
}

func fundingComponent(a model.FundingAlert) model.SignalComponent {
	return model.SignalComponent{
		Name:      "Funding",
		Direction: directionFromAlert(a.Direction),
		Strength:  a.Strength,
		Weight:    WeightFunding,
	}
}

func openInterestComponent(a model.OpenInterestAlert) model.SignalComponent {
	return model.SignalComponent{
		Name:      "OpenInterest",
		Direction: directionFromAlert(a.Direction),
		Strength:  indicatorkit.Clamp(absF(a.OIChangePct)*10, 0, 100),
		Weight:    WeightOpenInterest,
	}
}

func multiTimeframeComponent(a model.MultiTimeframeAlert) model.SignalComponent {
	strength := 60.0
	switch a.Alignment {
	case model.AlignStrongBullish, model.AlignStrongBearish:
		strength = 90
	case model.AlignMixed:
		strength = 30
	}
	return model.SignalComponent{
		Name:      "MultiTimeframe",
		Direction: directionFromAlert(a.Direction),
		Strength:  strength,
		Weight:    WeightMultiTimeframe,
	}
}
