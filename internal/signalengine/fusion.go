package signalengine

import "marketpulse/internal/model"

// FusionResult is the output of Fuse: the raw weighted net, the weight sum
// actually present, and the derived confluence/confidence/direction.
type FusionResult struct {
	Net        float64
	WeightSum  float64
	Confluence float64
	Confidence float64
	Aligned    int
	Direction  model.Direction
}

// Fuse implements calculateConfluence over a set of weighted components.
// With W = sum of weights present: bullish/bearish are the weighted sums of
// (strength/100) for components on each side, net = bullish - bearish,
// confluence = |net|/W*100, aligned counts components whose direction
// matches sign(net), confidence = min(100, confluence + aligned/n*20), and
// direction is LONG/SHORT/NEUTRAL on the +-10 net band.
func Fuse(components []model.SignalComponent) FusionResult {
	if len(components) == 0 {
		return FusionResult{Direction: model.Neutral}
	}

	var bullish, bearish, weightSum float64
	for _, c := range components {
		weightSum += float64(c.Weight)
		contribution := c.Strength / 100 * float64(c.Weight)
		switch c.Direction {
		case model.Bullish:
			bullish += contribution
		case model.Bearish:
			bearish += contribution
		}
	}

	net := bullish - bearish

	var confluence float64
	if weightSum > 0 {
		confluence = absF(net) / weightSum * 100
	}

	direction := model.Neutral
	switch {
	case net > 10:
		direction = model.Long
	case net < -10:
		direction = model.Short
	}

	netSign := signOf(net)
	aligned := 0
	for _, c := range components {
		if c.Direction.Sign() == netSign && netSign != 0 {
			aligned++
		}
	}

	confidence := confluence + float64(aligned)/float64(len(components))*20
	if confidence > 100 {
		confidence = 100
	}

	return FusionResult{
		Net:        net,
		WeightSum:  weightSum,
		Confluence: confluence,
		Confidence: confidence,
		Aligned:    aligned,
		Direction:  direction,
	}
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func signOf(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// directionFromAlert maps a detector's LONG/SHORT/NEUTRAL alert direction to
// the BULLISH/BEARISH/NEUTRAL vocabulary fusion works in.
func directionFromAlert(d model.Direction) model.ComponentDirection {
	switch d {
	case model.Long:
		return model.Bullish
	case model.Short:
		return model.Bearish
	default:
		return model.ComponentNeutral
	}
}
