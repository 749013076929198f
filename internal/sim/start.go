package sim

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/paulmach/orb"

	"github.com/triathematician/blaisemath-sub005/internal/geom"
)

// endzoneDepth is the share of the pitch height used by the endzone scheme.
const endzoneDepth = 0.1

// startPositions places n agents according to the scheme. Random schemes draw
// from rng in roster order.
func startPositions(cfg StartConfig, n int, pitch orb.Bound, rng *rand.Rand) ([]orb.Point, error) {
	out := make([]orb.Point, n)
	width := pitch.Max[0] - pitch.Min[0]
	height := pitch.Max[1] - pitch.Min[1]
	midY := pitch.Min[1] + height/2

	uniform := func(minY, maxY float64) orb.Point {
		return orb.Point{
			pitch.Min[0] + rng.Float64()*width,
			minY + rng.Float64()*(maxY-minY),
		}
	}

	for i := 0; i < n; i++ {
		switch cfg.Scheme {
		case "", StartZero:
			out[i] = geom.Zero
		case StartRandom:
			out[i] = uniform(pitch.Min[1], pitch.Max[1])
		case StartLine:
			out[i] = geom.Lerp(cfg.From, cfg.To, spread(i, n))
		case StartCircle:
			out[i] = geom.Polar(cfg.Center, cfg.Radius, 2*math.Pi*float64(i)/float64(n))
		case StartArc:
			angle := cfg.ArcStart + (cfg.ArcEnd-cfg.ArcStart)*spread(i, n)
			out[i] = geom.Polar(cfg.Center, cfg.Radius, angle)
		case StartSpecific:
			if i >= len(cfg.Points) {
				return nil, fmt.Errorf("specific start: no point for agent %d", i)
			}
			out[i] = cfg.Points[i]
		case StartSideline:
			out[i] = uniform(pitch.Min[1], pitch.Min[1])
		case StartEndzone:
			out[i] = uniform(pitch.Max[1]-endzoneDepth*height, pitch.Max[1])
		case StartOffense:
			out[i] = uniform(pitch.Min[1], midY)
		case StartDefense:
			out[i] = uniform(midY, pitch.Max[1])
		case StartCustom:
			if cfg.Custom == nil {
				return nil, fmt.Errorf("custom start: placement function is nil")
			}
			out[i] = cfg.Custom(i, n, pitch, rng)
		default:
			return nil, fmt.Errorf("unsupported start scheme %q", cfg.Scheme)
		}
	}
	return out, nil
}

// spread maps agent i of n onto [0,1]; a single agent sits in the middle.
func spread(i, n int) float64 {
	if n <= 1 {
		return 0.5
	}
	return float64(i) / float64(n-1)
}
