// Package effects holds the stereo processing stages of the equalizer pipeline.
package effects

// Effector processes one stereo frame.
type Effector interface {
	Process(l, r float64) (float64, float64)
	Reset()
}

// Chain applies a sequence of effects in order.
type Chain struct {
	effects []Effector
}

func NewChain(effects ...Effector) *Chain {
	return &Chain{effects: effects}
}

func (c *Chain) Process(l, r float64) (float64, float64) {
	for _, e := range c.effects {
		l, r = e.Process(l, r)
	}
	return l, r
}

func (c *Chain) Reset() {
	for _, e := range c.effects {
		e.Reset()
	}
}

func (c *Chain) Add(e Effector) {
	c.effects = append(c.effects, e)
}

// Len returns the number of stages.
func (c *Chain) Len() int { return len(c.effects) }

// Gain scales both channels by a linear factor.
type Gain float64

func (g Gain) Process(l, r float64) (float64, float64) {
	return l * float64(g), r * float64(g)
}

func (Gain) Reset() {}
