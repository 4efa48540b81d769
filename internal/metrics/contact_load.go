package metrics

import "github.com/san-kum/sphsim/internal/world"

// ContactLoad is the mean number of penalty contacts resolved per step.
type ContactLoad struct {
	name    string
	sum     float64
	samples int
}

func NewContactLoad() *ContactLoad {
	return &ContactLoad{
		name: "contact_load",
	}
}

func (c *ContactLoad) Name() string {
	return c.name
}

func (c *ContactLoad) Observe(w *world.World) {
	c.sum += float64(w.LastStats().Resolved)
	c.samples++
}

func (c *ContactLoad) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ContactLoad) Reset() {
	c.sum = 0
	c.samples = 0
}
