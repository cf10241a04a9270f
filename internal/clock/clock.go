package clock

// Clock is the simulated day counter. It only moves forward.
type Clock struct {
	day int
}

func New() *Clock {
	return &Clock{}
}

func (c *Clock) Increment() {
	c.day++
}

func (c *Clock) Now() int {
	return c.day
}
