package debounce

import "time"

const DefaultCooldown = 4 * time.Second

type State int

const (
	Armed State = iota
	Cooling
)

func (s State) String() string {
	if s == Cooling {
		return "COOLING"
	}
	return "ARMED"
}

// Gate limits event emission to one per cooldown window. It is global: an
// accepted event blocks every other object until the deadline passes.
type Gate struct {
	state    State
	deadline time.Time
	cooldown time.Duration
}

func NewGate(cooldown time.Duration) *Gate {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Gate{state: Armed, cooldown: cooldown}
}

func (g *Gate) State() State {
	return g.state
}

func (g *Gate) Deadline() time.Time {
	return g.deadline
}

func (g *Gate) Cooldown() time.Duration {
	return g.cooldown
}

// Ready re-arms the gate once now has reached the deadline and reports
// whether an event may be accepted at now.
func (g *Gate) Ready(now time.Time) bool {
	if g.state == Cooling && !now.Before(g.deadline) {
		g.state = Armed
	}
	return g.state == Armed
}

// Trip moves the gate to COOLING until now+cooldown
func (g *Gate) Trip(now time.Time) {
	g.state = Cooling
	g.deadline = now.Add(g.cooldown)
}
