package engine

// Ledger applies the game's money flows to a GameState. It is a pure
// bookkeeping layer: money may go negative, there is no bankruptcy rule.
type Ledger struct {
	tuning *Tuning
}

// NewLedger creates a ledger bound to a tuning.
func NewLedger(t *Tuning) *Ledger {
	return &Ledger{tuning: t}
}

// ChargeStation subtracts the fixed station construction cost.
func (l *Ledger) ChargeStation(s *GameState) {
	s.Money -= l.tuning.StationCost
}

// ChargeLine subtracts the construction cost of a completed line: its total
// geometric length times the per-unit cost.
func (l *Ledger) ChargeLine(s *GameState, length float64) {
	s.Money -= length * l.tuning.LineCostPerUnit
}

// ChargeTravel subtracts the running cost for a stretch of train travel.
func (l *Ledger) ChargeTravel(s *GameState, distance float64) {
	s.Money -= distance * l.tuning.RunningCostPerUnit
}

// CreditFare adds the fixed fare for one completed passenger journey.
func (l *Ledger) CreditFare(s *GameState) {
	s.Money += l.tuning.Fare
}
