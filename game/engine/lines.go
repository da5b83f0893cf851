package engine

import "fmt"

// LineManager owns the line-drawing workflow. A line is drawn as a transient
// draft (start, append stations, optionally close the loop) and only becomes
// part of the game state, and costs money, when completed. The draft is
// never serialized; an unfinished line does not survive a save.
type LineManager struct {
	tuning *Tuning
	ledger *Ledger
	draft  *MetroLine
}

// NewLineManager wires the line rules to the ledger.
func NewLineManager(t *Tuning, ledger *Ledger) *LineManager {
	return &LineManager{tuning: t, ledger: ledger}
}

// Draft returns the in-progress line, or nil when none is being drawn.
func (lm *LineManager) Draft() *MetroLine {
	return lm.draft
}

// DraftUses reports whether the in-progress line includes the station.
func (lm *LineManager) DraftUses(stationID string) bool {
	return lm.draft != nil && lm.draft.StationIndex(stationID) >= 0
}

// paletteHas reports whether the color is one of the tuning's line colors.
func (lm *LineManager) paletteHas(color string) bool {
	for _, c := range lm.tuning.LineColors {
		if c == color {
			return true
		}
	}
	return false
}

// Start begins a new draft with the chosen color and first station. Colors
// are unique per game: at most one line per palette color.
func (lm *LineManager) Start(s *GameState, color, stationID string) Result {
	if lm.draft != nil {
		return failResult("line validation: another line is already being drawn")
	}
	if !lm.paletteHas(color) {
		return failResult("line validation: color %q is not in the palette", color)
	}
	if s.ColorInUse(color) {
		return failResult("line validation: color %s is already used by another line", color)
	}
	if s.Station(stationID) == nil {
		return failResult("line validation: no station with id %s", stationID)
	}

	lm.draft = &MetroLine{
		Color:    color,
		Stations: []string{stationID},
		Trains:   []*Train{},
	}
	return okResult(lm.draft)
}

// AddStation appends a station to the draft. Revisiting the first station
// closes the draft into a loop; any other repeat is rejected. Nothing can be
// added after the loop is closed.
func (lm *LineManager) AddStation(s *GameState, stationID string) Result {
	if lm.draft == nil {
		return failResult("line validation: no line is being drawn")
	}
	if lm.draft.Loop {
		return failResult("line validation: the loop is closed, complete or cancel the line")
	}
	if s.Station(stationID) == nil {
		return failResult("line validation: no station with id %s", stationID)
	}
	if idx := lm.draft.StationIndex(stationID); idx >= 0 {
		if idx == 0 && len(lm.draft.Stations) >= 2 {
			// first station revisited: close the loop; the sequence is kept
			// without the duplicate closing entry
			lm.draft.Loop = true
			return okResult(lm.draft)
		}
		return failResult("line validation: station %s is already on this line", stationID)
	}

	lm.draft.Stations = append(lm.draft.Stations, stationID)
	return okResult(lm.draft)
}

// Complete finalizes the draft: it gets an id, joins the game state, the
// construction cost (total segment length times the per-unit cost) is
// charged, and the line's first train is placed. After this the station
// sequence is immutable.
func (lm *LineManager) Complete(s *GameState, trains *TrainManager) Result {
	if lm.draft == nil {
		return failResult("line validation: no line is being drawn")
	}
	if len(lm.draft.Stations) < 2 {
		return failResult("line validation: a line needs at least 2 stations, has %d", len(lm.draft.Stations))
	}

	line := lm.draft
	lm.draft = nil

	s.LineSeq++
	line.ID = fmt.Sprintf("line-%d", s.LineSeq)
	s.Lines = append(s.Lines, line)

	// caches the as-built segment paths for the line's lifetime
	lm.ledger.ChargeLine(s, LineLength(s, line))

	// every line runs at least one train
	if res := trains.Add(s, line.ID); !res.Success {
		return res
	}
	return okResult(line)
}

// Cancel discards the draft without charging anything.
func (lm *LineManager) Cancel() Result {
	if lm.draft == nil {
		return failResult("line validation: no line is being drawn")
	}
	lm.draft = nil
	return okResult(nil)
}
