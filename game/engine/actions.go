package engine

import (
	"encoding/json"
	"fmt"
)

// Result is the outcome of one dispatched action. Expected rule violations
// come back with Success false and a human-readable Error; they are never Go
// errors or panics.
type Result struct {
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func okResult(data interface{}) Result {
	return Result{Success: true, Data: data}
}

func failResult(format string, args ...interface{}) Result {
	return Result{Success: false, Error: fmt.Sprintf(format, args...)}
}

// Action is the closed set of state-changing commands the Controller
// accepts. The marker method seals the interface to this package, so
// Dispatch can switch over every case exhaustively.
type Action interface {
	isAction()
}

// Wire names for each action kind, used by DecodeAction and ActionName.
const (
	ActionPlaceStation     = "PLACE_STATION"
	ActionRemoveStation    = "REMOVE_STATION"
	ActionStartLine        = "START_LINE"
	ActionAddStationToLine = "ADD_STATION_TO_LINE"
	ActionCompleteLine     = "COMPLETE_LINE"
	ActionCancelLine       = "CANCEL_LINE"
	ActionAddTrain         = "ADD_TRAIN"
	ActionRemoveTrain      = "REMOVE_TRAIN"
	ActionPause            = "PAUSE"
	ActionResume           = "RESUME"
	ActionSetSpeed         = "SET_SPEED"
)

// PlaceStationAction places a station at a vertex.
type PlaceStationAction struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// RemoveStationAction removes an unreferenced station.
type RemoveStationAction struct {
	StationID string `json:"station_id"`
}

// StartLineAction begins drawing a line of the given color from a station.
type StartLineAction struct {
	Color     string `json:"color"`
	StationID string `json:"station_id"`
}

// AddStationToLineAction appends a station to the line being drawn;
// revisiting the first station closes the loop.
type AddStationToLineAction struct {
	StationID string `json:"station_id"`
}

// CompleteLineAction finalizes the line being drawn.
type CompleteLineAction struct{}

// CancelLineAction discards the line being drawn.
type CancelLineAction struct{}

// AddTrainAction adds a train to a completed line.
type AddTrainAction struct {
	LineID string `json:"line_id"`
}

// RemoveTrainAction removes a train from its line.
type RemoveTrainAction struct {
	TrainID string `json:"train_id"`
}

// PauseAction halts the simulation clock.
type PauseAction struct{}

// ResumeAction restarts the simulation clock.
type ResumeAction struct{}

// SetSpeedAction changes the simulation speed multiplier. Only 1, 2 and 4
// are accepted; anything else is rejected, not clamped.
type SetSpeedAction struct {
	Speed int `json:"speed"`
}

func (PlaceStationAction) isAction()     {}
func (RemoveStationAction) isAction()    {}
func (StartLineAction) isAction()        {}
func (AddStationToLineAction) isAction() {}
func (CompleteLineAction) isAction()     {}
func (CancelLineAction) isAction()       {}
func (AddTrainAction) isAction()         {}
func (RemoveTrainAction) isAction()      {}
func (PauseAction) isAction()            {}
func (ResumeAction) isAction()           {}
func (SetSpeedAction) isAction()         {}

// DecodeAction turns a wire-form action (type tag plus JSON payload) into a
// typed Action. A nil or empty payload is fine for actions without fields.
// Decoded actions are always value types, so Dispatch only switches on
// values.
func DecodeAction(actionType string, payload json.RawMessage) (Action, error) {
	unmarshal := func(into interface{}) error {
		if len(payload) == 0 {
			return nil
		}
		if err := json.Unmarshal(payload, into); err != nil {
			return fmt.Errorf("invalid %s payload: %w", actionType, err)
		}
		return nil
	}

	switch actionType {
	case ActionPlaceStation:
		var a PlaceStationAction
		if err := unmarshal(&a); err != nil {
			return nil, err
		}
		return a, nil
	case ActionRemoveStation:
		var a RemoveStationAction
		if err := unmarshal(&a); err != nil {
			return nil, err
		}
		return a, nil
	case ActionStartLine:
		var a StartLineAction
		if err := unmarshal(&a); err != nil {
			return nil, err
		}
		return a, nil
	case ActionAddStationToLine:
		var a AddStationToLineAction
		if err := unmarshal(&a); err != nil {
			return nil, err
		}
		return a, nil
	case ActionCompleteLine:
		return CompleteLineAction{}, nil
	case ActionCancelLine:
		return CancelLineAction{}, nil
	case ActionAddTrain:
		var a AddTrainAction
		if err := unmarshal(&a); err != nil {
			return nil, err
		}
		return a, nil
	case ActionRemoveTrain:
		var a RemoveTrainAction
		if err := unmarshal(&a); err != nil {
			return nil, err
		}
		return a, nil
	case ActionPause:
		return PauseAction{}, nil
	case ActionResume:
		return ResumeAction{}, nil
	case ActionSetSpeed:
		var a SetSpeedAction
		if err := unmarshal(&a); err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("unknown action type %q", actionType)
	}
}

// ActionName returns the wire name of a typed action.
func ActionName(a Action) string {
	switch a.(type) {
	case PlaceStationAction:
		return ActionPlaceStation
	case RemoveStationAction:
		return ActionRemoveStation
	case StartLineAction:
		return ActionStartLine
	case AddStationToLineAction:
		return ActionAddStationToLine
	case CompleteLineAction:
		return ActionCompleteLine
	case CancelLineAction:
		return ActionCancelLine
	case AddTrainAction:
		return ActionAddTrain
	case RemoveTrainAction:
		return ActionRemoveTrain
	case PauseAction:
		return ActionPause
	case ResumeAction:
		return ActionResume
	case SetSpeedAction:
		return ActionSetSpeed
	default:
		return "UNKNOWN"
	}
}
