package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

type Vertex struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type Tile struct {
	Type        string `json:"type"`
	Residential int    `json:"residential"`
	Office      int    `json:"office"`
}

type MapGrid struct {
	Width  int      `json:"width"`
	Height int      `json:"height"`
	Tiles  [][]Tile `json:"tiles"`
}

type Station struct {
	ID    string   `json:"id"`
	V     Vertex   `json:"vertex"`
	Label string   `json:"label"`
	Queue []string `json:"queue"`
}

type Train struct {
	ID         string   `json:"id"`
	Passengers []string `json:"passengers"`
}

type MetroLine struct {
	ID       string   `json:"id"`
	Color    string   `json:"color"`
	Stations []string `json:"stations"`
	Trains   []*Train `json:"trains"`
}

type Passenger struct {
	ID string `json:"id"`
}

type GameState struct {
	Map          *MapGrid     `json:"map"`
	Stations     []*Station   `json:"stations"`
	Lines        []*MetroLine `json:"lines"`
	Passengers   []*Passenger `json:"passengers"`
	Clock        float64      `json:"clock"`
	Money        float64      `json:"money"`
	Paused       bool         `json:"paused"`
	Speed        int          `json:"speed"`
	PassengerSeq int          `json:"passenger_seq"`
}

type Tuning struct {
	StationCost      float64  `json:"station_cost"`
	LineCostPerUnit  float64  `json:"line_cost_per_unit"`
	MaxTrainsPerLine int      `json:"max_trains_per_line"`
	CatchmentRadius  int      `json:"catchment_radius"`
	LineColors       []string `json:"line_colors"`
}

type SessionResponse struct {
	ID         string     `json:"id"`
	TuningName string     `json:"tuning_name"`
	GameState  *GameState `json:"game_state"`
	Tuning     *Tuning    `json:"tuning"`
}

type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type Snapshot struct {
	GameState *GameState `json:"game_state"`
	Hour      int        `json:"hour"`
}

type ActionOutcome struct {
	Result   Result    `json:"result"`
	Snapshot *Snapshot `json:"snapshot"`
}

type GameEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type TickOutcome struct {
	Snapshot *Snapshot   `json:"snapshot"`
	Events   []GameEvent `json:"events,omitempty"`
}

// Wire names of the actions the bot dispatches.
const (
	actionPlaceStation     = "PLACE_STATION"
	actionStartLine        = "START_LINE"
	actionAddStationToLine = "ADD_STATION_TO_LINE"
	actionCompleteLine     = "COMPLETE_LINE"
	actionCancelLine       = "CANCEL_LINE"
	actionAddTrain         = "ADD_TRAIN"
	actionResume           = "RESUME"
	actionSetSpeed         = "SET_SPEED"
)

type placeStationPayload struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type startLinePayload struct {
	Color     string `json:"color"`
	StationID string `json:"station_id"`
}

type addStationPayload struct {
	StationID string `json:"station_id"`
}

type addTrainPayload struct {
	LineID string `json:"line_id"`
}

type setSpeedPayload struct {
	Speed int `json:"speed"`
}

type Client struct {
	baseURL   string
	sessionID string
	client    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) CreateSession(tuning, terrain string, seed int64) (*SessionResponse, error) {
	payload := map[string]interface{}{}
	if tuning != "" {
		payload["tuning"] = tuning
	}
	if terrain != "" {
		payload["terrain"] = terrain
	}
	if seed != 0 {
		payload["seed"] = seed
	}
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	resp, err := c.client.Post(c.baseURL+"/api/sessions", "application/json", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("create session failed: %s - %s", resp.Status, string(body))
	}

	var session SessionResponse
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("parse session response: %w", err)
	}

	c.sessionID = session.ID
	return &session, nil
}

func (c *Client) GetSession() (*SessionResponse, error) {
	url := fmt.Sprintf("%s/api/sessions/%s", c.baseURL, c.sessionID)
	resp, err := c.client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get session failed: %s - %s", resp.Status, string(body))
	}

	var session SessionResponse
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("parse session response: %w", err)
	}

	return &session, nil
}

// Dispatch posts one action. A rejected action is normal rule feedback and
// comes back inside the outcome, not as a Go error; only transport and
// decoding problems are errors.
func (c *Client) Dispatch(actionType string, payload interface{}) (*ActionOutcome, error) {
	body, err := json.Marshal(map[string]interface{}{
		"type":    actionType,
		"payload": payload,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal action: %w", err)
	}

	url := fmt.Sprintf("%s/api/sessions/%s/actions", c.baseURL, c.sessionID)
	resp, err := c.client.Post(url, "application/json", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("dispatch %s: %w", actionType, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dispatch %s failed: %s - %s", actionType, resp.Status, string(raw))
	}

	var outcome ActionOutcome
	if err := json.Unmarshal(raw, &outcome); err != nil {
		return nil, fmt.Errorf("parse action outcome: %w", err)
	}

	return &outcome, nil
}

func (c *Client) Advance(dtMs float64) (*TickOutcome, error) {
	body, err := json.Marshal(map[string]float64{"dt_ms": dtMs})
	if err != nil {
		return nil, fmt.Errorf("marshal advance: %w", err)
	}

	url := fmt.Sprintf("%s/api/sessions/%s/advance", c.baseURL, c.sessionID)
	resp, err := c.client.Post(url, "application/json", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("advance: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("advance failed: %s - %s", resp.Status, string(raw))
	}

	var tick TickOutcome
	if err := json.Unmarshal(raw, &tick); err != nil {
		return nil, fmt.Errorf("parse tick outcome: %w", err)
	}

	return &tick, nil
}

func main() {
	serverURL := flag.String("url", "http://localhost:8080", "Game server URL")
	tuningName := flag.String("tuning", "", "Tuning name (default, sandbox, crunch)")
	terrain := flag.String("terrain", "", "Terrain kind (river, archipelago)")
	seed := flag.Int64("seed", 0, "Map seed (0 = server picks)")
	continueSession := flag.String("continue", "", "Resume an existing session by ID")
	lineCount := flag.Int("lines", 3, "Number of lines to build")
	speed := flag.Int("speed", 4, "Simulation speed multiplier (1, 2 or 4)")
	watchMinutes := flag.Int("watch", 180, "Simulated minutes to run after building")
	goal := flag.Int("goal", 25, "Delivered passengers that count as success")
	verbose := flag.Bool("v", false, "Verbose output")
	delayMs := flag.Int("delay", 0, "Delay between requests in milliseconds (0 = no delay)")
	flag.Parse()

	log.Printf("Connecting to game server at %s", *serverURL)
	client := NewClient(*serverURL)

	// Check for saved session ID
	sessionFile := ".session"
	savedSessionID := ""

	if *continueSession != "" {
		// Use explicitly provided session
		savedSessionID = *continueSession
	} else {
		// Try to load saved session
		if data, err := os.ReadFile(sessionFile); err == nil {
			savedSessionID = string(bytes.TrimSpace(data))
		}
	}

	var session *SessionResponse
	var err error

	if savedSessionID != "" {
		// Resume existing session
		client.sessionID = savedSessionID
		log.Printf("🔄 Resuming session: %s", client.sessionID)
		session, err = client.GetSession()
		if err != nil {
			log.Printf("⚠️  Failed to resume session (may be expired): %v", err)
			log.Printf("Creating new session...")
			savedSessionID = "" // Force create new
		}
	}

	if savedSessionID == "" {
		// Create new session
		session, err = client.CreateSession(*tuningName, *terrain, *seed)
		if err != nil {
			log.Fatalf("Failed to create session: %v", err)
		}
		log.Printf("✨ Session created: %s", client.sessionID)

		// Save session ID for next run
		if err := os.WriteFile(sessionFile, []byte(client.sessionID), 0644); err != nil {
			log.Printf("Warning: Failed to save session ID: %v", err)
		}
	}

	if session.GameState == nil || session.GameState.Map == nil || session.Tuning == nil {
		log.Fatalf("Session %s returned no usable game state", client.sessionID)
	}

	state := session.GameState
	tuning := session.Tuning
	log.Printf("Map: %dx%d, money $%.0f, palette of %d colors, tuning %q",
		state.Map.Width, state.Map.Height, state.Money, len(tuning.LineColors), session.TuningName)

	planner := NewPlanner(state, tuning, *lineCount)

	// Build phase: place stations, draw lines, add trains.
	applied := 0
	rejected := 0
	for {
		pa := planner.Next(state)
		if pa == nil {
			break
		}

		outcome, err := client.Dispatch(pa.Type, pa.Payload)
		if err != nil {
			log.Fatalf("Dispatch %s: %v", pa.Type, err)
		}
		if outcome.Snapshot != nil && outcome.Snapshot.GameState != nil {
			state = outcome.Snapshot.GameState
		}

		if !outcome.Result.Success {
			rejected++
			if *verbose {
				log.Printf("⚠️  %s rejected: %s", pa.Type, outcome.Result.Error)
			}
			planner.Rejected(pa)
			continue
		}

		applied++
		if *verbose {
			log.Printf("✅ %s %s", pa.Type, pa.Note)
		}

		if *delayMs > 0 {
			time.Sleep(time.Duration(*delayMs) * time.Millisecond)
		}
	}

	log.Printf("🚇 Network built: %d stations, %d lines, %d trains, $%.0f left (%d actions, %d rejected)",
		len(state.Stations), len(state.Lines), totalTrains(state), state.Money, applied, rejected)

	if len(state.Lines) == 0 {
		log.Printf("❌ No lines could be built")
		log.Printf("Session: %s", client.sessionID)
		os.Exit(1)
	}

	// The clock only runs while unpaused, so a paused session would watch
	// forever without this.
	if state.Paused {
		outcome, err := client.Dispatch(actionResume, nil)
		if err != nil {
			log.Fatalf("Resume: %v", err)
		}
		if outcome.Snapshot != nil && outcome.Snapshot.GameState != nil {
			state = outcome.Snapshot.GameState
		}
	}

	if *speed != state.Speed {
		outcome, err := client.Dispatch(actionSetSpeed, setSpeedPayload{Speed: *speed})
		if err != nil {
			log.Fatalf("Set speed: %v", err)
		}
		if !outcome.Result.Success {
			log.Printf("⚠️  SET_SPEED rejected: %s", outcome.Result.Error)
		} else if outcome.Snapshot != nil && outcome.Snapshot.GameState != nil {
			state = outcome.Snapshot.GameState
		}
	}

	// Watch phase: drive the clock and report each in-game hour.
	startClock := state.Clock
	startMoney := state.Money
	startAlive := len(state.Passengers)
	startSpawned := state.PassengerSeq
	lastHour := hourOf(state)
	ticks := 0
	maxTicks := *watchMinutes * 20 // guard against a clock that is not advancing

	for state.Clock-startClock < float64(*watchMinutes) {
		ticks++
		if ticks > maxTicks {
			log.Printf("⚠️  Clock is not advancing, giving up after %d ticks", ticks-1)
			break
		}

		tick, err := client.Advance(1000)
		if err != nil {
			log.Fatalf("Advance: %v", err)
		}
		if tick.Snapshot == nil || tick.Snapshot.GameState == nil {
			log.Fatalf("Advance returned no snapshot")
		}
		state = tick.Snapshot.GameState

		if *verbose {
			for _, ev := range tick.Events {
				log.Printf("  %s", ev.Message)
			}
		}

		if hour := tick.Snapshot.Hour; hour != lastHour {
			lastHour = hour
			spawned := state.PassengerSeq - startSpawned
			delivered := spawned + startAlive - len(state.Passengers)
			log.Printf("🕐 %02d:00  money $%.0f  riders %d  waiting %d  delivered %d",
				hour, state.Money, ridingCount(state), waitingCount(state), delivered)
		}

		if *delayMs > 0 {
			time.Sleep(time.Duration(*delayMs) * time.Millisecond)
		}
	}

	spawned := state.PassengerSeq - startSpawned
	delivered := spawned + startAlive - len(state.Passengers)

	log.Printf("📈 Watched %.0f minutes: %d spawned, %d delivered, money $%.0f -> $%.0f",
		state.Clock-startClock, spawned, delivered, startMoney, state.Money)

	if delivered >= *goal {
		log.Printf("🎉 Goal reached: %d/%d passengers delivered!", delivered, *goal)
		log.Printf("Session: %s", client.sessionID)
		os.Exit(0)
	}

	log.Printf("❌ Goal missed: %d/%d passengers delivered", delivered, *goal)
	log.Printf("Session: %s", client.sessionID)
	os.Exit(1)
}

func waitingCount(state *GameState) int {
	n := 0
	for _, st := range state.Stations {
		n += len(st.Queue)
	}
	return n
}

func ridingCount(state *GameState) int {
	n := 0
	for _, l := range state.Lines {
		for _, t := range l.Trains {
			n += len(t.Passengers)
		}
	}
	return n
}

func totalTrains(state *GameState) int {
	n := 0
	for _, l := range state.Lines {
		n += len(l.Trains)
	}
	return n
}

func hourOf(state *GameState) int {
	h := int(state.Clock/60) % 24
	if h < 0 {
		h += 24
	}
	return h
}
