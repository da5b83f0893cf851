package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/color"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

const (
	gridMargin   = 10
	headerHeight = 80 // Taller header for multi-session stats
	footerHeight = 30
	screenWidth  = 800
	screenHeight = 720
	baseURL      = "http://localhost:8080"
)

// ScreenType represents different screens in the app
type ScreenType int

const (
	ScreenWelcome ScreenType = iota
	ScreenGame
)

// Line palette colors by name, matching the server's default tuning
var lineColors = map[string]color.RGBA{
	"red":    {230, 70, 70, 255},
	"blue":   {70, 110, 230, 255},
	"green":  {70, 190, 90, 255},
	"yellow": {230, 200, 60, 255},
	"purple": {160, 80, 220, 255},
	"orange": {240, 150, 40, 255},
	"teal":   {50, 190, 190, 255},
	"pink":   {240, 130, 190, 255},
}

// colorFor resolves a palette color name, falling back to gray for names the
// viewer does not know.
func colorFor(name string) color.RGBA {
	if c, ok := lineColors[name]; ok {
		return c
	}
	return color.RGBA{190, 190, 190, 255}
}

// fade returns a premultiplied-alpha faded copy of a color, used for drafts.
func fade(c color.RGBA, f float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c.R) * f),
		G: uint8(float64(c.G) * f),
		B: uint8(float64(c.B) * f),
		A: uint8(255 * f),
	}
}

// Tile is one grid square from the game server
type Tile struct {
	Type        string `json:"type"`
	Residential int    `json:"residential"`
	Office      int    `json:"office"`
}

// MapGrid is the generated world
type MapGrid struct {
	Width  int      `json:"width"`
	Height int      `json:"height"`
	Tiles  [][]Tile `json:"tiles"`
}

// Vertex is a grid-intersection point
type Vertex struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Station is a stop placed at a vertex
type Station struct {
	ID    string   `json:"id"`
	V     Vertex   `json:"vertex"`
	Label string   `json:"label"`
	Queue []string `json:"queue"`
}

// Train is the roster entry; positions come from the snapshot instead
type Train struct {
	ID string `json:"id"`
}

// MetroLine is a completed or in-progress transit line
type MetroLine struct {
	ID       string   `json:"id"`
	Color    string   `json:"color"`
	Stations []string `json:"stations"`
	Loop     bool     `json:"loop"`
	Trains   []Train  `json:"trains"`
}

// Passenger only matters here as a count
type Passenger struct {
	ID string `json:"id"`
}

// GameState represents the state from the metro game server
type GameState struct {
	Map        *MapGrid     `json:"map"`
	Stations   []*Station   `json:"stations"`
	Lines      []*MetroLine `json:"lines"`
	Passengers []*Passenger `json:"passengers"`
	Clock      float64      `json:"clock"`
	Money      float64      `json:"money"`
	Paused     bool         `json:"paused"`
	Speed      int          `json:"speed"`
}

// TrainPosition is a train's server-interpolated world position
type TrainPosition struct {
	TrainID string  `json:"train_id"`
	LineID  string  `json:"line_id"`
	Color   string  `json:"color"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	State   string  `json:"state"`
	Riders  int     `json:"riders"`
}

// Snapshot is the render-ready projection of one session
type Snapshot struct {
	SessionID string          `json:"session_id"`
	GameState *GameState      `json:"game_state"`
	Draft     *MetroLine      `json:"draft,omitempty"`
	Trains    []TrainPosition `json:"trains"`
	Hour      int             `json:"hour"`
}

// WSMessage represents the WebSocket message wrapper
type WSMessage struct {
	SessionID string    `json:"session_id"`
	Event     string    `json:"event,omitempty"`
	Snapshot  *Snapshot `json:"snapshot,omitempty"`
}

// SessionData holds data for a single session
type SessionData struct {
	sessionID  string
	snapshot   *Snapshot
	wsConn     *websocket.Conn
	lastUpdate time.Time
}

// SessionListItem represents a session from the server
type SessionListItem struct {
	ID         string     `json:"id"`
	TuningName string     `json:"tuning_name"`
	CreatedAt  string     `json:"created_at"`
	GameState  *GameState `json:"game_state"`
}

// TuningListItem represents an available game tuning
type TuningListItem struct {
	TuningID    string `json:"tuning_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MapWidth    int    `json:"map_width"`
	MapHeight   int    `json:"map_height"`
}

// Game represents the desktop viewer client
type Game struct {
	sessions         []*SessionData
	activeSession    int // index of currently active session
	stateMutex       sync.RWMutex
	currentScreen    ScreenType
	welcomeScreen    *WelcomeScreen
	selectedSessions map[string]bool // session IDs selected to open
	defaultTuning    string          // tuning used when creating from the game screen
}

// WelcomeScreen manages the welcome screen state
type WelcomeScreen struct {
	availableSessions []SessionListItem
	availableTunings  []TuningListItem
	scrollOffset      int
	cursorPos         int
	loading           bool
	errorMsg          string
	newSessionTuning  string // selected tuning for new session
}

// NewGame creates a new viewer instance with initial sessions
func NewGame(sessionIDs []string) *Game {
	g := &Game{
		sessions:         make([]*SessionData, 0),
		activeSession:    0,
		currentScreen:    ScreenWelcome,
		selectedSessions: make(map[string]bool),
		welcomeScreen: &WelcomeScreen{
			availableSessions: make([]SessionListItem, 0),
			availableTunings:  make([]TuningListItem, 0),
			cursorPos:         0,
			scrollOffset:      0,
		},
	}

	// If session IDs provided, skip welcome screen and go straight to game
	if len(sessionIDs) > 0 {
		for _, sid := range sessionIDs {
			g.addSession(sid)
		}
		g.currentScreen = ScreenGame
	} else {
		// Load available sessions and tunings for welcome screen
		g.loadWelcomeData()
	}

	return g
}

// addSession adds a new session to the viewer; an empty id creates a fresh
// session on the server first.
func (g *Game) addSession(sessionID string) {
	session := &SessionData{
		sessionID:  sessionID,
		lastUpdate: time.Now(),
	}

	if sessionID == "" {
		if err := g.createSessionWithTuning(session, g.defaultTuning); err != nil {
			log.Printf("Failed to create session: %v", err)
			return
		}
	}

	g.sessions = append(g.sessions, session)

	// Connect to WebSocket
	if err := g.connectWebSocket(session); err != nil {
		log.Printf("Failed to connect WebSocket for %s: %v (falling back to polling)", session.sessionID, err)
	} else {
		// Start WebSocket listener
		go g.listenWebSocket(session)
	}

	// Initial state fetch
	g.fetchSnapshot(session)
}

// createSessionWithTuning creates a new game session with a specific tuning
func (g *Game) createSessionWithTuning(session *SessionData, tuningName string) error {
	url := fmt.Sprintf("%s/api/sessions", baseURL)

	payload := "{}"
	if tuningName != "" {
		payload = fmt.Sprintf(`{"tuning":%q}`, tuningName)
	}

	resp, err := http.Post(url, "application/json", strings.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &result); err != nil || result.ID == "" {
		return fmt.Errorf("failed to parse session response: %v (body: %s)", err, string(body))
	}

	session.sessionID = result.ID
	log.Printf("Created new session: %s (tuning: %s)", session.sessionID, tuningName)
	return nil
}

// connectWebSocket establishes WebSocket connection
func (g *Game) connectWebSocket(session *SessionData) error {
	if session.sessionID == "" {
		return fmt.Errorf("no session ID set")
	}

	wsURL := url.URL{Scheme: "ws", Host: "localhost:8080", Path: "/ws"}
	q := wsURL.Query()
	q.Set("session", session.sessionID)
	wsURL.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL.String(), nil)
	if err != nil {
		return err
	}

	session.wsConn = conn
	log.Printf("WebSocket connected for session %s", session.sessionID)
	return nil
}

// listenWebSocket listens for WebSocket updates
func (g *Game) listenWebSocket(session *SessionData) {
	defer func() {
		if session.wsConn != nil {
			session.wsConn.Close()
		}
	}()

	for {
		_, message, err := session.wsConn.ReadMessage()
		if err != nil {
			log.Printf("WebSocket read error for %s: %v", session.sessionID, err)
			return
		}

		// The hub batches queued envelopes into a single frame separated by
		// newlines, so one read can carry several messages.
		for _, part := range bytes.Split(message, []byte{'\n'}) {
			if len(bytes.TrimSpace(part)) == 0 {
				continue
			}

			var wsMsg WSMessage
			if err := json.Unmarshal(part, &wsMsg); err != nil {
				log.Printf("WebSocket JSON parse error: %v", err)
				continue
			}

			if wsMsg.Snapshot == nil {
				// game_event messages carry no snapshot; nothing to render
				continue
			}

			g.stateMutex.Lock()
			session.snapshot = wsMsg.Snapshot
			session.lastUpdate = time.Now()
			g.stateMutex.Unlock()
		}
	}
}

// fetchSnapshot gets the current render snapshot from the server
func (g *Game) fetchSnapshot(session *SessionData) error {
	if session.sessionID == "" {
		return fmt.Errorf("no session ID set")
	}

	url := fmt.Sprintf("%s/api/sessions/%s/state", baseURL, session.sessionID)
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var snap Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return fmt.Errorf("failed to parse JSON: %v (body: %s)", err, string(body))
	}

	g.stateMutex.Lock()
	session.snapshot = &snap
	session.lastUpdate = time.Now()
	g.stateMutex.Unlock()

	return nil
}

// loadWelcomeData fetches available sessions and tunings from the server
func (g *Game) loadWelcomeData() {
	g.welcomeScreen.loading = true
	g.welcomeScreen.errorMsg = ""

	// Fetch available sessions
	resp, err := http.Get(fmt.Sprintf("%s/api/sessions", baseURL))
	if err != nil {
		g.welcomeScreen.errorMsg = fmt.Sprintf("Error loading sessions: %v", err)
		g.welcomeScreen.loading = false
		return
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	var sessionsResp struct {
		Sessions []SessionListItem `json:"sessions"`
	}
	if err := json.Unmarshal(body, &sessionsResp); err == nil {
		g.welcomeScreen.availableSessions = sessionsResp.Sessions
	}

	// Fetch available tunings
	resp, err = http.Get(fmt.Sprintf("%s/api/tunings", baseURL))
	if err != nil {
		g.welcomeScreen.errorMsg = fmt.Sprintf("Error loading tunings: %v", err)
		g.welcomeScreen.loading = false
		return
	}
	defer resp.Body.Close()

	body, _ = io.ReadAll(resp.Body)
	var tunings []TuningListItem
	if err := json.Unmarshal(body, &tunings); err == nil {
		g.welcomeScreen.availableTunings = tunings
	}

	g.welcomeScreen.loading = false
}

// createNewSessionFromWelcome creates a new session with the selected tuning
func (g *Game) createNewSessionFromWelcome() error {
	tuningName := g.welcomeScreen.newSessionTuning

	session := &SessionData{}
	if err := g.createSessionWithTuning(session, tuningName); err != nil {
		return err
	}

	// Add to selected sessions and remember the tuning for the N shortcut
	g.selectedSessions[session.sessionID] = true
	g.defaultTuning = tuningName

	// Reload session list
	g.loadWelcomeData()
	return nil
}

// startGameWithSelectedSessions transitions to game screen with selected sessions
func (g *Game) startGameWithSelectedSessions() {
	if len(g.selectedSessions) == 0 {
		g.welcomeScreen.errorMsg = "Please select at least one session"
		return
	}

	// Attach each selected session
	for sessionID := range g.selectedSessions {
		g.addSession(sessionID)
	}

	// Switch to game screen
	g.currentScreen = ScreenGame
}

// sendAction dispatches one game action for the active session
func (g *Game) sendAction(actionType string, payload interface{}) error {
	if len(g.sessions) == 0 {
		return fmt.Errorf("no sessions available")
	}

	session := g.sessions[g.activeSession]
	if session.sessionID == "" {
		return fmt.Errorf("no session ID set")
	}

	body, err := json.Marshal(map[string]interface{}{
		"type":    actionType,
		"payload": payload,
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/api/sessions/%s/actions", baseURL, session.sessionID)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return g.fetchSnapshot(session)
}

// advanceTick asks the server to simulate one second for the active session,
// for servers running with the tick loop disabled.
func (g *Game) advanceTick() error {
	if len(g.sessions) == 0 {
		return fmt.Errorf("no sessions available")
	}

	session := g.sessions[g.activeSession]
	url := fmt.Sprintf("%s/api/sessions/%s/advance", baseURL, session.sessionID)
	resp, err := http.Post(url, "application/json", strings.NewReader(`{"dt_ms":1000}`))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return g.fetchSnapshot(session)
}

// togglePause pauses a running session or resumes a paused one
func (g *Game) togglePause() {
	g.stateMutex.RLock()
	paused, ok := false, false
	if len(g.sessions) > 0 {
		if snap := g.sessions[g.activeSession].snapshot; snap != nil && snap.GameState != nil {
			paused = snap.GameState.Paused
			ok = true
		}
	}
	g.stateMutex.RUnlock()
	if !ok {
		return
	}

	action := "PAUSE"
	if paused {
		action = "RESUME"
	}
	if err := g.sendAction(action, nil); err != nil {
		log.Printf("%s failed: %v", action, err)
	}
}

// changeSpeed steps the active session through the 1x / 2x / 4x multipliers
func (g *Game) changeSpeed(dir int) {
	speeds := []int{1, 2, 4}

	g.stateMutex.RLock()
	cur, ok := 1, false
	if len(g.sessions) > 0 {
		if snap := g.sessions[g.activeSession].snapshot; snap != nil && snap.GameState != nil {
			cur = snap.GameState.Speed
			ok = true
		}
	}
	g.stateMutex.RUnlock()
	if !ok {
		return
	}

	idx := 0
	for i, s := range speeds {
		if s == cur {
			idx = i
		}
	}
	idx += dir
	if idx < 0 || idx >= len(speeds) {
		return
	}

	if err := g.sendAction("SET_SPEED", map[string]int{"speed": speeds[idx]}); err != nil {
		log.Printf("SET_SPEED failed: %v", err)
	}
}

// Update updates viewer logic
func (g *Game) Update() error {
	// Route to appropriate screen update
	switch g.currentScreen {
	case ScreenWelcome:
		return g.updateWelcomeScreen()
	case ScreenGame:
		return g.updateGameScreen()
	}
	return nil
}

// updateWelcomeScreen handles welcome screen input
func (g *Game) updateWelcomeScreen() error {
	ws := g.welcomeScreen

	// Refresh data with F5
	if inpututil.IsKeyJustPressed(ebiten.KeyF5) {
		g.loadWelcomeData()
	}

	// Navigate with arrow keys
	totalItems := len(ws.availableSessions)
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowDown) {
		ws.cursorPos++
		if ws.cursorPos >= totalItems {
			ws.cursorPos = totalItems - 1
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowUp) {
		ws.cursorPos--
		if ws.cursorPos < 0 {
			ws.cursorPos = 0
		}
	}

	// Toggle selection with Space
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		if ws.cursorPos >= 0 && ws.cursorPos < len(ws.availableSessions) {
			sessionID := ws.availableSessions[ws.cursorPos].ID
			g.selectedSessions[sessionID] = !g.selectedSessions[sessionID]
			if !g.selectedSessions[sessionID] {
				delete(g.selectedSessions, sessionID)
			}
		}
	}

	// Cycle through tunings with Tab
	if inpututil.IsKeyJustPressed(ebiten.KeyTab) {
		if len(ws.availableTunings) > 0 {
			// Find current tuning index
			currentIdx := -1
			for i, t := range ws.availableTunings {
				if t.TuningID == ws.newSessionTuning {
					currentIdx = i
					break
				}
			}
			// Move to next
			currentIdx++
			if currentIdx >= len(ws.availableTunings) {
				ws.newSessionTuning = "" // No tuning (server default)
			} else {
				ws.newSessionTuning = ws.availableTunings[currentIdx].TuningID
			}
		}
	}

	// Create new session with N
	if inpututil.IsKeyJustPressed(ebiten.KeyN) {
		if err := g.createNewSessionFromWelcome(); err != nil {
			ws.errorMsg = fmt.Sprintf("Failed to create session: %v", err)
		}
	}

	// Start viewing with Enter
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		g.startGameWithSelectedSessions()
	}

	// Back to game screen with Escape (if sessions exist)
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) && len(g.sessions) > 0 {
		g.currentScreen = ScreenGame
	}

	return nil
}

// updateGameScreen handles game screen input
func (g *Game) updateGameScreen() error {
	if len(g.sessions) == 0 {
		return nil
	}

	// Poll sessions whose WebSocket is not connected
	for _, session := range g.sessions {
		if session.wsConn == nil {
			if session.snapshot == nil || time.Since(session.lastUpdate) > 500*time.Millisecond {
				if err := g.fetchSnapshot(session); err != nil {
					log.Printf("Error fetching snapshot for %s: %v", session.sessionID, err)
				}
			}
		}
	}

	// Session switching with number keys (1-9)
	for i := ebiten.Key1; i <= ebiten.Key9; i++ {
		if inpututil.IsKeyJustPressed(i) {
			sessionIdx := int(i - ebiten.Key1)
			if sessionIdx < len(g.sessions) {
				g.activeSession = sessionIdx
				log.Printf("Switched to session %d: %s", sessionIdx+1, g.sessions[sessionIdx].sessionID)
			}
		}
	}

	// Add new session with N key
	if inpututil.IsKeyJustPressed(ebiten.KeyN) {
		if len(g.sessions) < 9 {
			g.addSession("")
			log.Printf("Added new session (total: %d)", len(g.sessions))
		}
	}

	// Clock controls for the active session
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.togglePause()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyComma) {
		g.changeSpeed(-1)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyPeriod) {
		g.changeSpeed(+1)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyT) {
		if err := g.advanceTick(); err != nil {
			log.Printf("Advance failed: %v", err)
		}
	}

	// Return to welcome screen with Escape
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		g.currentScreen = ScreenWelcome
		g.loadWelcomeData()
	}

	return nil
}

// Draw renders the viewer
func (g *Game) Draw(screen *ebiten.Image) {
	// Route to appropriate screen renderer
	switch g.currentScreen {
	case ScreenWelcome:
		g.drawWelcomeScreen(screen)
	case ScreenGame:
		g.drawGameScreen(screen)
	}
}

// drawWelcomeScreen renders the welcome/session selection screen
func (g *Game) drawWelcomeScreen(screen *ebiten.Image) {
	ws := g.welcomeScreen

	// Clear screen
	screen.Fill(color.RGBA{20, 20, 30, 255})

	y := 20
	ebitenutil.DebugPrintAt(screen, "=== METROMAP - SESSION SELECT ===", 250, y)
	y += 30

	if ws.loading {
		ebitenutil.DebugPrintAt(screen, "Loading sessions...", 20, y)
		return
	}

	if ws.errorMsg != "" {
		ebitenutil.DebugPrintAt(screen, fmt.Sprintf("ERROR: %s", ws.errorMsg), 20, y)
		y += 20
	}

	// Session list
	ebitenutil.DebugPrintAt(screen, "Available Sessions:", 20, y)
	y += 20

	if len(ws.availableSessions) == 0 {
		ebitenutil.DebugPrintAt(screen, "  No sessions found. Press N to create one.", 20, y)
		y += 20
	} else {
		for i, session := range ws.availableSessions {
			cursor := "  "
			if i == ws.cursorPos {
				cursor = "> "
			}

			checkbox := "[ ]"
			if g.selectedSessions[session.ID] {
				checkbox = "[X]"
			}

			stats := ""
			if session.GameState != nil {
				stats = fmt.Sprintf(" | %s $%.0f st:%d ln:%d pax:%d",
					clockString(session.GameState.Clock),
					session.GameState.Money,
					len(session.GameState.Stations),
					len(session.GameState.Lines),
					len(session.GameState.Passengers))
				if session.GameState.Paused {
					stats += " PAUSED"
				}
			}

			line := fmt.Sprintf("%s%s %s | %s%s",
				cursor, checkbox, session.ID, session.TuningName, stats)

			ebitenutil.DebugPrintAt(screen, line, 20, y)
			y += 15
		}
	}

	y += 20
	ebitenutil.DebugPrintAt(screen, "─────────────────────────────────────────", 20, y)
	y += 20

	// New session creation
	ebitenutil.DebugPrintAt(screen, "Create New Session:", 20, y)
	y += 20

	tuningDisplay := "default"
	if ws.newSessionTuning != "" {
		tuningDisplay = ws.newSessionTuning
	}
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("  Selected Tuning: %s", tuningDisplay), 20, y)
	y += 15

	ebitenutil.DebugPrintAt(screen, "  Available Tunings:", 20, y)
	y += 15
	for _, t := range ws.availableTunings {
		marker := "  "
		if t.TuningID == ws.newSessionTuning {
			marker = "→ "
		}
		ebitenutil.DebugPrintAt(screen,
			fmt.Sprintf("    %s%s (%dx%d) - %s", marker, t.TuningID, t.MapWidth, t.MapHeight, t.Description), 20, y)
		y += 15
	}

	y += 20
	ebitenutil.DebugPrintAt(screen, "─────────────────────────────────────────", 20, y)
	y += 20

	// Selected sessions summary
	selectedCount := len(g.selectedSessions)
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("Selected: %d session(s)", selectedCount), 20, y)
	y += 20

	// Controls
	y += 10
	ebitenutil.DebugPrintAt(screen, "CONTROLS:", 20, y)
	y += 20
	ebitenutil.DebugPrintAt(screen, "  ↑/↓      - Navigate sessions", 20, y)
	y += 15
	ebitenutil.DebugPrintAt(screen, "  SPACE    - Toggle session selection", 20, y)
	y += 15
	ebitenutil.DebugPrintAt(screen, "  TAB      - Cycle tuning for new session", 20, y)
	y += 15
	ebitenutil.DebugPrintAt(screen, "  N        - Create new session with selected tuning", 20, y)
	y += 15
	ebitenutil.DebugPrintAt(screen, "  ENTER    - Open selected sessions", 20, y)
	y += 15
	ebitenutil.DebugPrintAt(screen, "  F5       - Refresh session list", 20, y)
	y += 15
	if len(g.sessions) > 0 {
		ebitenutil.DebugPrintAt(screen, "  ESC      - Back to viewer", 20, y)
	}
}

// drawGameScreen renders the network of the active session
func (g *Game) drawGameScreen(screen *ebiten.Image) {
	g.stateMutex.RLock()
	defer g.stateMutex.RUnlock()

	if len(g.sessions) == 0 {
		ebitenutil.DebugPrint(screen, "No sessions available. Press ESC to go to session select.")
		return
	}

	screen.Fill(color.RGBA{18, 18, 26, 255})

	// Draw header with all session stats
	g.drawSessionStats(screen)

	active := g.sessions[g.activeSession]
	if active.snapshot == nil || active.snapshot.GameState == nil || active.snapshot.GameState.Map == nil {
		ebitenutil.DebugPrintAt(screen, "Loading...", 20, headerHeight+20)
		return
	}

	snap := active.snapshot
	state := snap.GameState
	m := state.Map

	cs := cellSizeFor(m)
	originX := float64(gridMargin)
	originY := float64(headerHeight)

	// Tiles
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			ebitenutil.DrawRect(screen,
				originX+float64(x)*cs,
				originY+float64(y)*cs,
				cs-1, cs-1, tileColor(m.Tiles[y][x]))
		}
	}

	// Completed lines first, then the draft on top
	for _, l := range state.Lines {
		drawMetroLine(screen, state, l, originX, originY, cs, false)
	}
	if snap.Draft != nil {
		drawMetroLine(screen, state, snap.Draft, originX, originY, cs, true)
	}

	// Stations with labels and waiting counts
	for _, st := range state.Stations {
		vx := originX + float64(st.V.X)*cs
		vy := originY + float64(st.V.Y)*cs
		ebitenutil.DrawRect(screen, vx-5, vy-5, 10, 10, color.RGBA{15, 15, 15, 255})
		ebitenutil.DrawRect(screen, vx-4, vy-4, 8, 8, color.RGBA{245, 245, 245, 255})

		label := st.Label
		if len(st.Queue) > 0 {
			label = fmt.Sprintf("%s:%d", st.Label, len(st.Queue))
		}
		ebitenutil.DebugPrintAt(screen, label, int(vx)+6, int(vy)-6)
	}

	// Trains at their server-interpolated positions
	for _, tp := range snap.Trains {
		tx := originX + tp.X*cs
		ty := originY + tp.Y*cs
		size := cs * 0.5
		if size < 6 {
			size = 6
		}
		ebitenutil.DrawRect(screen, tx-size/2, ty-size/2, size, size, colorFor(tp.Color))
		if tp.Riders > 0 {
			ebitenutil.DebugPrintAt(screen, fmt.Sprintf("%d", tp.Riders), int(tx)-3, int(ty)-8)
		}
	}

	// Footer controls
	ebitenutil.DebugPrintAt(screen,
		"1-9: Switch | N: New | SPACE: Pause | ,/.: Speed | T: Tick | ESC: Menu",
		10, screenHeight-20)
}

// drawMetroLine draws every segment of a line as its angle-snapped polyline.
// The server picks knee placements with a lookahead hint; the diagonal-first
// default here is close enough for drawing.
func drawMetroLine(screen *ebiten.Image, state *GameState, l *MetroLine, originX, originY, cs float64, draft bool) {
	n := len(l.Stations)
	if n < 2 {
		return
	}

	segs := n - 1
	if l.Loop {
		segs = n
	}

	col := colorFor(l.Color)
	if draft {
		col = fade(col, 0.55)
	}

	for i := 0; i < segs; i++ {
		a := stationVertex(state, l.Stations[i])
		b := stationVertex(state, l.Stations[(i+1)%n])
		if a == nil || b == nil {
			continue
		}

		path := octilinearPath(*a, *b)
		for j := 1; j < len(path); j++ {
			x0 := originX + float64(path[j-1].X)*cs
			y0 := originY + float64(path[j-1].Y)*cs
			x1 := originX + float64(path[j].X)*cs
			y1 := originY + float64(path[j].Y)*cs

			// Double stroke for a bit of thickness
			ebitenutil.DrawLine(screen, x0, y0, x1, y1, col)
			ebitenutil.DrawLine(screen, x0, y0+1, x1, y1+1, col)
		}
	}
}

// drawSessionStats draws stats for all sessions in the header
func (g *Game) drawSessionStats(screen *ebiten.Image) {
	headerY := 5
	for idx, session := range g.sessions {
		y := headerY + (idx * 15)

		activeMarker := "   "
		if idx == g.activeSession {
			activeMarker = ">>>"
		}

		connStatus := "POLL"
		if session.wsConn != nil {
			connStatus = "WS"
		}

		if session.snapshot == nil || session.snapshot.GameState == nil {
			ebitenutil.DebugPrintAt(screen,
				fmt.Sprintf("%s [%d] %s [%s] loading...", activeMarker, idx+1, session.sessionID, connStatus),
				10, y)
			continue
		}

		state := session.snapshot.GameState
		info := fmt.Sprintf("%s [%d] %s [%s] %s $%.0f st:%d ln:%d tr:%d pax:%d x%d",
			activeMarker,
			idx+1,
			session.sessionID,
			connStatus,
			clockString(state.Clock),
			state.Money,
			len(state.Stations),
			len(state.Lines),
			len(session.snapshot.Trains),
			len(state.Passengers),
			state.Speed)

		if state.Paused {
			info += " PAUSED"
		}

		ebitenutil.DebugPrintAt(screen, info, 10, y)
	}
}

// Layout returns the viewer screen size
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenWidth, screenHeight
}

// cellSizeFor scales the grid to the available screen area, since maps vary
// from 10x10 up to 200x200.
func cellSizeFor(m *MapGrid) float64 {
	availW := float64(screenWidth - 2*gridMargin)
	availH := float64(screenHeight - headerHeight - footerHeight)
	cs := math.Min(availW/float64(m.Width), availH/float64(m.Height))
	if cs < 3 {
		cs = 3
	}
	return cs
}

// tileColor shades land by how dense it is so demand hotspots read at a
// glance; water stays flat blue. Office-heavy tiles lean cool, residential
// ones lean warm.
func tileColor(t Tile) color.Color {
	if t.Type == "water" {
		return color.RGBA{36, 74, 133, 255}
	}

	d := t.Residential + t.Office
	if d > 160 {
		d = 160
	}
	base := uint8(52 + d)

	r, b := base, base
	if t.Office > t.Residential {
		b += 18
	} else if t.Residential > t.Office {
		r += 18
	}
	return color.RGBA{r, base, b, 255}
}

// octilinearPath is the angle-snapped polyline between two vertices: a 45
// degree diagonal leg first, then the axis-aligned remainder.
func octilinearPath(a, b Vertex) []Vertex {
	dx := b.X - a.X
	dy := b.Y - a.Y

	if dx == 0 && dy == 0 {
		return []Vertex{a}
	}
	if dx == 0 || dy == 0 || abs(dx) == abs(dy) {
		return []Vertex{a, b}
	}

	diag := abs(dx)
	if abs(dy) < diag {
		diag = abs(dy)
	}
	knee := Vertex{X: a.X + sign(dx)*diag, Y: a.Y + sign(dy)*diag}
	return []Vertex{a, knee, b}
}

func stationVertex(state *GameState, id string) *Vertex {
	for _, st := range state.Stations {
		if st.ID == id {
			return &st.V
		}
	}
	return nil
}

// clockString formats a simulation clock as day and wall time
func clockString(clock float64) string {
	total := int(clock)
	day := total/1440 + 1
	hh := (total % 1440) / 60
	mm := total % 60
	return fmt.Sprintf("d%d %02d:%02d", day, hh, mm)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func sign(x int) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

func main() {
	// Accept multiple session IDs as arguments
	sessionIDs := []string{}
	if len(os.Args) > 1 {
		sessionIDs = os.Args[1:]
	}

	game := NewGame(sessionIDs)

	ebiten.SetWindowSize(screenWidth, screenHeight)
	ebiten.SetWindowTitle("MetroMap - Network Viewer")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	if err := ebiten.RunGame(game); err != nil {
		log.Fatal(err)
	}
}
