package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/wricardo/infinite-sweeper/game/board"
	"github.com/wricardo/infinite-sweeper/game/config"
	"github.com/wricardo/infinite-sweeper/game/cursor"
	"github.com/wricardo/infinite-sweeper/game/handler"
)

// Board is the part of the board the API reads
type Board interface {
	Stats() board.Stats
	Fetch(start, end board.Point) ([]byte, error)
	GetRandomOpenPosition() (board.Point, error)
}

// Cursors is the part of the cursor registry the API reads
type Cursors interface {
	List() []cursor.Cursor
	Get(connID string) (cursor.Cursor, error)
}

// Configs is the part of the config manager the API uses
type Configs interface {
	ListConfigs() ([]*config.ConfigInfo, error)
	LoadConfig(name string) (*config.GameConfig, error)
	SaveConfig(name string, cfg *config.GameConfig) error
	RefreshCache() error
}

// Sessions upgrades a request into a live game connection
type Sessions interface {
	ServeWS(w http.ResponseWriter, r *http.Request, width, height int)
}

// Options configures a Server
type Options struct {
	// MaxFetchArea bounds /api/board/tiles; 0 means handler.DefaultMaxFetchArea.
	MaxFetchArea int
	// DefaultViewWidth and DefaultViewHeight apply when /session omits them.
	DefaultViewWidth  int
	DefaultViewHeight int
	Logger            logrus.FieldLogger
}

// Server represents the REST API server
type Server struct {
	board        Board
	cursors      Cursors
	configs      Configs
	sessions     Sessions
	router       *mux.Router
	maxFetchArea int
	viewWidth    int
	viewHeight   int
	log          logrus.FieldLogger
}

// NewServer creates a new API server
func NewServer(b Board, cursors Cursors, configs Configs, sessions Sessions, opts Options) *Server {
	if opts.MaxFetchArea <= 0 {
		opts.MaxFetchArea = handler.DefaultMaxFetchArea
	}
	if opts.DefaultViewWidth <= 0 {
		opts.DefaultViewWidth = 20
	}
	if opts.DefaultViewHeight <= 0 {
		opts.DefaultViewHeight = 12
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	s := &Server{
		board:        b,
		cursors:      cursors,
		configs:      configs,
		sessions:     sessions,
		router:       mux.NewRouter(),
		maxFetchArea: opts.MaxFetchArea,
		viewWidth:    opts.DefaultViewWidth,
		viewHeight:   opts.DefaultViewHeight,
		log:          logger.WithField("component", "api"),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	// Board inspection
	api.HandleFunc("/board/stats", s.handleBoardStats).Methods("GET")
	api.HandleFunc("/board/tiles", s.handleBoardTiles).Methods("GET")
	api.HandleFunc("/board/random-open", s.handleRandomOpen).Methods("GET")

	// Cursors
	api.HandleFunc("/cursors", s.handleListCursors).Methods("GET")
	api.HandleFunc("/cursors/{id}", s.handleGetCursor).Methods("GET")

	// Configuration (schema must be before {name} pattern)
	api.HandleFunc("/configs", s.handleListConfigs).Methods("GET")
	api.HandleFunc("/configs", s.handleCreateConfig).Methods("POST")
	api.HandleFunc("/configs/refresh", s.handleRefreshConfigs).Methods("POST")
	api.HandleFunc("/configs/schema", s.handleConfigSchema).Methods("GET")
	api.HandleFunc("/configs/{name}", s.handleGetConfig).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/session", s.handleSession)
}

// Handle mounts an extra handler, such as the MCP endpoint, at path
func (s *Server) Handle(path string, h http.Handler) {
	s.router.Handle(path, h)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Board Handlers

func (s *Server) handleBoardStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.board.Stats())
}

// TilesResponse is a fetched rectangle, both in wire form and decoded
type TilesResponse struct {
	StartP  board.Point  `json:"start_p"`
	EndP    board.Point  `json:"end_p"`
	Width   int          `json:"width"`
	Height  int          `json:"height"`
	Tiles   string       `json:"tiles"`
	Decoded []board.Tile `json:"decoded,omitempty"`
}

func (s *Server) handleBoardTiles(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var coords [4]int
	for i, name := range []string{"start_x", "start_y", "end_x", "end_y"} {
		v, err := strconv.Atoi(query.Get(name))
		if err != nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s", name))
			return
		}
		coords[i] = v
	}

	rect := board.Rect{
		Start: board.Point{X: coords[0], Y: coords[1]},
		End:   board.Point{X: coords[2], Y: coords[3]},
	}
	if !rect.Valid() {
		respondError(w, http.StatusBadRequest, "start must be north-west of end")
		return
	}
	if !rect.Fits(s.maxFetchArea) {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("%dx%d tiles requested, limit %d", rect.Width(), rect.Height(), s.maxFetchArea))
		return
	}

	data, err := s.board.Fetch(rect.Start, rect.End)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := TilesResponse{
		StartP: rect.Start,
		EndP:   rect.End,
		Width:  rect.Width(),
		Height: rect.Height(),
		Tiles:  board.TilesToString(data),
	}
	if query.Get("decode") == "true" {
		resp.Decoded = make([]board.Tile, len(data))
		for i, v := range data {
			t, err := board.DecodeTile(v)
			if err != nil {
				respondError(w, http.StatusInternalServerError, err.Error())
				return
			}
			resp.Decoded[i] = t
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRandomOpen(w http.ResponseWriter, r *http.Request) {
	p, err := s.board.GetRandomOpenPosition()
	if errors.Is(err, board.ErrNoOpenTile) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// Cursor Handlers

func (s *Server) handleListCursors(w http.ResponseWriter, r *http.Request) {
	cursors := s.cursors.List()
	respondJSON(w, http.StatusOK, map[string]any{
		"count":   len(cursors),
		"cursors": cursors,
	})
}

func (s *Server) handleGetCursor(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	c, err := s.cursors.Get(id)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// Configuration Handlers

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.configs.ListConfigs()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if configs == nil {
		configs = []*config.ConfigInfo{}
	}
	respondJSON(w, http.StatusOK, configs)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.configs.LoadConfig(mux.Vars(r)["name"])
	switch {
	case errors.Is(err, config.ErrConfigNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case err != nil:
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		respondJSON(w, http.StatusOK, cfg)
	}
}

func (s *Server) handleConfigSchema(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, config.Schema())
}

func (s *Server) handleCreateConfig(w http.ResponseWriter, r *http.Request) {
	var cfg config.GameConfig
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if cfg.Name == "" {
		respondError(w, http.StatusBadRequest, "Config name is required")
		return
	}

	if err := s.configs.SaveConfig(cfg.Name, &cfg); err != nil {
		if errors.Is(err, config.ErrInvalidConfig) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to save config: %v", err))
		return
	}

	s.log.WithField("config", cfg.Name).Info("config saved")
	respondJSON(w, http.StatusCreated, map[string]any{
		"message":   "Configuration saved successfully",
		"config_id": cfg.Name,
	})
}

func (s *Server) handleRefreshConfigs(w http.ResponseWriter, r *http.Request) {
	if err := s.configs.RefreshCache(); err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to refresh configs: %v", err))
		return
	}
	s.log.Info("config cache refreshed")
	s.handleListConfigs(w, r)
}

// WebSocket Handler

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	width, err := intParam(r, "view_width", s.viewWidth)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	height, err := intParam(r, "view_height", s.viewHeight)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.sessions.ServeWS(w, r, width, height)
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return v, nil
}
