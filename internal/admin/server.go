package admin

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"time"

	"guidanceops-sim/internal/logging"
	"guidanceops-sim/internal/operator"
	"guidanceops-sim/internal/path"
	"guidanceops-sim/internal/scenario"
	"guidanceops-sim/internal/sim"
	"guidanceops-sim/internal/telemetry"
)

// callTimeout bounds how long a request waits for its turn on the loop.
const callTimeout = 5 * time.Second

//go:embed templates/index.html
var content embed.FS

// Server exposes the operator console over HTTP. Every handler reads or
// mutates console state on the console loop.
type Server struct {
	console *sim.Console
	hub     *Hub
	tpl     *template.Template
	log     *slog.Logger
	mux     *http.ServeMux
}

// NewServer creates a Server for c. hub may be nil, which disables
// /stream.
func NewServer(c *sim.Console, hub *Hub, log *slog.Logger) *Server {
	if log == nil {
		log = logging.Discard()
	}
	tpl := template.Must(template.New("index.html").ParseFS(content, "templates/index.html"))
	s := &Server{console: c, hub: hub, tpl: tpl, log: log, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /state", s.handleState)
	s.mux.HandleFunc("GET /stream", s.handleStream)

	s.mux.HandleFunc("POST /path/points", s.handleAddPoint)
	s.mux.HandleFunc("PUT /path/points/{id}", s.handleUpdatePoint)
	s.mux.HandleFunc("DELETE /path/points/last", s.handleRemoveLastPoint)
	s.mux.HandleFunc("POST /path/clear", s.handleClearPath)
	s.mux.HandleFunc("POST /path/submit", s.handleSubmit)
	s.mux.HandleFunc("POST /path/cancel", s.handleCancel)
	s.mux.HandleFunc("POST /path/status", s.handleSetStatus)

	s.mux.HandleFunc("POST /vehicle", s.handleVehicle)
	s.mux.HandleFunc("POST /obstacles", s.handleAddObstacle)
	s.mux.HandleFunc("DELETE /obstacles/{id}", s.handleRemoveObstacle)
	s.mux.HandleFunc("POST /camera", s.handleCamera)
	s.mux.HandleFunc("POST /layers/{name}/toggle", s.handleToggleLayer)
	s.mux.HandleFunc("POST /drawing", s.handleDrawing)
	s.mux.HandleFunc("POST /scenario/load", s.handleLoadScenario)
	s.mux.HandleFunc("POST /movement/stop", s.handleStopMovement)
}

// Handler returns the HTTP handler serving all routes.
func (s *Server) Handler() http.Handler { return s.mux }

// Start listens on addr and serves until ctx is done. ready, when not nil,
// is called with the bound address once the listener is open.
func (s *Server) Start(ctx context.Context, addr string, ready func(string)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("admin listen %s: %w", addr, err)
	}
	srv := &http.Server{Handler: s.mux, ReadHeaderTimeout: 5 * time.Second}
	if ready != nil {
		ready(ln.Addr().String())
	}
	s.log.Info("admin server listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// call runs fn on the console loop. It writes 503 and returns false when
// the loop does not pick the call up in time.
func (s *Server) call(w http.ResponseWriter, r *http.Request, fn func()) bool {
	ctx, cancel := context.WithTimeout(r.Context(), callTimeout)
	defer cancel()
	if err := s.console.Loop().Call(ctx, fn); err != nil {
		s.log.Warn("admin call timed out", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusServiceUnavailable, "console busy")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

type indexData struct {
	VehicleID   string
	Snapshot    operator.Snapshot
	Scenarios   []string
	Layers      []string
	CameraModes []operator.CameraMode
	Streaming   bool
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := indexData{
		VehicleID:   s.console.VehicleID(),
		Scenarios:   scenario.Names(),
		Layers:      operator.LayerNames,
		CameraModes: []operator.CameraMode{operator.CameraFree, operator.CameraFollow, operator.CameraOverhead, operator.CameraStreet},
		Streaming:   s.hub != nil,
	}
	if !s.call(w, r, func() { data.Snapshot = s.console.Store().Snapshot() }) {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tpl.Execute(w, data); err != nil {
		s.log.Warn("render index failed", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var moving, running bool
	if !s.call(w, r, func() {
		moving = s.console.Simulator().Moving()
		running = s.console.Simulator().Running()
	}) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"vehicle_id": s.console.VehicleID(),
		"ambient":    running,
		"moving":     moving,
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	var snap operator.Snapshot
	if !s.call(w, r, func() { snap = s.console.Store().Snapshot() }) {
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		writeError(w, http.StatusNotFound, "streaming disabled")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	frames, unsubscribe := s.hub.subscribe()
	defer unsubscribe()
	for {
		select {
		case <-r.Context().Done():
			return
		case frame := <-frames:
			if _, err := w.Write(frame); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (s *Server) handleAddPoint(w http.ResponseWriter, r *http.Request) {
	var pos telemetry.Vector3
	if err := decode(r, &pos); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var (
		wp path.Waypoint
		ok bool
	)
	if !s.call(w, r, func() { wp, ok = s.console.Store().AddPathPoint(pos) }) {
		return
	}
	if !ok {
		writeError(w, http.StatusConflict, "active path is not editable")
		return
	}
	writeJSON(w, http.StatusCreated, wp)
}

func (s *Server) handleUpdatePoint(w http.ResponseWriter, r *http.Request) {
	var pos telemetry.Vector3
	if err := decode(r, &pos); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id := r.PathValue("id")
	var ok bool
	if !s.call(w, r, func() { ok = s.console.Store().UpdatePathPoint(id, pos) }) {
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "no such waypoint")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) noContentUnless(w http.ResponseWriter, r *http.Request, msg string, fn func() bool) {
	var ok bool
	if !s.call(w, r, func() { ok = fn() }) {
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, msg)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveLastPoint(w http.ResponseWriter, r *http.Request) {
	var active, ok bool
	if !s.call(w, r, func() {
		_, active = s.console.Store().ActivePath()
		ok = s.console.Store().RemoveLastPathPoint()
	}) {
		return
	}
	switch {
	case !active:
		writeError(w, http.StatusNotFound, "no active path")
	case !ok:
		writeError(w, http.StatusConflict, "active path is not editable")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleClearPath(w http.ResponseWriter, r *http.Request) {
	s.noContentUnless(w, r, "no active path", s.console.Store().ClearPath)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var (
		submitted bool
		active    path.Suggestion
	)
	if !s.call(w, r, func() {
		submitted = s.console.SubmitPath() != nil
		active, _ = s.console.Store().ActivePath()
	}) {
		return
	}
	if !submitted {
		writeError(w, http.StatusConflict, "no editable path to submit")
		return
	}
	writeJSON(w, http.StatusAccepted, active)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	var cancelling bool
	if !s.call(w, r, func() { cancelling = s.console.CancelPath() != nil }) {
		return
	}
	if !cancelling {
		writeError(w, http.StatusNotFound, "no active path")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "cancelling"})
}

func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status path.Status `json:"status"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !req.Status.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown path status %q", req.Status))
		return
	}
	s.noContentUnless(w, r, "no active path", func() bool {
		return s.console.Store().SetPathStatus(req.Status)
	})
}

func validateUpdate(u telemetry.Update) error {
	if u.Gear != nil && !u.Gear.Valid() {
		return fmt.Errorf("unknown gear %q", *u.Gear)
	}
	if u.AutonomyState != nil && !u.AutonomyState.Valid() {
		return fmt.Errorf("unknown autonomy state %q", *u.AutonomyState)
	}
	if u.StuckReason != nil && !u.StuckReason.Valid() {
		return fmt.Errorf("unknown stuck reason %q", *u.StuckReason)
	}
	if u.BatteryLevel != nil && (*u.BatteryLevel < 0 || *u.BatteryLevel > 100) {
		return fmt.Errorf("battery level %.1f out of range", *u.BatteryLevel)
	}
	return nil
}

func (s *Server) handleVehicle(w http.ResponseWriter, r *http.Request) {
	var u telemetry.Update
	if err := decode(r, &u); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateUpdate(u); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var v telemetry.VehicleState
	if !s.call(w, r, func() {
		if u.Timestamp.IsZero() {
			u.Timestamp = s.console.Loop().Now()
		}
		s.console.Store().SetVehicleState(u)
		v = s.console.Store().Vehicle()
	}) {
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleAddObstacle(w http.ResponseWriter, r *http.Request) {
	var o scenario.Obstacle
	if err := decode(r, &o); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !o.Type.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown obstacle type %q", o.Type))
		return
	}
	if o.Scale < 0 {
		writeError(w, http.StatusBadRequest, "scale must not be negative")
		return
	}
	var (
		added scenario.Obstacle
		ok    bool
	)
	if !s.call(w, r, func() { added, ok = s.console.Store().AddObstacle(o) }) {
		return
	}
	if !ok {
		writeError(w, http.StatusConflict, fmt.Sprintf("obstacle %q already exists", o.ID))
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

func (s *Server) handleRemoveObstacle(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.noContentUnless(w, r, "no such obstacle", func() bool {
		return s.console.Store().RemoveObstacle(id)
	})
}

func (s *Server) handleCamera(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode operator.CameraMode `json:"mode"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var ok bool
	if !s.call(w, r, func() { ok = s.console.Store().SetCameraMode(req.Mode) }) {
		return
	}
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown camera mode %q", req.Mode))
		return
	}
	writeJSON(w, http.StatusOK, map[string]operator.CameraMode{"mode": req.Mode})
}

func (s *Server) handleToggleLayer(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	var visible, ok bool
	if !s.call(w, r, func() { visible, ok = s.console.Store().ToggleSceneLayer(name) }) {
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown layer %q", name))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"layer": name, "visible": visible})
}

func (s *Server) handleDrawing(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !s.call(w, r, func() { s.console.Store().SetDrawingMode(req.Enabled) }) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": req.Enabled})
}

func (s *Server) handleLoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	var (
		err  error
		snap operator.Snapshot
	)
	if !s.call(w, r, func() {
		if err = s.console.LoadScenario(req.Name); err == nil {
			snap = s.console.Store().Snapshot()
		}
	}) {
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.log.Info("scenario loaded via admin", "scenario", snap.Scenario)
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleStopMovement(w http.ResponseWriter, r *http.Request) {
	if !s.call(w, r, s.console.StopMovement) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
