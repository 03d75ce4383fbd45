package sim

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"guidanceops-sim/internal/config"
	"guidanceops-sim/internal/operator"
	"guidanceops-sim/internal/path"
	"guidanceops-sim/internal/scenario"
	"guidanceops-sim/internal/telemetry"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// logMsg carries a telemetry log line for the viewport.
type logMsg struct{ line string }

// eventMsg carries a path event line and row data.
type eventMsg struct {
	line string
	row  path.EventRow
}

type telemetryMsg struct{ telemetry.TelemetryRow }

type sceneMsg struct{ operator.Snapshot }

// adminMsg reports admin UI status.
type adminMsg struct {
	addr   string
	active bool
}

type setControllerMsg struct{ ctrl Controller }

const (
	maxLogLines         = 1000
	maxSectionHeightPct = 0.25
	minMapSpan          = 10.0
	mapMargin           = 3.0
)

var cameraCycle = []operator.CameraMode{
	operator.CameraFree,
	operator.CameraFollow,
	operator.CameraOverhead,
	operator.CameraStreet,
}

// TUIWriter renders telemetry and path events using a bubbletea TUI and
// forwards key presses to the console Controller.
type TUIWriter struct {
	program    teaProgram
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter.
func NewTUIWriter(cfg *config.ConsoleConfig) *TUIWriter {
	w := &TUIWriter{done: make(chan struct{})}
	w.sendSignal.Store(true)
	p := tea.NewProgram(newTUIModel(cfg), tea.WithAltScreen())
	w.program = p
	go func() {
		_, _ = p.Run()
		close(w.done)
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

// Write implements TelemetryWriter.
func (w *TUIWriter) Write(row telemetry.TelemetryRow) error {
	srcColor, ok := sourceColors[row.Source]
	if !ok {
		srcColor = colorWhite
	}
	line := fmt.Sprintf("%s[%s]%s %s%-8s%s %spos=(%.2f,%.2f)%s %shdg=%.0f°%s %sspd=%.2f%s %sbatt=%.1f%s %s%s%s",
		colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
		srcColor, row.Source, colorReset,
		colorGreen, row.X, row.Z, colorReset,
		colorCyan, row.Heading*180/math.Pi, colorReset,
		colorYellow, row.Velocity, colorReset,
		batteryColor(row.BatteryLevel), row.BatteryLevel, colorReset,
		autonomyColor(row.AutonomyState), row.AutonomyState, colorReset,
	)
	if row.StuckReason != telemetry.StuckNone {
		line += fmt.Sprintf(" %sreason=%s%s", colorRed, row.StuckReason, colorReset)
	}
	w.program.Send(logMsg{line: line})
	w.program.Send(telemetryMsg{row})
	return nil
}

// WritePathEvent implements PathEventWriter.
func (w *TUIWriter) WritePathEvent(e path.EventRow) error {
	c, ok := eventColors[e.Event]
	if !ok {
		c = colorWhite
	}
	line := fmt.Sprintf("%s[%s]%s %s%-9s%s %spath=%s%s points=%d",
		colorGray, e.Timestamp.Format(time.RFC3339), colorReset,
		c, strings.ToUpper(e.Event), colorReset,
		colorBlue, e.PathID, colorReset,
		e.Points)
	if e.EstimatedTimeS > 0 {
		line += fmt.Sprintf(" eta=%.0fs", e.EstimatedTimeS)
	}
	if e.Message != "" {
		line += fmt.Sprintf(" %q", e.Message)
	}
	w.program.Send(eventMsg{line: line, row: e})
	return nil
}

// WriteScene implements SceneWriter.
func (w *TUIWriter) WriteScene(snap operator.Snapshot) error {
	w.program.Send(sceneMsg{snap})
	return nil
}

// SetAdminStatus updates the admin UI indicator.
func (w *TUIWriter) SetAdminStatus(addr string, listening bool) {
	w.program.Send(adminMsg{addr: addr, active: listening})
}

// SetController registers the console controller driven by key presses.
func (w *TUIWriter) SetController(c Controller) {
	w.program.Send(setControllerMsg{ctrl: c})
}

// Close shuts down the TUI program and waits for cleanup.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

type tuiModel struct {
	cfg          *config.ConsoleConfig
	table        table.Model
	vp           viewport.Model
	eventVP      viewport.Model
	logs         []string
	eventLogs    []string
	row          telemetry.TelemetryRow
	haveRow      bool
	scene        operator.Snapshot
	haveScene    bool
	ctrl         Controller
	admin        bool
	adminAddr    string
	wrap         bool
	autoscroll   bool
	header       string
	headerHeight int
	height       int
	pointInput   textinput.Model
	pointDialog  bool
	help         bool
	showMap      bool
	scenarios    []string
	scenarioIdx  int
}

func newTUIModel(cfg *config.ConsoleConfig) tuiModel {
	if cfg == nil {
		cfg = config.Default()
	}
	cols := []table.Column{
		{Title: "Vehicle", Width: 14},
		{Title: "Value", Width: 16},
		{Title: "Vehicle", Width: 14},
		{Title: "Value", Width: 16},
	}
	m := tuiModel{
		cfg:        cfg,
		vp:         viewport.New(0, 0),
		eventVP:    viewport.New(0, 0),
		autoscroll: true,
		scenarios:  scenario.Names(),
		scene:      operator.Snapshot{Layers: operator.DefaultLayers(), CameraMode: operator.CameraFollow},
	}
	rows := m.statusRows()
	m.table = table.New(table.WithColumns(cols), table.WithRows(rows), table.WithHeight(len(rows)+1))
	for i, n := range m.scenarios {
		if n == cfg.Scenario {
			m.scenarioIdx = i
		}
	}
	return m
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.table.SetWidth(msg.Width)
		m.vp.Width = msg.Width
		m.eventVP.Width = msg.Width
		m.height = msg.Height
		m.refreshHeader()
		m.updateViewportHeight()
		m.refreshViewport()
		m.refreshEvents()
	case tea.KeyMsg:
		if m.pointDialog {
			switch msg.Type {
			case tea.KeyEnter:
				if x, z, err := parsePointInput(m.pointInput.Value()); err == nil && m.ctrl != nil {
					m.ctrl.AddPoint(x, z)
				}
				m.pointDialog = false
				m.updateViewportHeight()
			case tea.KeyEsc:
				m.pointDialog = false
				m.updateViewportHeight()
			default:
				var cmd tea.Cmd
				m.pointInput, cmd = m.pointInput.Update(msg)
				return m, cmd
			}
			return m, nil
		}
		if m.help {
			switch msg.String() {
			case "?", "h", "esc":
				m.help = false
				m.updateViewportHeight()
			}
			return m, nil
		}
		if m.handleControlKey(msg.String()) {
			return m, nil
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
			m.refreshEvents()
			return m, nil
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
				m.eventVP.GotoBottom()
			}
			return m, nil
		case "a":
			m.pointInput = textinput.New()
			m.pointInput.Placeholder = "x,z"
			m.pointInput.SetValue(m.suggestedPoint())
			m.pointInput.CursorEnd()
			m.pointInput.Focus()
			m.pointDialog = true
			m.updateViewportHeight()
			return m, nil
		case "m":
			m.showMap = !m.showMap
			m.updateViewportHeight()
			return m, nil
		case "h", "?":
			m.help = !m.help
			m.updateViewportHeight()
			return m, nil
		}
		if !m.autoscroll {
			switch msg.String() {
			case "j", "down":
				m.vp.LineDown(1)
				m.eventVP.LineDown(1)
			case "k", "up":
				m.vp.LineUp(1)
				m.eventVP.LineUp(1)
			case "pgdown", "ctrl+n":
				m.vp.LineDown(10)
				m.eventVP.LineDown(10)
			case "pgup", "ctrl+p":
				m.vp.LineUp(10)
				m.eventVP.LineUp(10)
			default:
				var cmd tea.Cmd
				m.vp, cmd = m.vp.Update(msg)
				m.eventVP, _ = m.eventVP.Update(msg)
				return m, cmd
			}
		}
		return m, nil
	case logMsg:
		m.logs = appendCapped(m.logs, msg.line)
		m.refreshViewport()
	case eventMsg:
		m.eventLogs = appendCapped(m.eventLogs, msg.line)
		m.updateViewportHeight()
		m.refreshEvents()
		m.refreshViewport()
	case telemetryMsg:
		m.row = msg.TelemetryRow
		m.haveRow = true
		m.table.SetRows(m.statusRows())
		m.refreshHeader()
	case sceneMsg:
		m.scene = msg.Snapshot
		m.haveScene = true
		m.table.SetRows(m.statusRows())
		m.refreshHeader()
	case adminMsg:
		m.admin = msg.active
		m.adminAddr = msg.addr
	case setControllerMsg:
		m.ctrl = msg.ctrl
	}
	return m, nil
}

// handleControlKey maps console actions onto the controller. It reports
// whether the key was consumed.
func (m *tuiModel) handleControlKey(key string) bool {
	if m.ctrl == nil {
		return false
	}
	switch key {
	case "u":
		m.ctrl.RemoveLastPoint()
	case "c":
		m.ctrl.ClearPath()
	case "enter", "p":
		m.ctrl.SubmitPath()
	case "x":
		m.ctrl.CancelPath()
	case "b", " ":
		m.ctrl.StopMovement()
	case "l":
		if len(m.scenarios) == 0 {
			return true
		}
		m.scenarioIdx = (m.scenarioIdx + 1) % len(m.scenarios)
		m.ctrl.LoadScenario(m.scenarios[m.scenarioIdx])
	case "1", "2", "3", "4", "5":
		idx := int(key[0] - '1')
		m.ctrl.ToggleLayer(operator.LayerNames[idx])
	case "v":
		m.ctrl.SetCameraMode(string(nextCameraMode(m.scene.CameraMode)))
	default:
		return false
	}
	return true
}

func nextCameraMode(cur operator.CameraMode) operator.CameraMode {
	for i, c := range cameraCycle {
		if c == cur {
			return cameraCycle[(i+1)%len(cameraCycle)]
		}
	}
	return cameraCycle[0]
}

func appendCapped(lines []string, line string) []string {
	lines = append(lines, line)
	if len(lines) > maxLogLines {
		lines = lines[len(lines)-maxLogLines:]
	}
	return lines
}

// suggestedPoint proposes a waypoint a few metres past the last one, or
// ahead of the vehicle when the path is empty.
func (m tuiModel) suggestedPoint() string {
	if p := m.scene.ActivePath; p != nil && len(p.Points) > 0 && p.Status.Editable() {
		last := p.Points[len(p.Points)-1].Position
		return fmt.Sprintf("%.1f,%.1f", last.X, last.Z+5)
	}
	if m.haveRow {
		return fmt.Sprintf("%.1f,%.1f", m.row.X, m.row.Z+5)
	}
	return "0,5"
}

func (m tuiModel) statusRows() []table.Row {
	st := m.row
	if !m.haveRow {
		st = telemetry.NewRow(m.cfg.VehicleID, telemetry.InitialVehicleState(), "", "", time.Time{})
	}
	reason := "-"
	if st.StuckReason != telemetry.StuckNone {
		reason = string(st.StuckReason)
	}
	name := m.scene.Scenario
	if name == "" {
		name = m.cfg.Scenario
	}
	pathCell := "none"
	if p := m.scene.ActivePath; p != nil {
		pathCell = fmt.Sprintf("%s (%d)", p.Status, len(p.Points))
	}
	return []table.Row{
		{"ID", m.cfg.VehicleID, "Scenario", name},
		{"Position", fmt.Sprintf("%.2f, %.2f", st.X, st.Z), "Heading", fmt.Sprintf("%.0f°", st.Heading*180/math.Pi)},
		{"Velocity", fmt.Sprintf("%.2f m/s", st.Velocity), "Gear", string(st.Gear)},
		{"Battery", fmt.Sprintf("%.1f%%", st.BatteryLevel), "Autonomy", string(st.AutonomyState)},
		{"Stuck Reason", reason, "Path", pathCell},
	}
}

func (m *tuiModel) refreshHeader() {
	m.header = m.table.View()
	m.headerHeight = lipgloss.Height(m.header)
}

func (m *tuiModel) updateViewportHeight() {
	bottomHeight := lipgloss.Height(m.renderBottom())

	eventLines := len(m.eventLogs)
	if eventLines == 0 {
		eventLines = 1
	}
	if maxLines := m.maxSectionLines(); eventLines > maxLines {
		eventLines = maxLines
	}
	m.eventVP.Height = eventLines

	dialogHeight := 0
	if m.pointDialog {
		dialogHeight = 2
	}
	h := m.height - m.headerHeight - bottomHeight - 1 - m.eventVP.Height - dialogHeight - 3
	if h < 0 {
		h = 0
	}
	m.vp.Height = h
	if m.autoscroll {
		m.eventVP.GotoBottom()
		m.vp.GotoBottom()
	}
}

func (m *tuiModel) refreshViewport() {
	var lines []string
	for _, l := range m.logs {
		if m.wrap {
			lines = append(lines, wordwrap.String(l, m.vp.Width))
		} else {
			lines = append(lines, l)
		}
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m *tuiModel) refreshEvents() {
	content := "none"
	if len(m.eventLogs) > 0 {
		if m.wrap {
			var lines []string
			for _, l := range m.eventLogs {
				lines = append(lines, wordwrap.String(l, m.eventVP.Width))
			}
			content = strings.Join(lines, "\n")
		} else {
			content = strings.Join(m.eventLogs, "\n")
		}
	}
	m.eventVP.SetContent(content)
	if m.autoscroll {
		m.eventVP.GotoBottom()
	}
}

func (m tuiModel) maxSectionLines() int {
	h := int(float64(m.height) * maxSectionHeightPct)
	if h < 1 {
		h = 1
	}
	return h
}

func (m tuiModel) View() string {
	if m.help {
		return m.renderHelp()
	}
	divider := strings.Repeat("─", m.vp.Width)
	body := m.vp.View()
	if m.showMap {
		body = m.renderMap()
	}
	sections := []string{
		m.header,
		divider,
		body,
		divider,
		"Path Events:",
		m.eventVP.View(),
	}
	if m.pointDialog {
		sections = append(sections, divider,
			fmt.Sprintf("Add Waypoint (x,z) - Enter to add, Esc to cancel: %s", m.pointInput.View()))
	}
	sections = append(sections, divider, m.renderBottom())
	return strings.Join(sections, "\n")
}

func indicator(on bool) string {
	c := lipgloss.Color("9")
	if on {
		c = lipgloss.Color("10")
	}
	return lipgloss.NewStyle().Foreground(c).Render("●")
}

func (m tuiModel) renderBottom() string {
	l := m.scene.Layers
	layers := fmt.Sprintf("1 ped %s 2 traffic %s 3 foliage %s 4 obst %s 5 debug %s",
		indicator(l.Pedestrians), indicator(l.Traffic), indicator(l.Foliage), indicator(l.Obstacles), indicator(l.Debug))
	admin := fmt.Sprintf("Admin UI %s", indicator(m.admin))
	if m.admin && m.adminAddr != "" {
		admin += " " + m.adminAddr
	}
	return fmt.Sprintf("%sCAMERA%s %s | %s | %s | Wrap %s | Scroll %s | Map %s | h help",
		colorBlue, colorReset, m.scene.CameraMode,
		layers, admin,
		indicator(m.wrap), indicator(m.autoscroll), indicator(m.showMap))
}

func (m tuiModel) renderHelp() string {
	lines := []string{
		"Key Bindings:",
		" q      quit",
		" a      add waypoint (x,z)",
		" u      remove last waypoint",
		" c      clear path",
		" enter  submit path to planner",
		" x      cancel active path",
		" b      stop movement",
		" l      load next scenario",
		" 1-5    toggle pedestrians/traffic/foliage/obstacles/debug layers",
		" v      cycle camera mode",
		" m      toggle top-down map",
		" w      toggle wrap",
		" s      toggle auto-scroll",
		" h/?    toggle this help view",
		"",
		"When auto-scroll is disabled:",
		" j/k or up/down    scroll one line",
		" pgdown/pgup       scroll a page",
	}
	return strings.Join(lines, "\n")
}

// headingIcon maps a heading in radians, zero along +Z, to an arrow.
func headingIcon(h float64) string {
	deg := math.Mod(h*180/math.Pi, 360)
	if deg < 0 {
		deg += 360
	}
	switch {
	case deg >= 45 && deg < 135:
		return ">"
	case deg >= 135 && deg < 225:
		return "v"
	case deg >= 225 && deg < 315:
		return "<"
	default:
		return "^"
	}
}

var obstacleIcons = map[scenario.ObstacleType]string{
	scenario.ObstacleCone:    "A",
	scenario.ObstacleBarrier: "#",
	scenario.ObstacleDebris:  "*",
	scenario.ObstacleVehicle: "V",
}

type mapBounds struct {
	minX, maxX, minZ, maxZ float64
}

func (b *mapBounds) include(x, z float64) {
	b.minX = math.Min(b.minX, x)
	b.maxX = math.Max(b.maxX, x)
	b.minZ = math.Min(b.minZ, z)
	b.maxZ = math.Max(b.maxZ, z)
}

// grow pads the bounds and enforces a minimum span on both axes.
func (b *mapBounds) grow() {
	b.minX -= mapMargin
	b.maxX += mapMargin
	b.minZ -= mapMargin
	b.maxZ += mapMargin
	if d := minMapSpan - (b.maxX - b.minX); d > 0 {
		b.minX -= d / 2
		b.maxX += d / 2
	}
	if d := minMapSpan - (b.maxZ - b.minZ); d > 0 {
		b.minZ -= d / 2
		b.maxZ += d / 2
	}
}

func (m tuiModel) mapBounds() mapBounds {
	b := mapBounds{minX: m.row.X, maxX: m.row.X, minZ: m.row.Z, maxZ: m.row.Z}
	if m.scene.Layers.Obstacles {
		for _, o := range m.scene.Obstacles {
			b.include(o.Position.X, o.Position.Z)
		}
	}
	if p := m.scene.ActivePath; p != nil {
		for _, wp := range p.Points {
			b.include(wp.Position.X, wp.Position.Z)
		}
	}
	b.grow()
	return b
}

func (m tuiModel) renderMap() string {
	if !m.haveRow && !m.haveScene {
		return "No position data"
	}
	width := m.vp.Width
	if width < 1 {
		width = 1
	}
	height := m.vp.Height - 2
	if height < 1 {
		height = 1
	}
	b := m.mapBounds()
	grid := make([][]string, height)
	for i := range grid {
		row := make([]string, width)
		for j := range row {
			row[j] = "."
		}
		grid[i] = row
	}
	plot := func(x, z float64, s string) {
		col := int((x - b.minX) / (b.maxX - b.minX) * float64(width-1))
		row := int((b.maxZ - z) / (b.maxZ - b.minZ) * float64(height-1))
		if row >= 0 && row < height && col >= 0 && col < width {
			grid[row][col] = s
		}
	}
	if m.scene.Layers.Obstacles {
		for _, o := range m.scene.Obstacles {
			icon, ok := obstacleIcons[o.Type]
			if !ok {
				icon = "?"
			}
			plot(o.Position.X, o.Position.Z, colorRed+icon+colorReset)
		}
	}
	if p := m.scene.ActivePath; p != nil {
		c := colorCyan
		switch p.Status {
		case path.StatusAccepted:
			c = colorGreen
		case path.StatusRejected:
			c = colorRed
		case path.StatusSubmitted:
			c = colorYellow
		}
		for i, wp := range p.Points {
			label := "o"
			if i < 9 {
				label = strconv.Itoa(i + 1)
			}
			plot(wp.Position.X, wp.Position.Z, c+label+colorReset)
		}
	}
	plot(m.row.X, m.row.Z, autonomyColor(m.row.AutonomyState)+headingIcon(m.row.Heading)+colorReset)

	var sb strings.Builder
	fmt.Fprintf(&sb, "x %.1f..%.1f z %.1f..%.1f +z↑\n", b.minX, b.maxX, b.minZ, b.maxZ)
	for _, row := range grid {
		sb.WriteString(strings.Join(row, ""))
		sb.WriteByte('\n')
	}
	sb.WriteString("^ vehicle  1-9 waypoints  A cone  # barrier  * debris  V vehicle")
	return sb.String()
}

func parsePointInput(val string) (float64, float64, error) {
	parts := strings.Split(val, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected x,z")
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, err
	}
	z, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, err
	}
	return x, z, nil
}
