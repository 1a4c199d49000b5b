package sim

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"rovops-sim/internal/scenario"
	"rovops-sim/internal/telemetry"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// logMsg carries a mission log line for the viewport.
type logMsg struct{ line string }

// telemetryMsg carries the latest flattened snapshot.
type telemetryMsg struct{ telemetry.Row }

// adminMsg reports admin UI status.
type adminMsg struct{ active bool }

type setCommanderMsg struct{ fn func(Command) bool }

// TUIWriter renders telemetry and the mission log using a bubbletea TUI.
// Operator keys are turned into commands and submitted to the simulator.
type TUIWriter struct {
	program    teaProgram
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter.
func NewTUIWriter(vehicleID string, physics telemetry.Physics) *TUIWriter {
	w := &TUIWriter{done: make(chan struct{})}
	w.sendSignal.Store(true)
	p := tea.NewProgram(newTUIModel(vehicleID, physics), tea.WithAltScreen())
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
func (w *TUIWriter) Write(row telemetry.Row) error {
	w.program.Send(telemetryMsg{row})
	return nil
}

// WriteBatch forwards every row; only the last one stays on screen.
func (w *TUIWriter) WriteBatch(rows []telemetry.Row) error {
	for _, r := range rows {
		_ = w.Write(r)
	}
	return nil
}

// WriteLog implements MissionLogWriter.
func (w *TUIWriter) WriteLog(row telemetry.LogRow) error {
	line := fmt.Sprintf("%s[%s]%s %s%-8s%s %s",
		colorGray, row.Timestamp.Format(time.TimeOnly), colorReset,
		levelColor(row.Level), row.Level, colorReset, row.Message)
	w.program.Send(logMsg{line: line})
	return nil
}

// WriteLogs forwards multiple mission log entries.
func (w *TUIWriter) WriteLogs(rows []telemetry.LogRow) error {
	for _, r := range rows {
		_ = w.WriteLog(r)
	}
	return nil
}

// SetAdminStatus updates the admin UI indicator.
func (w *TUIWriter) SetAdminStatus(active bool) {
	w.program.Send(adminMsg{active: active})
}

// SetCommander wires operator key bindings to the simulator's command queue.
func (w *TUIWriter) SetCommander(fn func(Command) bool) {
	w.program.Send(setCommanderMsg{fn: fn})
}

// Close stops the program without signalling the process.
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
	vehicleID    string
	physics      telemetry.Physics
	table        table.Model
	vp           viewport.Model
	logs         []string
	row          telemetry.Row
	haveRow      bool
	admin        bool
	wrap         bool
	autoscroll   bool
	help         bool
	header       string
	headerHeight int
	height       int
	status       string
	submit       func(Command) bool
}

func newTUIModel(vehicleID string, physics telemetry.Physics) tuiModel {
	cols := []table.Column{
		{Title: "Config", Width: 20},
		{Title: "Value", Width: 10},
	}
	rows := []table.Row{
		{"Vehicle", vehicleID},
		{"Target Depth (m)", fmt.Sprintf("%.0f", physics.TargetDepth)},
		{"Descent (m/tick)", fmt.Sprintf("%.1f", physics.DescentRate)},
		{"Ascent (m/tick)", fmt.Sprintf("%.1f", physics.AscentRate)},
		{"Hull Warning (kPa)", fmt.Sprintf("%.0f", physics.WarningThreshold())},
	}
	t := table.New(table.WithColumns(cols), table.WithRows(rows), table.WithHeight(len(rows)+1))
	m := tuiModel{
		vehicleID:  vehicleID,
		physics:    physics,
		table:      t,
		vp:         viewport.New(0, 0),
		autoscroll: true,
	}
	m.header = m.renderHeader()
	m.headerHeight = lipgloss.Height(m.header)
	return m
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.table.SetWidth(msg.Width / 2)
		m.vp.Width = msg.Width
		m.height = msg.Height
		m.header = m.renderHeader()
		m.headerHeight = lipgloss.Height(m.header)
		m.updateViewportHeight()
		m.refreshViewport()
	case tea.KeyMsg:
		if m.help {
			switch msg.String() {
			case "?", "h", "esc":
				m.help = false
				m.updateViewportHeight()
			}
			return m, nil
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
			m.header = m.renderHeader()
			m.headerHeight = lipgloss.Height(m.header)
			m.updateViewportHeight()
			return m, nil
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
			}
			return m, nil
		case "h", "?":
			m.help = !m.help
			m.updateViewportHeight()
			return m, nil
		}
		if cmd, ok := keyCommand(msg.String()); ok {
			m.send(cmd)
			return m, nil
		}
		if !m.autoscroll {
			switch msg.String() {
			case "j", "down":
				m.vp.LineDown(1)
			case "k", "up":
				m.vp.LineUp(1)
			case "pgdown", "ctrl+n":
				m.vp.LineDown(10)
			case "pgup", "ctrl+p":
				m.vp.LineUp(10)
			default:
				var cmd tea.Cmd
				m.vp, cmd = m.vp.Update(msg)
				return m, cmd
			}
		}
	case logMsg:
		m.logs = append(m.logs, msg.line)
		m.refreshViewport()
	case telemetryMsg:
		m.row = msg.Row
		m.haveRow = true
	case adminMsg:
		m.admin = msg.active
	case setCommanderMsg:
		m.submit = msg.fn
	}
	return m, nil
}

// keyCommand maps operator keys to simulator commands.
func keyCommand(key string) (Command, bool) {
	switch key {
	case "1":
		return StartSimulation{Scenario: scenario.Nominal}, true
	case "2":
		return StartSimulation{Scenario: scenario.PressureAnomaly}, true
	case "3":
		return StartSimulation{Scenario: scenario.PowerFault}, true
	case "p":
		return SetPropulsionState{Status: telemetry.PropulsionActive}, true
	case "o":
		return SetPropulsionState{Status: telemetry.PropulsionInactive}, true
	case "a":
		return DeployArm{}, true
	case "c":
		return CollectSample{}, true
	case "x":
		return JettisonPackage{}, true
	case "r":
		return ResetSimulation{}, true
	}
	return nil, false
}

func (m *tuiModel) send(cmd Command) {
	switch {
	case m.submit == nil:
		m.status = "no simulator attached"
	case m.submit(cmd):
		m.status = "sent " + cmd.Name()
	default:
		m.status = "command queue full, dropped " + cmd.Name()
	}
}

func (m *tuiModel) updateViewportHeight() {
	bottomHeight := lipgloss.Height(m.renderBottom())
	statusHeight := lipgloss.Height(m.renderStatus())
	h := m.height - m.headerHeight - statusHeight - bottomHeight - 3
	if h < 0 {
		h = 0
	}
	m.vp.Height = h
	if m.autoscroll {
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

func (m tuiModel) View() string {
	if m.help {
		return m.renderHelp()
	}
	divider := strings.Repeat("─", m.vp.Width)
	sections := []string{
		m.header,
		divider,
		m.renderStatus(),
		divider,
		m.vp.View(),
		divider,
		m.renderBottom(),
	}
	return strings.Join(sections, "\n")
}

func (m tuiModel) renderHeader() string {
	tableView := m.table.View()
	width := m.vp.Width/2 - 1
	tree := renderScenarioTree(m.wrap, width)
	sep := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render("│")
	return lipgloss.JoinHorizontal(lipgloss.Top, tableView, sep, tree)
}

func renderScenarioTree(wrap bool, width int) string {
	var b strings.Builder
	b.WriteString("Scenarios\n")
	infos := scenario.Catalog()
	for i, info := range infos {
		prefix := "├─"
		if i == len(infos)-1 {
			prefix = "└─"
		}
		line := fmt.Sprintf("%s %d %s%s%s - %s", prefix, i+1, colorCyan, info.Title, colorReset, info.Description)
		if wrap && width > 0 {
			line = wordwrap.String(line, width)
		}
		b.WriteString(line + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderStatus shows the latest vehicle telemetry and the live alert.
func (m tuiModel) renderStatus() string {
	if !m.haveRow {
		return colorGray + "waiting for telemetry" + colorReset
	}
	r := m.row
	line := fmt.Sprintf("%sROV%s %s %smission=%s%s %sdepth=%.1fm%s %shull=%dkPa(%s)%s %sbatt=%.2f%%%s %sprop=%s(%.0f%%)%s %sarm=%s sample=%t%s %spkg=%s%s",
		colorBlue, colorReset, r.VehicleID,
		missionColor(r.MissionStatus), r.MissionStatus, colorReset,
		colorCyan, r.DepthMeters, colorReset,
		hullColor(r.HullStatus), r.HullPressureKPa, r.HullStatus, colorReset,
		batteryColor(r.PowerStatus), r.ChargePercent, colorReset,
		colorMagenta, r.PropulsionStatus, r.PropulsionLevel, colorReset,
		colorYellow, r.ArmStatus, r.SampleCollected, colorReset,
		colorGray, r.SciencePackage, colorReset)
	alert := colorGray + "no active alert" + colorReset
	if r.AlertActive {
		alert = fmt.Sprintf("%s%s: %s%s", severityColor(r.AlertSeverity), r.AlertSeverity, r.AlertMessage, colorReset)
	}
	if m.wrap && m.vp.Width > 0 {
		line = wordwrap.String(line, m.vp.Width)
		alert = wordwrap.String(alert, m.vp.Width)
	}
	return line + "\n" + alert
}

func indicator(on bool) string {
	c := lipgloss.Color("9")
	if on {
		c = lipgloss.Color("10")
	}
	return lipgloss.NewStyle().Foreground(c).Render("●")
}

func (m tuiModel) renderBottom() string {
	line := fmt.Sprintf("Admin UI %s | Wrap %s | Scroll %s | Help %s",
		indicator(m.admin), indicator(m.wrap), indicator(m.autoscroll), indicator(m.help))
	if m.status != "" {
		line += " | " + m.status
	}
	return line
}

func (m tuiModel) renderHelp() string {
	lines := []string{
		"Key Bindings:",
		" q  quit",
		" 1  start nominal scenario",
		" 2  start pressure anomaly scenario",
		" 3  start power fault scenario",
		" p  propulsion active",
		" o  propulsion inactive",
		" a  deploy manipulator arm",
		" c  collect sample",
		" x  jettison science package",
		" r  reset simulation",
		" w  toggle wrap",
		" s  toggle auto-scroll",
		" h/? toggle this help view",
		"",
		"When auto-scroll is disabled:",
		" j/k or up/down    scroll one line",
		" pgdown/pgup       scroll a page",
	}
	return strings.Join(lines, "\n")
}
