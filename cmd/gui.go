package cmd

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"brimstone/asset"
	"brimstone/db"
	"brimstone/instance"
	"brimstone/logger"
	"brimstone/ui"
)

// guiCmd represents the gui command
var guiCmd = &cobra.Command{
	Use:   "gui",
	Short: "Browse and launch instances interactively",
	Long:  `Launch an interactive TUI to browse your instances and start them.`,
	Run: func(_ *cobra.Command, _ []string) {
		runGUI()
	},
}

func init() {
	rootCmd.AddCommand(guiCmd)
}

func runGUI() {
	e := bootstrap()
	defer e.close()

	p := tea.NewProgram(newModel(e), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		logger.Log.Fatalw("Error running TUI", zap.Error(err))
	}
}

// InstanceInfo is one row of the instance browser.
type InstanceInfo struct {
	Entry       db.Entry
	Name        string
	Playtime    string
	LastPlayed  string
	EnabledMods int
	TotalMods   int
	IWAD        string
	Color       int
}

// Model represents the state of the TUI
type Model struct {
	instances     []InstanceInfo
	selectedIndex int
	sort          sortMode
	loading       bool
	running       string // name of the instance being played
	error         string
	message       string
	env           *env
	spinner       spinner.Model
	width         int
	height        int
}

func newModel(e *env) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	return Model{
		env:     e,
		loading: true,
		sort:    sortByLastPlayed,
		spinner: s,
	}
}

// Init starts loading the catalog.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.loadInstances(),
		m.spinner.Tick,
	)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case instancesLoadedMsg:
		m.handleInstancesLoaded(msg)
	case spinner.TickMsg:
		if !m.loading && m.running == "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case errorMsg:
		m.error = string(msg)
		m.loading = false
		m.running = ""
	case sessionDoneMsg:
		return m.handleSessionDone(msg)
	case clearMessageMsg:
		m.message = ""
	}
	return m, nil
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.running != "" {
		// the game owns the session until it exits
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m, nil
	}

	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "up", "k":
		if m.selectedIndex > 0 {
			m.selectedIndex--
		}
	case "down", "j":
		if m.selectedIndex < len(m.instances)-1 {
			m.selectedIndex++
		}
	case "s":
		m.sort = nextSortMode(m.sort)
		m.loading = true
		return m, tea.Batch(m.loadInstances(), m.spinner.Tick)
	case "enter":
		if len(m.instances) > 0 {
			return m.launchSelected()
		}
	}
	return m, nil
}

func nextSortMode(mode sortMode) sortMode {
	switch mode {
	case sortByLastPlayed:
		return sortByPlaytime
	case sortByPlaytime:
		return sortByName
	default:
		return sortByLastPlayed
	}
}

func (m *Model) handleInstancesLoaded(msg instancesLoadedMsg) {
	m.instances = msg.instances
	m.loading = false
	if m.selectedIndex >= len(m.instances) {
		m.selectedIndex = max(len(m.instances)-1, 0)
	}
}

func (m Model) launchSelected() (tea.Model, tea.Cmd) {
	entry := m.instances[m.selectedIndex].Entry
	command, err := entry.Instance.FullCommand(m.env.store, m.env.cfg.LaunchCommand)
	if err == nil {
		err = entry.Instance.CreateSaveDir(m.env.store)
	}
	if err != nil {
		m.message = fmt.Sprintf("Cannot launch %s: %v", entry.Name(), err)
		return m, clearMessageAfter(3 * time.Second)
	}

	logger.Log.Infow("Launching instance", zap.String("name", entry.Name()), zap.String("command", command))
	session, err := entry.Instance.Launch(command, instance.LaunchOptions{})
	if err != nil {
		logger.Log.Errorw("Failed to launch instance", zap.String("name", entry.Name()), zap.Error(err))
		m.message = fmt.Sprintf("Cannot launch %s: %v", entry.Name(), err)
		return m, clearMessageAfter(3 * time.Second)
	}

	m.running = entry.Name()
	catalog := m.env.catalog
	wait := func() tea.Msg {
		res := session.Wait()
		if res.Err != nil {
			logger.Log.Warnw("Game exited with an error", zap.String("name", entry.Name()), zap.Int("exit_code", res.ExitCode), zap.Error(res.Err))
		}
		err := catalog.RecordSession(entry, res)
		if err != nil {
			logger.Log.Errorw("Failed to record session", zap.String("name", entry.Name()), zap.Error(err))
		}
		return sessionDoneMsg{name: entry.Name(), result: res, err: err}
	}
	return m, tea.Batch(wait, m.spinner.Tick)
}

func (m Model) handleSessionDone(msg sessionDoneMsg) (tea.Model, tea.Cmd) {
	m.running = ""
	if msg.err != nil {
		m.message = fmt.Sprintf("Played %s but the session was not saved: %v", msg.name, msg.err)
	} else {
		m.message = fmt.Sprintf("Played %s for %s", msg.name, ui.FormatPlaytime(msg.result.Duration))
	}
	return m, tea.Batch(
		m.loadInstances(),
		clearMessageAfter(5*time.Second),
	)
}

func clearMessageAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return clearMessageMsg{}
	})
}

// View renders the UI
func (m Model) View() string {
	if m.loading {
		return m.renderLoadingScreen()
	}

	if m.error != "" {
		return fmt.Sprintf("Error: %s\n", m.error)
	}

	if len(m.instances) == 0 {
		return "No instances found. Create one with `brimstone create <name>`.\n"
	}

	var output string
	output += renderHeader()
	output += "\n"

	for i, info := range m.instances {
		output += m.renderInstanceRow(i, info)
		output += "\n"
	}

	if m.running != "" {
		runningStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
		output += "\n" + runningStyle.Render(fmt.Sprintf("%s Playing %s...", m.spinner.View(), m.running))
	}

	output += "\n" + renderFooter(m.sort)

	if m.message != "" {
		output += "\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.message)
	}

	return output
}

func (m Model) renderLoadingScreen() string {
	loadingStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)
	logoStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9"))

	var output string
	output += logoStyle.Render(ui.Logo()) + "\n\n"
	output += loadingStyle.Render(fmt.Sprintf("%s Loading instances...", m.spinner.View())) + "\n"
	return output
}

func renderHeader() string {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Padding(0, 1)

	return headerStyle.Render(fmt.Sprintf("  %-30s %-20s %-9s %-14s %-16s", "Instance", "IWAD", "Mods", "Playtime", "Last played"))
}

func renderFooter(mode sortMode) string {
	footerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8")).
		Italic(true)

	return footerStyle.Render(fmt.Sprintf("↑/k: up  ↓/j: down  enter: play  s: sort (%s)  q: quit", mode))
}

func (m Model) renderInstanceRow(index int, info InstanceInfo) string {
	rowStyle := lipgloss.NewStyle().Padding(0, 1)
	isSelected := index == m.selectedIndex
	if isSelected {
		rowStyle = rowStyle.
			Background(lipgloss.Color("8")).
			Bold(true)
	}

	indicator := " "
	if info.Name == m.running {
		indicator = "▶"
	}

	// Pad the name before coloring to keep columns aligned
	paddedName := fmt.Sprintf("%-30s", truncate(info.Name, 30))
	row := fmt.Sprintf("%s %s %-20s %-9s %-14s %-16s",
		indicator,
		ui.Colorize(paddedName, info.Color),
		truncate(info.IWAD, 20),
		fmt.Sprintf("%d/%d", info.EnabledMods, info.TotalMods),
		info.Playtime,
		truncate(info.LastPlayed, 16),
	)

	return rowStyle.Render(row)
}

func truncate(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen-3] + "..."
	}
	return s
}

// Message types
type instancesLoadedMsg struct {
	instances []InstanceInfo
}

type errorMsg string

type sessionDoneMsg struct {
	name   string
	result instance.SessionResult
	err    error
}

type clearMessageMsg struct{}

func (m Model) loadInstances() tea.Cmd {
	catalog := m.env.catalog
	mode := m.sort
	return func() tea.Msg {
		entries, err := listInstances(catalog, mode)
		if err != nil {
			logger.Log.Errorw("Failed to load instances", zap.Error(err))
			return errorMsg(fmt.Sprintf("Failed to load instances: %v", err))
		}
		return instancesLoadedMsg{instances: instanceInfos(entries)}
	}
}

func instanceInfos(entries []db.Entry) []InstanceInfo {
	infos := make([]InstanceInfo, 0, len(entries))
	for _, e := range entries {
		meta := e.Instance.Metadata
		mods := e.Instance.Refs(asset.Mod)
		info := InstanceInfo{
			Entry:       e,
			Name:        e.Name(),
			Playtime:    ui.FormatPlaytime(meta.Playtime),
			LastPlayed:  ui.FormatLastPlayed(meta.LastPlayed),
			EnabledMods: len(asset.Enabled(mods)),
			TotalMods:   len(mods),
			IWAD:        "-",
			Color:       ui.NameColor(e.Name()),
		}
		if iwads := asset.Enabled(e.Instance.Refs(asset.IWAD)); len(iwads) > 0 {
			if name, ok := iwads[0].Filename(); ok {
				info.IWAD = name
			}
		}
		infos = append(infos, info)
	}
	return infos
}
