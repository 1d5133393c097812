package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"hostgen/internal/driver"
)

// defaultRows bounds the unit list until the terminal reports its height.
const defaultRows = 16

var statusColors = map[driver.Status]lipgloss.Color{
	driver.StatusQueued:  "8",
	driver.StatusWorking: "6",
	driver.StatusDone:    "2",
	driver.StatusCached:  "4",
	driver.StatusError:   "1",
	driver.StatusSkipped: "3",
}

// tallyOrder fixes the footer layout.
var tallyOrder = []driver.Status{
	driver.StatusDone,
	driver.StatusCached,
	driver.StatusError,
	driver.StatusSkipped,
}

type unitRow struct {
	path    string
	status  driver.Status
	elapsed time.Duration
	err     string
	// seq растёт при каждом изменении строки; свежие строки выше
	seq int
}

type progressModel struct {
	title   string
	events  <-chan driver.Event
	spinner spinner.Model
	bar     progress.Model

	rows   []unitRow
	byPath map[string]int
	tally  map[driver.Status]int
	seq    int

	stage string
	width int
	limit int
	done  bool
}

type eventMsg driver.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders analysis progress.
// Roots are registered as queued units up front so the list is not empty
// while the crawl runs.
func NewProgressModel(title string, roots []string, events <-chan driver.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(statusColors[driver.StatusWorking])

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 76

	m := &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		bar:     bar,
		byPath:  make(map[string]int, len(roots)),
		tally:   make(map[driver.Status]int),
		width:   80,
		limit:   defaultRows,
	}
	for _, r := range roots {
		m.row(r)
	}
	return m
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.next())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		return m, tea.Batch(m.applyEvent(driver.Event(msg)), m.next())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.bar.Width = msg.Width - 4
		}
		if msg.Height > 0 {
			// заголовок, пустые строки, полоса и итог
			m.limit = max(msg.Height-6, 3)
		}
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m, nil
	case progress.FrameMsg:
		next, cmd := m.bar.Update(msg)
		m.bar = next.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n\n")

	nameWidth := max(m.width-26, 20)
	visible, hidden := m.visibleRows()
	for _, r := range visible {
		status := lipgloss.NewStyle().Foreground(statusColors[r.status]).Render(fmt.Sprintf("%8s", r.status))
		fmt.Fprintf(&b, "  %s %s", status, truncate(r.path, nameWidth))
		if r.elapsed > 0 {
			fmt.Fprintf(&b, " %8s", r.elapsed.Round(time.Millisecond))
		}
		b.WriteString("\n")
		if r.err != "" {
			fmt.Fprintf(&b, "           %s\n", truncate(r.err, nameWidth))
		}
	}
	if hidden > 0 {
		fmt.Fprintf(&b, "  … %d more\n", hidden)
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.bar.ViewAs(1.0))
	} else {
		b.WriteString(m.bar.View())
	}
	b.WriteString("\n")
	b.WriteString(m.footer())
	b.WriteString("\n")
	return b.String()
}

func (m *progressModel) header() string {
	text := m.title
	if m.stage != "" {
		text = fmt.Sprintf("%s (%s)", text, m.stage)
	}
	if m.done {
		text = "done: " + text
	} else {
		text = m.spinner.View() + " " + text
	}
	return lipgloss.NewStyle().Bold(true).Render(text)
}

// footer prints "3/5 units: 2 done, 1 error"; zero counters are omitted.
func (m *progressModel) footer() string {
	finished := 0
	parts := make([]string, 0, len(tallyOrder))
	for _, st := range tallyOrder {
		n := m.tally[st]
		if n == 0 {
			continue
		}
		finished += n
		parts = append(parts, fmt.Sprintf("%d %s", n, st))
	}
	line := fmt.Sprintf("%d/%d units", finished, len(m.rows))
	if len(parts) > 0 {
		line += ": " + strings.Join(parts, ", ")
	}
	return line
}

// visibleRows keeps units in flight and failures on screen and fills the
// rest with the most recently touched units. Order of first report is kept.
func (m *progressModel) visibleRows() ([]unitRow, int) {
	if len(m.rows) <= m.limit {
		return m.rows, 0
	}
	keep := make([]bool, len(m.rows))
	room := m.limit
	for i, r := range m.rows {
		if room > 0 && (r.status == driver.StatusWorking || r.status == driver.StatusError) {
			keep[i] = true
			room--
		}
	}
	for room > 0 {
		best := -1
		for i, r := range m.rows {
			if !keep[i] && (best < 0 || r.seq > m.rows[best].seq) {
				best = i
			}
		}
		if best < 0 {
			break
		}
		keep[best] = true
		room--
	}
	out := make([]unitRow, 0, m.limit)
	for i, r := range m.rows {
		if keep[i] {
			out = append(out, r)
		}
	}
	return out, len(m.rows) - len(out)
}

func (m *progressModel) next() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) row(path string) int {
	if idx, ok := m.byPath[path]; ok {
		return idx
	}
	m.rows = append(m.rows, unitRow{path: path, status: driver.StatusQueued})
	m.tally[driver.StatusQueued]++
	m.byPath[path] = len(m.rows) - 1
	return len(m.rows) - 1
}

func (m *progressModel) applyEvent(ev driver.Event) tea.Cmd {
	if ev.Unit == "" {
		m.stage = stageLabel(ev.Stage, ev.Status)
		return nil
	}
	r := &m.rows[m.row(ev.Unit)]
	m.tally[r.status]--
	m.tally[ev.Status]++
	m.seq++
	r.status = ev.Status
	r.seq = m.seq
	if ev.Elapsed > 0 {
		r.elapsed = ev.Elapsed
	}
	if ev.Err != nil {
		r.err = ev.Err.Error()
	}
	return m.bar.SetPercent(m.fraction())
}

func (m *progressModel) fraction() float64 {
	if len(m.rows) == 0 {
		return 0
	}
	total := 0.0
	for _, r := range m.rows {
		total += weight(r.status)
	}
	return total / float64(len(m.rows))
}

func weight(status driver.Status) float64 {
	switch status {
	case driver.StatusDone, driver.StatusCached, driver.StatusError, driver.StatusSkipped:
		return 1.0
	case driver.StatusWorking:
		return 0.5
	default:
		return 0.0
	}
}

func stageLabel(stage driver.Stage, status driver.Status) string {
	if status == driver.StatusDone {
		return ""
	}
	switch stage {
	case driver.StageCrawl:
		return "crawling"
	case driver.StageAnalyze:
		return "analysing"
	}
	return ""
}

func truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}
