// Package tui renders indexer progress in the terminal.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/G-grbz/monwui/internal/domain"
	"github.com/G-grbz/monwui/internal/tui/styles"
)

const (
	spinnerInterval = 100 * time.Millisecond
	defaultBarWidth = 40
)

// Controls lets the view act on the run it displays.
type Controls struct {
	// Stop cancels the run; the view quits once the final update arrives.
	Stop func()
	// TogglePause flips host visibility and returns whether work is paused.
	TogglePause func() bool
}

// Model is the Bubble Tea model of the progress view
type Model struct {
	Progress     domain.IndexProgress
	Title        string
	SpinnerFrame int
	Width        int
	Stopping     bool
	UserPaused   bool

	updates  <-chan domain.IndexProgress
	controls Controls
	keys     KeyMap
	started  time.Time
	now      func() time.Time
}

// NewModel creates the progress view for updates from a ChannelObserver.
func NewModel(title string, updates <-chan domain.IndexProgress, controls Controls) Model {
	return Model{
		Title:    title,
		updates:  updates,
		controls: controls,
		keys:     DefaultKeyMap(),
		started:  time.Now(),
		now:      time.Now,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(WaitForProgress(m.updates), TickCmd(spinnerInterval))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		return m, nil

	case TickMsg:
		if m.Progress.Done {
			return m, nil
		}
		m.SpinnerFrame++
		return m, TickCmd(spinnerInterval)

	case ProgressMsg:
		m.Progress = msg.Progress
		if m.Progress.Done {
			return m, tea.Quit
		}
		return m, WaitForProgress(m.updates)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			if m.Stopping {
				return m, tea.Quit
			}
			m.Stopping = true
			if m.controls.Stop != nil {
				m.controls.Stop()
			}
			return m, nil
		case key.Matches(msg, m.keys.Pause):
			if m.controls.TogglePause != nil {
				m.UserPaused = m.controls.TogglePause()
			}
			return m, nil
		}
	}
	return m, nil
}

func (m Model) View() string {
	p := m.Progress
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	b.WriteString(styles.SubtitleStyle.Render("phase  "))
	b.WriteString(styles.AccentStyle.Render(p.Phase.String()))
	b.WriteString("\n")
	b.WriteString(RenderBar(p.Cursor, p.Total, m.barWidth()))
	b.WriteString(" ")
	b.WriteString(styles.DimStyle.Render(fmt.Sprintf("%s / %s", humanize.Comma(int64(p.Cursor)), humanize.Comma(int64(p.Total)))))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "%s %s   %s %s   %s %s\n",
		styles.SubtitleStyle.Render("collections"), styles.TitleStyle.Render(humanize.Comma(int64(p.Collections))),
		styles.SubtitleStyle.Render("mapped"), styles.SuccessStyle.Render(humanize.Comma(int64(p.Positive))),
		styles.SubtitleStyle.Render("no collection"), styles.DimStyle.Render(humanize.Comma(int64(p.Negative))))

	if p.Error != nil {
		b.WriteString("\n")
		b.WriteString(RenderError(p.Error))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return styles.Panel.Render(b.String())
}

func (m Model) renderHeader() string {
	title := styles.TitleStyle.Render(m.Title)
	switch {
	case m.Progress.Done:
		return styles.SuccessStyle.Render("✓") + " " + title
	case m.Stopping:
		return styles.WarnStyle.Render("■") + " " + title + styles.DimStyle.Render("  stopping...")
	case m.UserPaused || m.Progress.Paused:
		return styles.WarnStyle.Render("‖") + " " + title + styles.DimStyle.Render("  paused")
	default:
		return RenderSpinner(m.SpinnerFrame) + " " + title
	}
}

func (m Model) renderFooter() string {
	elapsed := m.now().Sub(m.started).Round(time.Second)
	help := fmt.Sprintf("%s %s · %s %s · %s",
		m.keys.Quit.Help().Key, m.keys.Quit.Help().Desc,
		m.keys.Pause.Help().Key, m.keys.Pause.Help().Desc,
		elapsed)
	return styles.DimStyle.Render(help)
}

func (m Model) barWidth() int {
	if m.Width <= 0 {
		return defaultBarWidth
	}
	return max(10, min(defaultBarWidth, m.Width-30))
}

// RenderSpinner renders one spinner frame
func RenderSpinner(frame int) string {
	frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	return styles.SpinnerStyle.Render(frames[frame%len(frames)])
}

// RenderBar renders a fixed-width bar for done out of total. An unknown
// total renders empty.
func RenderBar(done, total, width int) string {
	filled := 0
	if total > 0 {
		filled = min(width, done*width/total)
	}
	return styles.BarFilledStyle.Render(strings.Repeat(styles.BarFilled, filled)) +
		styles.BarEmptyStyle.Render(strings.Repeat(styles.BarEmpty, width-filled))
}

// RenderError renders an error message
func RenderError(err error) string {
	return styles.ErrorStyle.Render("! " + err.Error())
}
