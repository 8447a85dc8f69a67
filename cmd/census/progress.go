package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/wasm-census/batch"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	summaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const maxBarWidth = 60

type fileDoneMsg struct {
	path  string
	done  int
	total int
}

type batchDoneMsg struct {
	res *batch.Results
	err error
}

type progressModel struct {
	started time.Time
	err     error
	cancel  context.CancelFunc
	summary *batch.Summary
	current string
	bar     progress.Model
	done    int
	total   int
	stopped bool
}

func newProgressModel(total int, cancel context.CancelFunc) *progressModel {
	return &progressModel{
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		total:   total,
		cancel:  cancel,
		started: time.Now(),
	}
}

func (m *progressModel) Init() tea.Cmd {
	return nil
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			// keep running until the batch reports back so partial results are kept
			m.stopped = true
			m.cancel()
		}
	case tea.WindowSizeMsg:
		m.bar.Width = min(max(msg.Width-30, 10), maxBarWidth)
	case fileDoneMsg:
		m.done = msg.done
		m.total = msg.total
		m.current = msg.path
	case batchDoneMsg:
		m.err = msg.err
		if msg.res != nil {
			s := msg.res.Summary()
			m.summary = &s
		}
		return m, tea.Quit
	}
	return m, nil
}

func (m *progressModel) percent() float64 {
	if m.total == 0 {
		return 1
	}
	return float64(m.done) / float64(m.total)
}

func (m *progressModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("wasm census"))
	b.WriteString("\n\n")
	b.WriteString(m.bar.ViewAs(m.percent()))
	b.WriteString(" ")
	b.WriteString(countStyle.Render(fmt.Sprintf("%d/%d", m.done, m.total)))
	b.WriteString("\n")

	if m.summary != nil {
		b.WriteString(summaryStyle.Render(fmt.Sprintf(
			"%d records, %d inferred, %d dropped (%d timed out) in %s",
			m.summary.Records, m.summary.Inferred, m.summary.Dropped, m.summary.Timeouts,
			time.Since(m.started).Round(time.Millisecond))))
		b.WriteString("\n")
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
			b.WriteString("\n")
		}
		return b.String()
	}

	if m.current != "" {
		b.WriteString(helpStyle.Render(filepath.Base(m.current)))
	}
	b.WriteString("\n")
	if m.stopped {
		b.WriteString(errorStyle.Render("stopping, waiting for running files"))
	} else {
		b.WriteString(helpStyle.Render("q stop early"))
	}
	b.WriteString("\n")
	return b.String()
}

// runWithProgress runs the batch while a progress bar renders on stderr.
func runWithProgress(ctx context.Context, paths []string, opts batch.Options) (*batch.Results, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newProgressModel(len(paths), cancel), tea.WithOutput(os.Stderr))

	opts.OnProgress = func(done, total int, path string) {
		p.Send(fileDoneMsg{path: path, done: done, total: total})
	}

	var (
		res *batch.Results
		err error
	)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		res, err = batch.Run(ctx, paths, opts)
		p.Send(batchDoneMsg{res: res, err: err})
	}()

	if _, uiErr := p.Run(); uiErr != nil {
		cancel()
		<-finished
		return res, fmt.Errorf("progress display: %w", uiErr)
	}
	<-finished
	return res, err
}
