// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"golang.org/x/term"
)

// Download renders an interactive download progress bar. Created only
// on terminals; callers receive nil otherwise and pass no progress
// callback, keeping piped output clean.
type Download struct {
	program *tea.Program
	done    chan struct{}
}

type progressMsg struct {
	received, total int64
}

type finishedMsg struct{}

// StartDownloadUI starts a progress display labelled with the archive
// name. Returns nil when stderr is not a terminal.
func StartDownloadUI(label string) *Download {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return nil
	}
	m := downloadModel{
		label: label,
		bar:   progress.New(progress.WithDefaultGradient()),
	}
	d := &Download{
		program: tea.NewProgram(m, tea.WithOutput(os.Stderr), tea.WithoutSignalHandler()),
		done:    make(chan struct{}),
	}
	go func() {
		defer close(d.done)
		d.program.Run()
	}()
	return d
}

// Progress is a fetch progress callback. Safe on a nil Download.
func (d *Download) Progress(received, total int64) {
	if d == nil {
		return
	}
	d.program.Send(progressMsg{received: received, total: total})
}

// Finish stops the display and waits for the terminal to be restored.
// Safe on a nil Download.
func (d *Download) Finish() {
	if d == nil {
		return
	}
	d.program.Send(finishedMsg{})
	<-d.done
}

type downloadModel struct {
	label    string
	bar      progress.Model
	received int64
	total    int64
}

func (m downloadModel) Init() tea.Cmd { return nil }

func (m downloadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case progressMsg:
		m.received, m.total = msg.received, msg.total
		if m.total > 0 {
			return m, m.bar.SetPercent(float64(m.received) / float64(m.total))
		}
		return m, nil
	case finishedMsg:
		return m, tea.Quit
	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd
	case tea.KeyMsg:
		// The download keeps going; the UI just has nothing to say.
		return m, nil
	}
	return m, nil
}

func (m downloadModel) View() string {
	if m.total > 0 {
		return fmt.Sprintf("%s %s %s / %s\n", m.label, m.bar.View(),
			humanize.IBytes(uint64(m.received)), humanize.IBytes(uint64(m.total)))
	}
	return fmt.Sprintf("%s %s\n", m.label, humanize.IBytes(uint64(m.received)))
}
