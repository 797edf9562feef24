package main

import (
	tea "github.com/charmbracelet/bubbletea"

	"typelib/internal/types"
	"typelib/internal/ui"
)

type loadOutcome struct {
	registry *types.Registry
	err      error
}

// loadWithUI is loadInputs, showing the progress view on stderr when the
// ui mode allows it.
func (s *session) loadWithUI(title string, paths []string) (*types.Registry, error) {
	if !shouldUseTUI(s.ui, s.quiet, len(paths)) {
		return s.loadInputs(paths)
	}

	events := make(chan ui.Event, 256)
	outcomeCh := make(chan loadOutcome, 1)
	go func() {
		s.progress = ui.ChannelSink{Ch: events}
		r, err := s.loadInputs(paths)
		s.progress = nil
		close(events)
		outcomeCh <- loadOutcome{registry: r, err: err}
	}()

	model := ui.NewProgressModel(title, paths, events)
	program := tea.NewProgram(model, tea.WithOutput(s.errOut), tea.WithInput(nil))
	_, uiErr := program.Run()
	// the view may stop early; keep the loader from blocking on a full channel
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if outcome.err != nil {
		return nil, outcome.err
	}
	return outcome.registry, uiErr
}
