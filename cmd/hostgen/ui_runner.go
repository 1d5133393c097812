package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"hostgen/internal/driver"
	"hostgen/internal/session"
	"hostgen/internal/ui"
)

type runOutcome struct {
	result *driver.Result
	err    error
}

// runWithUI runs the session while a Bubble Tea program renders its progress
// on stderr, so diagnostics on stdout stay clean.
func runWithUI(ctx context.Context, title string, sc *session.Context, req driver.Request) (*driver.Result, error) {
	events := make(chan driver.Event, 256)
	outcomeCh := make(chan runOutcome, 1)

	go func() {
		reqCopy := req
		reqCopy.Progress = driver.ChannelSink{Ch: events}
		res, err := driver.Run(ctx, sc, reqCopy)
		outcomeCh <- runOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, req.Roots, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stderr))
	_, uiErr := program.Run()
	// the program may quit early (ctrl+c); keep the run from blocking on events
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}
