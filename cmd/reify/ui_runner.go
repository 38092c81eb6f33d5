package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"reify/internal/driver"
	"reify/internal/pipeline"
	"reify/internal/ui"
	"reify/internal/unit"
)

type runOutcome struct {
	result *driver.Result
	err    error
}

func runWithUI(ctx context.Context, title string, u *unit.Unit, opts driver.Options) (*driver.Result, error) {
	events := make(chan pipeline.Event, 256)
	outcomeCh := make(chan runOutcome, 1)

	go func() {
		optsCopy := opts
		optsCopy.Progress = pipeline.ChannelSink{Ch: events}
		res, err := driver.Run(ctx, u, optsCopy)
		outcomeCh <- runOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, u.SourcePaths(), events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stderr), tea.WithInput(nil))
	_, uiErr := program.Run()
	if uiErr != nil {
		go func() {
			for range events {
			}
		}()
	}
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}
