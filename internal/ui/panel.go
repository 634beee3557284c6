package ui

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"todopanel/internal/config"
	"todopanel/internal/storage"
)

// Panel runs the task list as a full-screen terminal program and writes the
// tasks back when it goes away.
type Panel struct {
	store   *storage.Store
	logger  *log.Logger
	program *tea.Program
}

func NewPanel(store *storage.Store, cfg config.Config, logger *log.Logger, opts ...tea.ProgramOption) *Panel {
	m := New(store, cfg, logger)
	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)
	return &Panel{
		store:   store,
		logger:  logger,
		program: tea.NewProgram(m, opts...),
	}
}

// Run blocks until the user quits or Close is called, then saves.
func (p *Panel) Run() error {
	_, runErr := p.program.Run()
	if err := p.Save(); err != nil {
		return err
	}
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return runErr
	}
	return nil
}

// Close asks the running program to quit. Run saves on the way out.
func (p *Panel) Close() error {
	p.program.Quit()
	return nil
}

func (p *Panel) Save() error {
	p.logger.Info("saving tasks", "path", p.store.Path(), "tasks", p.store.Len())
	if err := p.store.Save(); err != nil {
		return fmt.Errorf("save tasks: %w", err)
	}
	return nil
}
