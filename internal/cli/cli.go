// Package cli parses the todopanel command line and dispatches subcommands.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"todopanel/internal/config"
	"todopanel/internal/host"
	"todopanel/internal/logging"
	"todopanel/internal/storage"
	"todopanel/internal/ui"
)

// Exit codes.
const (
	ExitOK      = 0
	ExitUsage   = 1
	ExitFailure = 2
)

const usage = `Usage:
  todopanel [run] [-file path] [-script path]   open the task panel
  todopanel list [-file path]                   print the visible tasks
  todopanel export [-file path] [-format text|yaml]
  todopanel import [-file path] <sqlite-db>     append tasks from a SQLite to-do db

Common flags:
  -config path   config file (default $TODOPANEL_CONFIG or the user config dir)
  -file path     task file (default tasks_file from config)
  -script path   keep the task file next to this script
`

// panels tracks the running panel so a second one replaces it.
var panels = host.NewRegistry()

type env struct {
	cfg    config.Config
	path   string
	format string
	args   []string
	out    io.Writer
	errOut io.Writer
}

type command struct {
	name  string
	flags func(fs *flag.FlagSet, e *env)
	run   func(e env) int
}

var commands = []command{
	{name: "run", run: runPanel},
	{name: "list", run: runList},
	{
		name: "export",
		flags: func(fs *flag.FlagSet, e *env) {
			fs.StringVar(&e.format, "format", "text", "")
		},
		run: runExport,
	},
	{name: "import", run: runImport},
}

// Run executes the command line args and returns the process exit code.
func Run(args []string, out, errOut io.Writer) int {
	name := "run"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		name, args = args[0], args[1:]
	}
	if name == "help" {
		fmt.Fprint(out, usage)
		return ExitOK
	}
	for _, c := range commands {
		if c.name == name {
			return dispatch(c, args, out, errOut)
		}
	}
	fmt.Fprintf(errOut, "error: unknown command: %s\n", name)
	fmt.Fprint(errOut, usage)
	return ExitUsage
}

func dispatch(c command, args []string, out, errOut io.Writer) int {
	fs := flag.NewFlagSet(c.name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	e := env{out: out, errOut: errOut}
	var configPath, file, script string
	fs.StringVar(&configPath, "config", "", "")
	fs.StringVar(&file, "file", "", "")
	fs.StringVar(&script, "script", "", "")
	if c.flags != nil {
		c.flags(fs, &e)
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fmt.Fprint(out, usage)
			return ExitOK
		}
		fmt.Fprintf(errOut, "error: %v\n", err)
		return ExitUsage
	}

	if configPath == "" {
		configPath = config.ResolveConfigPath()
	}
	cfg, err := config.LoadOrCreate(configPath)
	if err != nil {
		fmt.Fprintf(errOut, "failed to load config: %v\n", err)
		return ExitFailure
	}

	path, err := tasksPath(cfg, host.Detect(), file, script)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return ExitUsage
	}
	e.cfg, e.path, e.args = cfg, path, fs.Args()
	return c.run(e)
}

// tasksPath picks the task file: an explicit -file, then the file next to
// -script, then the configured default. Inside a host application the
// default is not used; the tasks belong to the open script.
func tasksPath(cfg config.Config, kind host.Kind, file, script string) (string, error) {
	switch {
	case file != "":
		return file, nil
	case script != "":
		return host.SettingsPath(script)
	case kind.Hosted():
		return "", host.ErrUnsavedScript
	default:
		return cfg.TasksFile, nil
	}
}

func (e env) logger() *log.Logger {
	logger, err := logging.New(e.errOut, logging.Options{Level: e.cfg.LogLevel})
	if err != nil {
		logger, _ = logging.New(e.errOut, logging.Options{})
	}
	return logger
}

func (e env) open() (*storage.Store, bool) {
	store, err := storage.Open(e.path)
	if err != nil {
		fmt.Fprintf(e.errOut, "failed to load tasks: %v\n", err)
		return nil, false
	}
	return store, true
}

func runPanel(e env) int {
	logger, closer, err := logging.Open(e.cfg.LogFile, logging.Options{Level: e.cfg.LogLevel})
	if err != nil {
		fmt.Fprintf(e.errOut, "failed to open log: %v\n", err)
		return ExitFailure
	}
	defer closer.Close()

	store, ok := e.open()
	if !ok {
		return ExitFailure
	}
	logger.Info("loaded tasks", "path", store.Path(), "tasks", store.Len())

	panel := ui.NewPanel(store, e.cfg, logger)
	id, err := panels.Activate(panel)
	if err != nil {
		logger.Warn("closing previous panel", "err", err)
	}
	defer panels.Release(id)

	if err := panel.Run(); err != nil {
		fmt.Fprintf(e.errOut, "error running program: %v\n", err)
		return ExitFailure
	}
	return ExitOK
}

func runList(e env) int {
	store, ok := e.open()
	if !ok {
		return ExitFailure
	}
	s := store.Settings()
	visible := store.Recompute(s.HideFinished, s.SortDescending)
	if len(visible) > 0 {
		fmt.Fprintln(e.out, storage.FormatList(visible))
	}
	return ExitOK
}

type exportDoc struct {
	HideFinished   bool         `yaml:"hide_finished"`
	SortDescending bool         `yaml:"sort_descending"`
	Tasks          []exportTask `yaml:"tasks"`
}

type exportTask struct {
	Name     string `yaml:"name"`
	Priority int    `yaml:"priority"`
	Status   string `yaml:"status"`
	Index    int    `yaml:"index"`
}

func runExport(e env) int {
	store, ok := e.open()
	if !ok {
		return ExitFailure
	}
	s := store.Settings()
	visible := store.Recompute(s.HideFinished, s.SortDescending)

	switch e.format {
	case "text":
		if len(visible) > 0 {
			fmt.Fprintln(e.out, storage.FormatList(visible))
		}
	case "yaml":
		doc := exportDoc{HideFinished: s.HideFinished, SortDescending: s.SortDescending}
		for _, t := range store.Tasks() {
			doc.Tasks = append(doc.Tasks, exportTask{
				Name:     t.Name,
				Priority: t.Priority,
				Status:   t.Status.String(),
				Index:    t.Index(),
			})
		}
		enc := yaml.NewEncoder(e.out)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			fmt.Fprintf(e.errOut, "failed to export tasks: %v\n", err)
			return ExitFailure
		}
		if err := enc.Close(); err != nil {
			fmt.Fprintf(e.errOut, "failed to export tasks: %v\n", err)
			return ExitFailure
		}
	default:
		fmt.Fprintf(e.errOut, "error: unknown format: %s\n", e.format)
		return ExitUsage
	}
	return ExitOK
}

func runImport(e env) int {
	if len(e.args) != 1 {
		fmt.Fprintln(e.errOut, "error: import takes exactly one sqlite database path")
		return ExitUsage
	}
	logger := e.logger()

	store, ok := e.open()
	if !ok {
		return ExitFailure
	}
	tasks, err := storage.ImportSQLite(e.args[0])
	if err != nil {
		fmt.Fprintf(e.errOut, "failed to import tasks: %v\n", err)
		return ExitFailure
	}
	store.Append(tasks...)
	if err := store.Save(); err != nil {
		fmt.Fprintf(e.errOut, "failed to save tasks: %v\n", err)
		return ExitFailure
	}
	logger.Info("imported tasks", "from", e.args[0], "to", store.Path(), "count", len(tasks))
	fmt.Fprintf(e.out, "imported %d tasks into %s\n", len(tasks), store.Path())
	return ExitOK
}
