package storage

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Settings are the view toggles saved next to the task records.
type Settings struct {
	HideFinished   bool
	SortDescending bool
}

// ParseError reports a task file that exists but cannot be decoded.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("parse tasks: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

const rootElement = "ToDoPanel"

// xmlDocument accepts any root element name on read.
type xmlDocument struct {
	XMLName  xml.Name
	Settings *xmlSettings `xml:"Settings"`
	Tasks    []xmlTask    `xml:"Task"`
}

type xmlSettings struct {
	HideFinished *string `xml:"hideFinished"`
	SortState    *string `xml:"sortState"`
}

type xmlTask struct {
	Name     *string `xml:"name"`
	Priority *string `xml:"priority"`
	Status   *string `xml:"status"`
	Index    *string `xml:"index"`
}

// Decode reads a task document. A document without task records yields a
// single default task. The stored index of each record is ignored.
func Decode(r io.Reader) ([]*Task, Settings, error) {
	var doc xmlDocument
	dec := xml.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, Settings{}, err
	}
	if err := expectEOF(dec); err != nil {
		return nil, Settings{}, err
	}

	settings, err := decodeSettings(doc.Settings)
	if err != nil {
		return nil, Settings{}, err
	}

	if len(doc.Tasks) == 0 {
		return []*Task{NewTask()}, settings, nil
	}

	tasks := make([]*Task, 0, len(doc.Tasks))
	for i, rec := range doc.Tasks {
		t, err := decodeTask(rec)
		if err != nil {
			return nil, Settings{}, fmt.Errorf("task %d: %w", i, err)
		}
		tasks = append(tasks, t)
	}
	return tasks, settings, nil
}

// expectEOF rejects anything but comments, processing instructions and
// whitespace after the root element.
func expectEOF(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		switch tok := tok.(type) {
		case xml.StartElement:
			return fmt.Errorf("junk after document element: <%s>", tok.Name.Local)
		case xml.CharData:
			if len(bytes.TrimSpace(tok)) > 0 {
				return errors.New("junk after document element: text")
			}
		}
	}
}

func decodeSettings(s *xmlSettings) (Settings, error) {
	var out Settings
	if s == nil {
		return out, nil
	}
	var err error
	if out.HideFinished, err = parseFlag("hideFinished", s.HideFinished); err != nil {
		return Settings{}, err
	}
	if out.SortDescending, err = parseFlag("sortState", s.SortState); err != nil {
		return Settings{}, err
	}
	return out, nil
}

func parseFlag(name string, v *string) (bool, error) {
	if v == nil {
		return false, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(*v))
	if err != nil {
		return false, fmt.Errorf("%s: %w", name, err)
	}
	return b, nil
}

func decodeTask(rec xmlTask) (*Task, error) {
	t := &Task{}
	if rec.Name != nil {
		t.Name = *rec.Name
	}
	priority, err := parseInt("priority", rec.Priority)
	if err != nil {
		return nil, err
	}
	status, err := parseInt("status", rec.Status)
	if err != nil {
		return nil, err
	}
	t.Priority = priority
	t.Status = Status(status)
	return t, nil
}

func parseInt(name string, v *string) (int, error) {
	if v == nil {
		return 0, fmt.Errorf("%s: missing", name)
	}
	n, err := strconv.Atoi(strings.TrimSpace(*v))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return n, nil
}

// Encode writes the settings and tasks, in storage order, as one document.
func Encode(w io.Writer, tasks []*Task, settings Settings) error {
	doc := xmlDocument{
		XMLName: xml.Name{Local: rootElement},
		Settings: &xmlSettings{
			HideFinished: strPtr(formatFlag(settings.HideFinished)),
			SortState:    strPtr(formatFlag(settings.SortDescending)),
		},
		Tasks: make([]xmlTask, 0, len(tasks)),
	}
	for i, t := range tasks {
		if err := checkText(t.Name); err != nil {
			return fmt.Errorf("task %d name: %w", i, err)
		}
		doc.Tasks = append(doc.Tasks, xmlTask{
			Name:     strPtr(t.Name),
			Priority: strPtr(strconv.Itoa(t.Priority)),
			Status:   strPtr(strconv.Itoa(int(t.Status))),
			Index:    strPtr(strconv.Itoa(t.Index())),
		})
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// checkText reports characters XML 1.0 cannot carry. encoding/xml would
// otherwise write them as U+FFFD and the name would change on the next load.
func checkText(s string) error {
	if !utf8.ValidString(s) {
		return errors.New("invalid UTF-8")
	}
	for _, r := range s {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
		case r >= 0x20 && r <= 0xD7FF:
		case r >= 0xE000 && r <= 0xFFFD:
		case r >= 0x10000 && r <= 0x10FFFF:
		default:
			return fmt.Errorf("character %U not allowed in XML", r)
		}
	}
	return nil
}

func formatFlag(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

func strPtr(s string) *string { return &s }

// loadFile returns the default task list when path is empty or does not
// exist. Any other failure is fatal.
func loadFile(path string) ([]*Task, Settings, error) {
	if path == "" {
		return []*Task{NewTask()}, Settings{}, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return []*Task{NewTask()}, Settings{}, nil
	}
	if err != nil {
		return nil, Settings{}, err
	}
	tasks, settings, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, Settings{}, &ParseError{Path: path, Err: err}
	}
	return tasks, settings, nil
}
