package outputstdout

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/MuchTitan/go-logwatch/internal"
	"github.com/MuchTitan/go-logwatch/internal/util"
)

var ValidFormats = []string{"json", "plain", "template"}

type Stdout struct {
	name        string
	format      string             // Output format (json, template, plain)
	template    *template.Template // Custom output template
	jsonIndent  bool               // Whether to indent JSON output
	mutex       sync.Mutex         // Ensures atomic writes to stdout
	colors      bool               // Enable/disable colored output
	onlyMatched bool               // Skip observations without matches
	match       string
	out         io.Writer
}

func (s *Stdout) Name() string {
	return s.name
}

func (s *Stdout) Init(config map[string]any) error {
	s.name = util.MustString(config["Name"])
	if s.name == "" {
		s.name = "stdout"
	}

	s.match = util.MustString(config["Match"])
	if s.match == "" {
		s.match = "*"
	}

	s.format = util.MustString(config["Format"])
	if s.format == "" {
		s.format = "json"
	}

	if !slices.Contains(ValidFormats, s.format) {
		return fmt.Errorf("not a valid format for stdout provided: %s", s.format)
	}

	if indent, exists := config["JsonIndent"]; exists && s.format == "json" {
		var ok bool
		if s.jsonIndent, ok = indent.(bool); !ok {
			return errors.New("cant convert json indent parameter to bool")
		}
	}

	if colors, exists := config["Colors"]; exists {
		var ok bool
		if s.colors, ok = colors.(bool); !ok {
			return errors.New("cant convert colors parameter to bool")
		}
	}

	if onlyMatched, exists := config["OnlyMatched"]; exists {
		var ok bool
		if s.onlyMatched, ok = onlyMatched.(bool); !ok {
			return errors.New("cant convert only matched parameter to bool")
		}
	}

	if templateTmp, exists := config["Template"]; exists && templateTmp != "" {
		templateStr := util.MustString(templateTmp)
		tmpl, err := template.New("output").Parse(templateStr)
		if err != nil {
			return fmt.Errorf("failed to parse template: %v", err)
		}
		s.template = tmpl
		s.format = "template"
	}
	if s.format == "template" && s.template == nil {
		return errors.New("template format needs a Template")
	}

	return nil
}

func (s *Stdout) writer() io.Writer {
	if s.out != nil {
		return s.out
	}
	return os.Stdout
}

func (s *Stdout) Write(observations []internal.Observation) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, obs := range observations {
		if !util.TagMatch(obs.Watcher, s.match) {
			continue
		}
		if s.onlyMatched && !obs.Matched {
			continue
		}
		var output string
		var err error

		switch s.format {
		case "json":
			output, err = s.formatJSON(obs)
		case "template":
			output, err = s.formatTemplate(obs)
		case "plain":
			output, err = s.formatPlain(obs)
		default:
			return fmt.Errorf("unknown format: %s", s.format)
		}

		if err != nil {
			return fmt.Errorf("failed to format observation: %v", err)
		}

		if s.colors {
			output = s.colorize(obs, output)
		}

		fmt.Fprintln(s.writer(), output)
	}

	return nil
}

func (s *Stdout) formatJSON(obs internal.Observation) (string, error) {
	formatted := map[string]any{
		"timestamp": obs.Timestamp.Format(time.RFC3339),
		"watcher":   obs.Watcher,
		"matched":   obs.Matched,
		"metadata":  obs.Metadata,
	}

	if len(obs.MatchedLines) > 0 {
		formatted["matched_lines"] = obs.MatchedLines
	}

	var bytes []byte
	var err error

	if s.jsonIndent {
		bytes, err = json.MarshalIndent(formatted, "", "  ")
	} else {
		bytes, err = json.Marshal(formatted)
	}

	if err != nil {
		return "", err
	}

	return string(bytes), nil
}

func (s *Stdout) formatTemplate(obs internal.Observation) (string, error) {
	if s.template == nil {
		return "", fmt.Errorf("template not configured")
	}

	builder := &strings.Builder{}
	err := s.template.Execute(builder, struct {
		Timestamp    time.Time
		Watcher      string
		Matched      bool
		MatchedLines []string
		Metadata     map[string]any
	}{
		Timestamp:    obs.Timestamp,
		Watcher:      obs.Watcher,
		Matched:      obs.Matched,
		MatchedLines: obs.MatchedLines,
		Metadata:     obs.Metadata,
	})
	if err != nil {
		return "", err
	}

	return builder.String(), nil
}

// formatPlain renders: timestamp [watcher] matched=N key=value ... | line | line
func (s *Stdout) formatPlain(obs internal.Observation) (string, error) {
	var builder strings.Builder

	fmt.Fprintf(&builder, "%s [%s] matched=%d",
		obs.Timestamp.Format(time.RFC3339),
		obs.Watcher,
		len(obs.MatchedLines))

	keys := make([]string, 0, len(obs.Metadata))
	for key := range obs.Metadata {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&builder, " %s=%v", key, obs.Metadata[key])
	}

	for _, line := range obs.MatchedLines {
		fmt.Fprintf(&builder, " | %s", line)
	}

	return builder.String(), nil
}

func (s *Stdout) colorize(obs internal.Observation, output string) string {
	const (
		colorReset  = "\033[0m"
		colorRed    = "\033[31m"
		colorGreen  = "\033[32m"
		colorYellow = "\033[33m"
	)

	switch {
	case obs.Matched:
		return colorRed + output + colorReset
	case obs.Metadata[internal.MetaError] != nil || obs.Metadata[internal.MetaStatus] != nil:
		return colorYellow + output + colorReset
	default:
		return colorGreen + output + colorReset
	}
}

func (s *Stdout) Flush() error {
	// No buffering, so no flush needed
	return nil
}

func (s *Stdout) Exit() error {
	return nil
}
