package outputgelf

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/MuchTitan/go-logwatch/internal"
	"github.com/MuchTitan/go-logwatch/internal/util"
	"github.com/sirupsen/logrus"

	"gopkg.in/Graylog2/go-gelf.v2/gelf"
)

const maxBuffer = 100

type GELF struct {
	name        string
	match       string
	host        string
	hostKey     string
	port        int
	mode        string
	onlyMatched bool
	buffer      []*gelf.Message
	writer      gelf.Writer
}

func (g *GELF) Name() string {
	return g.name
}

func (g *GELF) Init(config map[string]any) error {
	g.name = util.MustString(config["Name"])
	if g.name == "" {
		g.name = "gelf"
	}

	g.match = util.MustString(config["Match"])
	if g.match == "" {
		g.match = "*"
	}

	g.host = util.MustString(config["Host"])
	if g.host == "" {
		g.host = "127.0.0.1"
	}

	g.hostKey = util.MustString(config["HostKey"])
	if g.hostKey == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return errors.New("please provide a valid HostKey for the gelf output")
		}
		g.hostKey = hostname
	}

	g.mode = util.MustString(config["Mode"])
	if g.mode == "" {
		g.mode = "udp"
	}
	if g.mode != "udp" && g.mode != "tcp" {
		return fmt.Errorf("mode: '%v' is not supported", g.mode)
	}

	if port, exists := config["Port"]; exists {
		var ok bool
		if g.port, ok = port.(int); !ok {
			return errors.New("cant convert port to int")
		}
	} else {
		g.port = 12201
	}

	g.onlyMatched = true
	if onlyMatched, exists := config["OnlyMatched"]; exists {
		var ok bool
		if g.onlyMatched, ok = onlyMatched.(bool); !ok {
			return errors.New("cant convert only matched parameter to bool")
		}
	}

	g.buffer = make([]*gelf.Message, 0, maxBuffer)

	return g.setupWriter()
}

func (g *GELF) setupWriter() error {
	addr := fmt.Sprintf("%s:%d", g.host, g.port)
	var w gelf.Writer
	var err error

	switch g.mode {
	case "udp":
		w, err = gelf.NewUDPWriter(addr)
	case "tcp":
		w, err = gelf.NewTCPWriter(addr)
	default:
		return fmt.Errorf("unsupported mode: %s", g.mode)
	}

	if err != nil {
		return fmt.Errorf("failed to create %s writer: %w", g.mode, err)
	}

	g.writer = w
	return nil
}

func (g *GELF) message(obs internal.Observation) *gelf.Message {
	logFile, _ := obs.Metadata[internal.MetaLogFile].(string)

	level := int32(gelf.LOG_INFO)
	short := fmt.Sprintf("no pattern matches in %s", logFile)
	switch {
	case obs.Matched:
		level = gelf.LOG_WARNING
		short = fmt.Sprintf("%d matched line(s) in %s", len(obs.MatchedLines), logFile)
	case obs.Metadata[internal.MetaError] != nil:
		level = gelf.LOG_ERR
		short = fmt.Sprintf("could not read %s: %v", logFile, obs.Metadata[internal.MetaError])
	case obs.Metadata[internal.MetaStatus] != nil:
		short = fmt.Sprintf("%s: %v", logFile, obs.Metadata[internal.MetaStatus])
	}

	extra := map[string]any{"_watcher": obs.Watcher}
	for key, value := range obs.Metadata {
		extra["_"+key] = value
	}

	return &gelf.Message{
		Version:  "1.1",
		Host:     g.hostKey,
		Short:    short,
		Full:     strings.Join(obs.MatchedLines, "\n"),
		TimeUnix: float64(obs.Timestamp.UnixNano()) / 1e9,
		Level:    level,
		Facility: "logwatch",
		Extra:    extra,
	}
}

func (g *GELF) Write(observations []internal.Observation) error {
	for _, obs := range observations {
		if !util.TagMatch(obs.Watcher, g.match) {
			continue
		}
		if g.onlyMatched && !obs.Matched {
			continue
		}

		g.buffer = append(g.buffer, g.message(obs))

		if len(g.buffer) >= maxBuffer {
			if err := g.Flush(); err != nil {
				logrus.WithError(err).Error("could not flush gelf output")
			}
		}
	}
	return nil
}

func (g *GELF) Flush() error {
	for i, msg := range g.buffer {
		if err := g.writer.WriteMessage(msg); err != nil {
			g.buffer = g.buffer[:copy(g.buffer, g.buffer[i:])]
			return err
		}
	}
	g.buffer = g.buffer[:0]
	return nil
}

func (g *GELF) Exit() error {
	if g.writer != nil {
		return g.writer.Close()
	}
	return nil
}
