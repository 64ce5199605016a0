package outputsplunk

import (
	"bytes"
	"compress/gzip"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/MuchTitan/go-logwatch/internal"
	"github.com/MuchTitan/go-logwatch/internal/util"
	"github.com/sirupsen/logrus"
)

const maxBuffer = 100

// Splunk sends observations to a Splunk HTTP Event Collector.
type Splunk struct {
	name        string
	token       string
	match       string
	url         string
	eventHost   string
	sourceType  string
	index       string
	compress    bool
	onlyMatched bool
	httpClient  *http.Client
	mu          sync.Mutex
	buffer      bytes.Buffer
	buffered    int
}

type splunkEvent struct {
	Event      map[string]any `json:"event"`
	Index      string         `json:"index,omitempty"`
	Source     string         `json:"source"`
	Sourcetype string         `json:"sourcetype"`
	Host       string         `json:"host"`
	Time       int64          `json:"time"`
}

func (s *Splunk) Name() string {
	return s.name
}

func (s *Splunk) Init(config map[string]any) error {
	// Required fields
	s.token = util.MustString(config["Token"])
	if s.token == "" {
		return errors.New("splunk token is required")
	}

	// Optional fields with defaults
	s.index = util.MustString(config["EventIndex"])

	s.name = util.MustString(config["Name"])
	if s.name == "" {
		s.name = "splunk"
	}

	s.match = util.MustString(config["Match"])
	if s.match == "" {
		s.match = "*"
	}

	host := util.MustString(config["Host"])
	if host == "" {
		host = "localhost"
	}

	scheme := util.MustString(config["Scheme"])
	if scheme == "" {
		scheme = "https"
	}
	if scheme != "https" && scheme != "http" {
		return fmt.Errorf("not a valid scheme for splunk provided: %s", scheme)
	}

	port := 8088
	if p, exists := config["Port"]; exists {
		var ok bool
		if port, ok = p.(int); !ok {
			return errors.New("cant convert port to int")
		}
	}
	s.url = fmt.Sprintf("%s://%s:%d/services/collector/event", scheme, host, port)

	s.eventHost = util.MustString(config["EventHost"])
	if s.eventHost == "" {
		hostname, _ := os.Hostname()
		s.eventHost = hostname
	}

	s.sourceType = util.MustString(config["EventSourcetype"])
	if s.sourceType == "" {
		s.sourceType = "_json"
	}

	s.compress = config["Compress"] == true
	verifyTLS := config["VerifyTLS"] == true

	s.onlyMatched = true
	if onlyMatched, exists := config["OnlyMatched"]; exists {
		var ok bool
		if s.onlyMatched, ok = onlyMatched.(bool); !ok {
			return errors.New("cant convert only matched parameter to bool")
		}
	}

	// Setup TLS
	tr := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: !verifyTLS,
		},
	}

	s.httpClient = &http.Client{
		Transport: tr,
		Timeout:   time.Second * 30,
	}
	return nil
}

func (s *Splunk) newSplunkEvent(obs internal.Observation) splunkEvent {
	event := map[string]any{
		"watcher":       obs.Watcher,
		"matched":       obs.Matched,
		"matched_lines": obs.MatchedLines,
	}
	for k, v := range obs.Metadata {
		event[k] = v
	}

	source, _ := obs.Metadata[internal.MetaLogFile].(string)
	return splunkEvent{
		Event:      event,
		Index:      s.index,
		Source:     source,
		Sourcetype: s.sourceType,
		Host:       s.eventHost,
		Time:       obs.Timestamp.Unix(),
	}
}

func (s *Splunk) Write(observations []internal.Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	enc := json.NewEncoder(&s.buffer)
	for _, obs := range observations {
		if !util.TagMatch(obs.Watcher, s.match) {
			continue
		}
		if s.onlyMatched && !obs.Matched {
			continue
		}
		if err := enc.Encode(s.newSplunkEvent(obs)); err != nil {
			return fmt.Errorf("failed to marshal observation: %w", err)
		}
		s.buffered++
	}

	if s.buffered >= maxBuffer {
		return s.flush()
	}
	return nil
}

func (s *Splunk) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flush()
}

// flush keeps the buffer when the collector rejects the batch.
func (s *Splunk) flush() error {
	if s.buffer.Len() == 0 {
		return nil
	}

	var requestBody bytes.Buffer
	if s.compress {
		gz := gzip.NewWriter(&requestBody)
		if _, err := gz.Write(s.buffer.Bytes()); err != nil {
			return fmt.Errorf("error during gzip compress: %w", err)
		}
		if err := gz.Close(); err != nil {
			return err
		}
	} else {
		requestBody.Write(s.buffer.Bytes())
	}

	req, err := http.NewRequest(http.MethodPost, s.url, &requestBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Splunk "+s.token)
	req.Header.Set("Content-Type", "application/json")
	if s.compress {
		req.Header.Set("Content-Encoding", "gzip")
	}

	res, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		logrus.WithFields(logrus.Fields{
			"url":    s.url,
			"status": res.Status,
			"body":   string(body),
		}).Debug("splunk request rejected")
		return fmt.Errorf("splunk returned status: %s", res.Status)
	}

	s.buffer.Reset()
	s.buffered = 0
	return nil
}

func (s *Splunk) Exit() error {
	if s.httpClient != nil {
		s.httpClient.CloseIdleConnections()
	}
	return nil
}
