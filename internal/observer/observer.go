// Package observer runs one poll of a watched log file: classify rotation,
// read the new bytes, match patterns and commit the new offset.
//
// Observe is not safe for concurrent use on the same target, callers
// serialize polls per watcher name.
package observer

import (
	"errors"
	"os"
	"time"

	"github.com/MuchTitan/go-logwatch/internal"
	"github.com/MuchTitan/go-logwatch/internal/filter"
	"github.com/MuchTitan/go-logwatch/internal/fingerprint"
	"github.com/MuchTitan/go-logwatch/internal/metrics"
	"github.com/MuchTitan/go-logwatch/internal/rotation"
	"github.com/MuchTitan/go-logwatch/internal/state"
	"github.com/MuchTitan/go-logwatch/internal/tailer"
	"github.com/sirupsen/logrus"
)

const RotatedSuffix = ".1"

// Target is one watched log file.
type Target struct {
	Name        string
	Path        string
	RotatedPath string
	Patterns    []string
	StateDir    string
}

func NewTarget(name, path string, patterns []string, stateDir string) Target {
	return Target{
		Name:        name,
		Path:        path,
		RotatedPath: path + RotatedSuffix,
		Patterns:    patterns,
		StateDir:    stateDir,
	}
}

type Observer struct {
	target      Target
	grep        *filter.Grep
	store       state.Store
	fingerprint fingerprint.Func
	classifier  *rotation.Classifier
	metrics     *metrics.Metrics
	now         func() time.Time
	log         *logrus.Entry
}

type Option func(*Observer)

func WithFingerprint(fp fingerprint.Func) Option {
	return func(o *Observer) { o.fingerprint = fp }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Observer) { o.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(o *Observer) { o.now = now }
}

// New fails only when the patterns do not compile.
func New(target Target, store state.Store, opts ...Option) (*Observer, error) {
	grep, err := filter.NewGrep(target.Patterns)
	if err != nil {
		return nil, err
	}
	if target.RotatedPath == "" {
		target.RotatedPath = target.Path + RotatedSuffix
	}

	o := &Observer{
		target:      target,
		grep:        grep,
		store:       store,
		fingerprint: fingerprint.Get,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.classifier = rotation.NewClassifier(o.fingerprint)
	o.log = logrus.WithFields(logrus.Fields{
		"watcher": target.Name,
		"path":    target.Path,
	})
	return o, nil
}

func (o *Observer) Name() string {
	return o.target.Name
}

func (o *Observer) Target() Target {
	return o.target
}

// Observe never fails, problems are reported in the observation metadata.
// State is only persisted when the file was read.
func (o *Observer) Observe() internal.Observation {
	if _, err := os.Stat(o.target.Path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			o.log.Debug("log file not found")
			return o.notFound()
		}
		o.log.WithError(err).Error("could not stat log file")
		return o.failure(err)
	}

	stored, err := o.store.Load(o.target.Name)
	if err != nil {
		o.log.WithError(err).Warn("could not load tail state, starting fresh")
		o.metrics.StateError(o.target.Name, "load")
		stored = state.TailState{}
	}

	decision := o.classifier.Classify(o.target.Path, o.target.RotatedPath, stored)
	o.logDecision(decision, stored)

	res, err := tailer.Tail(o.target.Path, decision.Offset)
	if err != nil {
		if errors.Is(err, tailer.ErrNotFound) {
			o.log.Debug("log file vanished before read")
			return o.notFound()
		}
		o.log.WithError(err).Error("could not read log file")
		return o.failure(err)
	}

	matched := o.grep.Match(res.Lines)

	next := decision.State
	next.Offset = res.Offset
	obs := o.observation(len(matched) > 0, matched)
	obs.Metadata[internal.MetaLinesRead] = len(res.Lines)
	obs.Metadata[internal.MetaOffset] = res.Offset
	obs.Metadata[internal.MetaRotation] = decision.Kind.String()
	if decision.Baseline {
		// first sight of the file is not a rotation
		obs.Metadata[internal.MetaRotation] = rotation.NoRotation.String()
	}

	if err := o.store.Save(o.target.Name, next); err != nil {
		o.log.WithError(err).Error("could not save tail state")
		o.metrics.StateError(o.target.Name, "save")
		obs.Metadata[internal.MetaStateError] = err.Error()
	}

	o.metrics.Poll(o.target.Name, metrics.ResultOK)
	o.metrics.Read(o.target.Name, len(res.Lines), len(matched), res.Offset)

	if obs.Matched {
		o.log.WithField("matches", len(matched)).Info("found pattern matches")
	} else {
		o.log.WithField("lines", len(res.Lines)).Debug("checked log file, no pattern matches")
	}
	return obs
}

func (o *Observer) logDecision(d rotation.Decision, stored state.TailState) {
	entry := o.log.WithFields(logrus.Fields{
		"offset":   d.Offset,
		"rotation": d.Kind.String(),
	})

	switch {
	case d.Baseline:
		entry.Debug("establishing baseline for log file")
	case d.Kind == rotation.MoveCreate:
		entry.Info("move/create rotation detected, resetting offset")
		o.metrics.Rotation(o.target.Name, d.Kind.String())
	case d.Kind == rotation.CopyTruncate:
		entry.Info("copytruncate rotation detected, resetting offset")
		o.metrics.Rotation(o.target.Name, d.Kind.String())
	case d.SizeRegression:
		entry.WithField("stored_offset", stored.Offset).Info("file size regression detected, resetting offset")
		o.metrics.Rotation(o.target.Name, "truncate")
	}
}

func (o *Observer) observation(matched bool, lines []string) internal.Observation {
	return internal.Observation{
		Watcher:      o.target.Name,
		Matched:      matched,
		MatchedLines: lines,
		Timestamp:    o.now(),
		Metadata: map[string]any{
			internal.MetaLogFile: o.target.Path,
		},
	}
}

func (o *Observer) notFound() internal.Observation {
	o.metrics.Poll(o.target.Name, metrics.ResultNotFound)
	obs := o.observation(false, nil)
	obs.Metadata[internal.MetaStatus] = internal.StatusNotFound
	return obs
}

func (o *Observer) failure(err error) internal.Observation {
	o.metrics.Poll(o.target.Name, metrics.ResultError)
	obs := o.observation(false, nil)
	obs.Metadata[internal.MetaError] = err.Error()
	return obs
}
