package trigger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Interval fires once on start and then every period.
type Interval struct {
	period time.Duration
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewInterval(period time.Duration) (*Interval, error) {
	if period <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %s", period)
	}
	return &Interval{period: period}, nil
}

func (i *Interval) Name() string {
	return "interval"
}

func (i *Interval) Start(parentCtx context.Context, fire func()) error {
	ctx, cancel := context.WithCancel(parentCtx)
	i.cancel = cancel

	i.wg.Add(1)
	go func() {
		defer i.wg.Done()
		ticker := time.NewTicker(i.period)
		defer ticker.Stop()

		fire()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fire()
			}
		}
	}()
	logrus.WithField("interval", i.period).Debug("Starting interval trigger")
	return nil
}

func (i *Interval) Exit() error {
	if i.cancel != nil {
		i.cancel()
	}
	i.wg.Wait()
	return nil
}
