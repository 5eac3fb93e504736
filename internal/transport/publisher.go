// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"fmt"
	"sync"
	"time"

	applog "ampmeter/internal/log"
)

// Publisher samples a LevelReader at a fixed interval and sends a LevelFrame
// to every transport. It runs in its own goroutine between Start and Stop.
type Publisher struct {
	reader     LevelReader
	transports []Transport
	interval   time.Duration
	log        *applog.Logger

	mu       sync.Mutex // Protects ticker and doneChan during Start/Stop.
	ticker   *time.Ticker
	doneChan chan struct{}
	wg       sync.WaitGroup

	seq uint32 // Only touched by the publishing goroutine.
}

// NewPublisher validates its arguments. An interval <= 0 defaults to 16ms.
func NewPublisher(interval time.Duration, reader LevelReader, transports ...Transport) (*Publisher, error) {
	if reader == nil {
		return nil, fmt.Errorf("publisher: level reader cannot be nil")
	}
	if len(transports) == 0 {
		return nil, fmt.Errorf("publisher: at least one transport is required")
	}

	log := applog.New("publisher")
	if interval <= 0 {
		interval = 16 * time.Millisecond
		log.Warnf("invalid interval, defaulting to %s", interval)
	}

	return &Publisher{
		reader:     reader,
		transports: transports,
		interval:   interval,
		log:        log,
	}, nil
}

// Start begins publishing. Calling Start while running is a no-op.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		p.log.Warnf("Start called but already running")
		return
	}
	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	ticker, done := p.ticker, p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.log.Infof("publishing every %s to %d transport(s)", p.interval, len(p.transports))
		for {
			select {
			case now := <-ticker.C:
				p.publish(now)
			case <-done:
				return
			}
		}
	}()
}

// Stop halts publishing and waits for the goroutine. Safe to call repeatedly.
func (p *Publisher) Stop() {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return
	}
	close(p.doneChan)
	p.ticker.Stop()
	p.ticker = nil
	p.mu.Unlock()

	p.wg.Wait()
	p.log.Debugf("stopped after %d frames", p.seq)
}

func (p *Publisher) publish(now time.Time) {
	p.seq++
	frame := LevelFrame{
		Seq:       p.seq,
		Timestamp: now,
		Level:     p.reader.Level(),
		Smoothing: p.reader.Smoothing(),
	}

	for _, t := range p.transports {
		if err := t.Send(frame); err != nil {
			p.log.Debugf("frame %d: %v", frame.Seq, err)
		}
	}
}

// Close stops publishing and closes every transport.
func (p *Publisher) Close() error {
	p.Stop()

	var errs []error
	for _, t := range p.transports {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
