package ingest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/bryanwahyu/ayursense/internal/application"
	"github.com/bryanwahyu/ayursense/internal/domain/reading"
)

var (
	// ErrDeviceOpen means the device connection could not be opened. It is
	// fatal to the loop and distinct from "no data yet".
	ErrDeviceOpen = errors.New("device open failed")
	// ErrConnectionLost means an open stream ended or failed.
	ErrConnectionLost = errors.New("device connection lost")
)

const maxLineBytes = 64 * 1024

// Opener opens the device stream.
type Opener interface {
	Open() (io.ReadCloser, error)
	String() string
}

// State of the ingestion loop as seen by health checks.
type State string

const (
	StateStarting  State = "starting"
	StateStreaming State = "streaming"
	StateFailed    State = "failed"
	StateStopped   State = "stopped"
)

// Service reads newline-delimited text from one device and keeps the
// latest parsed value of a single channel in the cache.
type Service struct {
	Opener    Opener
	Cache     reading.Cache
	Channel   reading.Channel
	Clock     application.Clock
	Publisher reading.Publisher // optional
	Metrics   *Metrics
	Logger    *slog.Logger

	once  sync.Once
	mu    sync.RWMutex
	state State
	err   error
}

// Run opens the device and blocks until ctx is cancelled or the stream
// ends. An open failure returns ErrDeviceOpen; a dropped stream returns
// ErrConnectionLost. Individual unparsable lines never stop the loop.
func (s *Service) Run(ctx context.Context) error {
	log := s.logger().With("device", s.Opener.String(), "channel", s.Channel)

	s.setState(StateStarting, nil)
	port, err := s.Opener.Open()
	if err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrDeviceOpen, s.Opener, err)
		s.setState(StateFailed, err)
		return err
	}
	defer port.Close()

	// Closing the port is the only way to unblock a pending read.
	stop := context.AfterFunc(ctx, func() { _ = port.Close() })
	defer stop()

	s.setState(StateStreaming, nil)
	log.Info("device stream opened")

	br := bufio.NewReaderSize(port, 4096)
	var cause error
	for cause == nil {
		var line string
		var tooLong bool
		line, tooLong, cause = readLine(br)
		switch {
		case tooLong:
			s.dropLine(log)
		case line != "":
			s.HandleLine(line)
		}
	}

	if ctx.Err() != nil {
		s.setState(StateStopped, nil)
		log.Info("device stream closed")
		return ctx.Err()
	}
	err = fmt.Errorf("%w: %w", ErrConnectionLost, cause)
	s.setState(StateFailed, err)
	return err
}

// HandleLine parses one raw line and applies it to the cache. It reports
// whether the cache was updated.
func (s *Service) HandleLine(raw string) bool {
	s.initMetrics()

	line := strings.TrimSpace(raw)
	v, ok := ParseLine(line)
	if !ok {
		s.Metrics.lines.WithLabelValues("nomatch").Inc()
		s.logger().Debug("line without reading", "line", line)
		return false
	}

	at := s.Clock.Now()
	if !s.Cache.Set(s.Channel, v, at) {
		s.Metrics.lines.WithLabelValues("stale").Inc()
		return false
	}
	s.Metrics.lines.WithLabelValues("parsed").Inc()
	s.Metrics.lastReading.Set(float64(at.UnixNano()) / 1e9)

	if s.Publisher != nil {
		r := reading.Reading{Channel: s.Channel, Value: v, ObservedAt: at}
		if err := s.Publisher.Publish(r); err != nil {
			s.logger().Warn("mirror publish failed", "error", err)
		}
	}
	return true
}

// dropLine accounts for a line longer than maxLineBytes.
func (s *Service) dropLine(log *slog.Logger) {
	s.initMetrics()
	s.Metrics.lines.WithLabelValues("nomatch").Inc()
	log.Debug("line too long, discarded", "limit", maxLineBytes)
}

func (s *Service) initMetrics() {
	s.once.Do(func() {
		if s.Metrics == nil {
			s.Metrics = NewMetrics(nil)
		}
	})
}

// readLine returns the next line including its delimiter. A line longer than
// maxLineBytes is read to its end and returned empty with tooLong set. err is
// the read error that ended the line, io.EOF at the end of the stream.
func readLine(r *bufio.Reader) (line string, tooLong bool, err error) {
	var buf []byte
	for {
		chunk, err := r.ReadSlice('\n')
		if !tooLong {
			if len(buf)+len(chunk) > maxLineBytes {
				tooLong, buf = true, nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return string(buf), tooLong, err
	}
}

// Status returns the loop state and the error that caused StateFailed.
func (s *Service) Status() (State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == "" {
		return StateStarting, nil
	}
	return s.state, s.err
}

// Check implements middleware.HealthChecker.
func (s *Service) Check(context.Context) error {
	state, err := s.Status()
	switch state {
	case StateStreaming:
		return nil
	case StateFailed:
		return err
	default:
		return fmt.Errorf("device %s", state)
	}
}

func (s *Service) setState(st State, err error) {
	s.mu.Lock()
	s.state, s.err = st, err
	s.mu.Unlock()
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
