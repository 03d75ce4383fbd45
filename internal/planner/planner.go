// Package planner mocks the remote planner that approves guidance paths.
package planner

import (
	"fmt"
	"time"

	"guidanceops-sim/internal/path"
	"guidanceops-sim/internal/sched"
)

const (
	// DefaultLatency is the simulated round trip of a submission.
	DefaultLatency = 1500 * time.Millisecond
	// DefaultCancelLatency is the simulated round trip of a cancellation.
	DefaultCancelLatency = 500 * time.Millisecond

	// MinPoints is the fewest waypoints an accepted path may have.
	MinPoints = 3
	// SecondsPerPoint scales the estimated execution time.
	SecondsPerPoint = 2

	MessageAccepted = "Path accepted. Executing maneuver."
	MessageTooShort = "Path too short. Please provide at least 3 waypoints."
)

// Decision is the planner's verdict.
type Decision string

const (
	Accepted Decision = "accepted"
	Rejected Decision = "rejected"
)

// Response answers a submission.
type Response struct {
	PathID        string   `json:"path_id"`
	Status        Decision `json:"status"`
	Message       string   `json:"message"`
	EstimatedTime float64  `json:"estimated_time"` // seconds, 0 when rejected
}

// Duration returns EstimatedTime as a duration.
func (r Response) Duration() time.Duration {
	return time.Duration(r.EstimatedTime * float64(time.Second))
}

// CancelResponse answers a cancellation.
type CancelResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Evaluate applies the acceptance rule to s without any latency.
func Evaluate(s path.Suggestion) Response {
	n := len(s.Points)
	if n < MinPoints {
		return Response{PathID: s.ID, Status: Rejected, Message: MessageTooShort}
	}
	return Response{
		PathID:        s.ID,
		Status:        Accepted,
		Message:       MessageAccepted,
		EstimatedTime: float64(n * SecondsPerPoint),
	}
}

// Options tunes the simulated latencies.
type Options struct {
	Latency       time.Duration
	CancelLatency time.Duration
}

// Service answers requests on a loop after a fixed latency. It keeps no
// state between requests.
type Service struct {
	loop *sched.Loop
	opts Options
}

// WithDefaults replaces non-positive latencies with the defaults.
func (o Options) WithDefaults() Options {
	if o.Latency <= 0 {
		o.Latency = DefaultLatency
	}
	if o.CancelLatency <= 0 {
		o.CancelLatency = DefaultCancelLatency
	}
	return o
}

// New creates a planner on loop. Zero latencies take the defaults.
func New(loop *sched.Loop, opts Options) *Service {
	return &Service{loop: loop, opts: opts.WithDefaults()}
}

// Submit evaluates a snapshot of s after the configured latency.
func (p *Service) Submit(s path.Suggestion) *sched.Future[Response] {
	snap := s.Clone()
	return sched.Delay(p.loop, p.opts.Latency, func() Response {
		return Evaluate(snap)
	})
}

// Cancel acknowledges cancellation of id. It does not check that the path
// exists.
func (p *Service) Cancel(id string) *sched.Future[CancelResponse] {
	return sched.Delay(p.loop, p.opts.CancelLatency, func() CancelResponse {
		return CancelResponse{
			Success: true,
			Message: fmt.Sprintf("Path %s cancelled successfully.", id),
		}
	})
}
