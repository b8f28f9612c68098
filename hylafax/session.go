// This file is part of the GOfax.Web project - https://github.com/gonicus/gofaxweb
// Copyright (C) 2024 GONICUS GmbH, Germany - http://www.gonicus.de
//
// This program is free software; you can redistribute it and/or
// modify it under the terms of the GNU General Public License
// as published by the Free Software Foundation; version 2
// of the License.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program; if not, write to the Free Software
// Foundation, Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package hylafax

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrNotConnected is returned when an operation requires an
	// established connection.
	ErrNotConnected = errors.New("hylafax: not connected")
	// ErrNotAuthenticated is returned when an operation requires a
	// completed login.
	ErrNotAuthenticated = errors.New("hylafax: not logged in")
)

// DefaultMaxRecords caps how many queue entries one query retrieves.
const DefaultMaxRecords = 1000

// SubmissionResult reports the outcome of one fax submission.
type SubmissionResult struct {
	Success      bool   `json:"success"`
	JobID        string `json:"job_id"`
	GroupID      string `json:"group_id"`
	TotalPages   int    `json:"total_pages"`
	ErrorMessage string `json:"error"`
}

// Conn is one control connection to an hfaxd server, already past the
// protocol greeting.
type Conn interface {
	Login(username string) error
	SubmitJob(files, destinations []string, opts SendOptions) (SubmissionResult, error)
	ListJobs(queue QueueType, max int) ([]JobRecord, error)
	KillJob(jobID string) error
	SuspendJob(jobID string) error
	ResumeJob(jobID string) error
	WaitJob(jobID string) error
	Quit() error
}

// Dialer establishes a Conn to the given host.
type Dialer func(host string) (Conn, error)

// Session is one request-scoped connection to the fax server. Operations
// are strictly sequential; every request opens its own Session and must
// arrange teardown with defer Close. The one sanctioned cross-goroutine
// interaction is calling Close to abort a blocked Wait, which is the only
// cancellation mechanism Wait has.
//
//	sess := hylafax.NewSession(host, hylafax.Dial)
//	defer sess.Close()
type Session struct {
	host string
	dial Dialer

	mu            sync.Mutex
	conn          Conn
	connected     bool
	authenticated bool

	// MaxRecords bounds QueryJobs results. Zero means DefaultMaxRecords.
	MaxRecords int
}

// NewSession creates an unconnected session for the given host.
func NewSession(host string, dial Dialer) *Session {
	return &Session{
		host: host,
		dial: dial,
	}
}

// Host returns the configured server host.
func (s *Session) Host() string {
	return s.host
}

// Connected reports whether the control connection is established.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Authenticated reports whether login has completed.
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

// Connect establishes the control connection. Calling it again after a
// failure retries cleanly; on an already connected session it is a no-op.
func (s *Session) Connect() error {
	s.mu.Lock()
	if s.connected {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	conn, err := s.dial(s.host)
	if err != nil {
		return fmt.Errorf("connect %s: %w", s.host, err)
	}

	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.mu.Unlock()
	return nil
}

// Login authenticates the connection. An empty username requests the
// server-side default identity. Calling Login before Connect is an
// ordering error and produces no traffic.
func (s *Session) Login(username string) error {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return ErrNotConnected
	}
	if s.authenticated {
		s.mu.Unlock()
		return nil
	}
	conn := s.conn
	s.mu.Unlock()

	if err := conn.Login(username); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	s.mu.Lock()
	// The session may have been torn down while the exchange was in
	// flight; authenticated must never outlive the connection.
	if s.conn == conn {
		s.authenticated = true
	}
	s.mu.Unlock()
	return nil
}

// Disconnect closes the connection and clears all session state. It is
// idempotent; on an unconnected session it does nothing. Quit happens
// outside the lock so teardown can abort an operation blocked on the wire.
func (s *Session) Disconnect() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.connected = false
	s.authenticated = false
	s.mu.Unlock()

	if conn != nil {
		conn.Quit()
	}
}

// Close tears the session down. Safe on every exit path.
func (s *Session) Close() {
	s.Disconnect()
}

// Submit sends the given staged documents to all destinations as one
// logical submission. Validation failures and backend rejections are
// reported through the result, never as an error value.
func (s *Session) Submit(files, destinations []string, opts SendOptions) SubmissionResult {
	s.mu.Lock()
	authenticated, conn := s.authenticated, s.conn
	s.mu.Unlock()

	if !authenticated {
		return SubmissionResult{ErrorMessage: "not connected or logged in"}
	}
	if len(files) == 0 {
		return SubmissionResult{ErrorMessage: "no files to send"}
	}
	if len(destinations) == 0 {
		return SubmissionResult{ErrorMessage: "no destinations specified"}
	}
	for _, f := range files {
		if f == "" {
			return SubmissionResult{ErrorMessage: "empty file path"}
		}
	}
	for _, d := range destinations {
		if d == "" {
			return SubmissionResult{ErrorMessage: "empty destination"}
		}
	}

	result, err := conn.SubmitJob(files, destinations, opts)
	if err != nil {
		return SubmissionResult{ErrorMessage: err.Error()}
	}
	return result
}

// QueryJobs lists the jobs of one queue, bounded by MaxRecords. An empty
// queue yields an empty slice; failures are explicit errors.
func (s *Session) QueryJobs(queue QueueType) ([]JobRecord, error) {
	s.mu.Lock()
	authenticated, conn := s.authenticated, s.conn
	s.mu.Unlock()

	if !authenticated {
		return nil, ErrNotAuthenticated
	}
	max := s.MaxRecords
	if max <= 0 {
		max = DefaultMaxRecords
	}
	return conn.ListJobs(queue, max)
}

// Kill removes a job from the scheduling queues.
func (s *Session) Kill(jobID string) error {
	return s.control(jobID, Conn.KillJob)
}

// Suspend takes a job out of scheduling without removing it.
func (s *Session) Suspend(jobID string) error {
	return s.control(jobID, Conn.SuspendJob)
}

// Resume puts a suspended job back into scheduling.
func (s *Session) Resume(jobID string) error {
	return s.control(jobID, Conn.ResumeJob)
}

// Wait blocks until the server reports the job done or failed. The only
// way to cancel is tearing the session down.
func (s *Session) Wait(jobID string) error {
	return s.control(jobID, Conn.WaitJob)
}

func (s *Session) control(jobID string, op func(Conn, string) error) error {
	s.mu.Lock()
	authenticated, conn := s.authenticated, s.conn
	s.mu.Unlock()

	if !authenticated {
		return ErrNotAuthenticated
	}
	if jobID == "" {
		return errors.New("hylafax: empty job id")
	}
	return op(conn, jobID)
}
