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

package httpd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gonicus/gofaxweb/gofaxlib/logger"
	"github.com/gonicus/gofaxweb/hylafax"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// SessionFactory produces a fresh, unconnected protocol session. Every
// request gets its own session; none are pooled or shared.
type SessionFactory func() *hylafax.Session

// Server is the HTTP transport adapter in front of the fax protocol.
type Server struct {
	echo       *echo.Echo
	newSession SessionFactory
	store      *Store
	username   string
}

// NewServer wires up all routes. maxUploadMB bounds the request body via
// middleware, so oversized uploads are rejected before any staging.
func NewServer(newSession SessionFactory, store *Store, username string, maxUploadMB uint) *Server {
	s := &Server{
		echo:       echo.New(),
		newSession: newSession,
		store:      store,
		username:   username,
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.HTTPErrorHandler = errorHandler
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.BodyLimit(fmt.Sprintf("%dM", maxUploadMB)))

	s.echo.GET("/api/health", s.handleHealth)
	s.echo.POST("/api/fax/send", s.handleSend)
	s.echo.GET("/api/fax/status", s.handleStatus)
	s.echo.GET("/api/fax/job/:id", s.handleJobInfo)
	s.echo.POST("/api/fax/job/:id/kill", s.handleControl(jobKill))
	s.echo.POST("/api/fax/job/:id/suspend", s.handleControl(jobSuspend))
	s.echo.POST("/api/fax/job/:id/resume", s.handleControl(jobResume))
	s.echo.POST("/api/fax/job/:id/wait", s.handleWait)

	return s
}

// Handler exposes the route tree for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until Shutdown or a listener error.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown stops accepting connections and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// withSession opens a session, performs connect and login and guarantees
// teardown. Connectivity failures short-circuit with 503 before fn runs.
func (s *Server) withSession(c echo.Context, fn func(sess *hylafax.Session) error) error {
	sess := s.newSession()
	defer sess.Close()

	if err := sess.Connect(); err != nil {
		return fail(c, http.StatusServiceUnavailable, "Connection failed: "+err.Error())
	}
	if err := sess.Login(s.username); err != nil {
		return fail(c, http.StatusServiceUnavailable, "Login failed: "+err.Error())
	}
	return fn(sess)
}

func (s *Server) handleHealth(c echo.Context) error {
	sess := s.newSession()
	defer sess.Close()

	if err := sess.Connect(); err != nil {
		return respond(c, http.StatusServiceUnavailable, false,
			map[string]string{"status": "unhealthy"},
			"Cannot connect to fax server: "+err.Error())
	}
	return ok(c, map[string]string{"status": "healthy"}, "Fax server is reachable")
}

func (s *Server) handleSend(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil || len(form.File["files"]) == 0 {
		return fail(c, http.StatusBadRequest, "No files provided")
	}
	uploads := form.File["files"]

	var destinations []string
	if err := json.Unmarshal([]byte(formValue(c, "destinations", "[]")), &destinations); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid destinations format")
	}
	if len(destinations) == 0 {
		return fail(c, http.StatusBadRequest, "No destinations specified")
	}

	var rawOptions map[string]interface{}
	if err := json.Unmarshal([]byte(formValue(c, "options", "{}")), &rawOptions); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid options format")
	}

	var staged []string
	defer func() {
		for _, path := range staged {
			s.store.Release(path)
		}
	}()
	for _, upload := range uploads {
		if upload.Filename == "" || !s.store.Allowed(upload.Filename) {
			continue
		}
		src, err := upload.Open()
		if err != nil {
			return err
		}
		path, err := s.store.Stage(upload.Filename, src)
		src.Close()
		if err != nil {
			return err
		}
		staged = append(staged, path)
	}
	if len(staged) == 0 {
		return fail(c, http.StatusBadRequest, "No valid files uploaded")
	}

	return s.withSession(c, func(sess *hylafax.Session) error {
		result := sess.Submit(staged, destinations, hylafax.MarshalOptions(rawOptions))
		if !result.Success {
			return fail(c, http.StatusBadRequest, result.ErrorMessage)
		}
		return ok(c, map[string]interface{}{
			"job_id":      result.JobID,
			"group_id":    result.GroupID,
			"total_pages": result.TotalPages,
		}, "Fax submitted successfully")
	})
}

func (s *Server) handleStatus(c echo.Context) error {
	selector := c.QueryParam("queue")
	if selector == "" {
		selector = "send"
	}
	queue, err := hylafax.ParseQueueType(selector)
	if err != nil {
		return fail(c, http.StatusBadRequest, "Invalid queue type")
	}

	return s.withSession(c, func(sess *hylafax.Session) error {
		jobs, err := sess.QueryJobs(queue)
		if err != nil {
			return err
		}
		return ok(c, map[string]interface{}{
			"queue": queue.String(),
			"jobs":  jobs,
			"count": len(jobs),
		}, fmt.Sprintf("Retrieved %d jobs from %s queue", len(jobs), queue))
	})
}

// handleJobInfo searches the send, done and archive queues for one job id.
func (s *Server) handleJobInfo(c echo.Context) error {
	jobID := c.Param("id")

	return s.withSession(c, func(sess *hylafax.Session) error {
		for _, queue := range []hylafax.QueueType{hylafax.SendQueue, hylafax.DoneQueue, hylafax.ArchiveQueue} {
			jobs, err := sess.QueryJobs(queue)
			if err != nil {
				return err
			}
			for _, job := range jobs {
				if job.JobID == jobID {
					return ok(c, map[string]interface{}{
						"job":   job,
						"queue": queue.String(),
					}, "Job found")
				}
			}
		}
		return fail(c, http.StatusNotFound, "Job not found")
	})
}

type controlOp int

const (
	jobKill controlOp = iota
	jobSuspend
	jobResume
)

func (op controlOp) run(sess *hylafax.Session, jobID string) error {
	switch op {
	case jobKill:
		return sess.Kill(jobID)
	case jobSuspend:
		return sess.Suspend(jobID)
	case jobResume:
		return sess.Resume(jobID)
	}
	return fmt.Errorf("unknown control op %d", op)
}

func (op controlOp) doneMessage() string {
	switch op {
	case jobKill:
		return "Job killed successfully"
	case jobSuspend:
		return "Job suspended successfully"
	case jobResume:
		return "Job resumed successfully"
	}
	return ""
}

func (s *Server) handleControl(op controlOp) echo.HandlerFunc {
	return func(c echo.Context) error {
		jobID := c.Param("id")
		return s.withSession(c, func(sess *hylafax.Session) error {
			if err := op.run(sess, jobID); err != nil {
				return fail(c, http.StatusBadRequest, err.Error())
			}
			return ok(c, map[string]string{"job_id": jobID}, op.doneMessage())
		})
	}
}

// handleWait blocks until the job completes. When the caller goes away
// the session is torn down, which aborts the pending wait on the wire.
func (s *Server) handleWait(c echo.Context) error {
	jobID := c.Param("id")
	return s.withSession(c, func(sess *hylafax.Session) error {
		done := make(chan error, 1)
		go func() {
			done <- sess.Wait(jobID)
		}()

		select {
		case err := <-done:
			if err != nil {
				return fail(c, http.StatusBadRequest, err.Error())
			}
			return ok(c, map[string]string{"job_id": jobID}, "Job completed successfully")
		case <-c.Request().Context().Done():
			sess.Close()
			<-done
			logger.Logger.Printf("httpd: wait for job %s abandoned by client", jobID)
			return nil
		}
	})
}

func formValue(c echo.Context, name, fallback string) string {
	if v := c.FormValue(name); v != "" {
		return v
	}
	return fallback
}
