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
	"io"
	"net"
	"net/textproto"
	"os"
	"os/user"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultPort is the hfaxd client protocol port
	DefaultPort = 4559
	// DefaultTimeout applies to every wire exchange except JWAIT
	DefaultTimeout = 30 * time.Second
)

// Client speaks the hfaxd client protocol, an FTP-959 dialect with
// job-control verbs. One Client is one control connection; data transfers
// (document upload, queue listings) use short-lived passive connections.
type Client struct {
	conn    net.Conn
	text    *textproto.Conn
	timeout time.Duration
}

// Dial connects to an hfaxd server and consumes the greeting. A host
// without a port gets the protocol default.
func Dial(host string) (Conn, error) {
	return DialTimeout(host, DefaultTimeout)
}

// DialTimeout is Dial with an explicit exchange timeout.
func DialTimeout(host string, timeout time.Duration) (Conn, error) {
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, strconv.Itoa(DefaultPort))
	}
	conn, err := net.DialTimeout("tcp", host, timeout)
	if err != nil {
		return nil, err
	}

	c := &Client{
		conn:    conn,
		text:    textproto.NewConn(conn),
		timeout: timeout,
	}
	conn.SetDeadline(time.Now().Add(timeout))
	if _, _, err := c.text.ReadResponse(2); err != nil {
		conn.Close()
		return nil, replyError(err)
	}
	return c, nil
}

// Login authenticates with USER. An empty username falls back to FAXUSER
// from the environment, then the invoking system user. Servers demanding
// a password are rejected; this gateway only does opaque username logins.
func (c *Client) Login(username string) error {
	if username == "" {
		username = os.Getenv("FAXUSER")
	}
	if username == "" {
		if u, err := user.Current(); err == nil {
			username = u.Username
		}
	}
	if username == "" {
		return errors.New("no username available for login")
	}

	code, msg, err := c.cmd(0, "USER %s", username)
	if err != nil {
		return err
	}
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == 331:
		return fmt.Errorf("server requires a password for user %s", username)
	default:
		return errors.New(strings.TrimSpace(msg))
	}
}

// Quit sends QUIT and closes the control connection.
func (c *Client) Quit() error {
	c.cmd(2, "QUIT")
	return c.text.Close()
}

// KillJob removes the job from the scheduling queues.
func (c *Client) KillJob(jobID string) error {
	_, _, err := c.cmd(2, "JKILL %s", jobID)
	return err
}

// SuspendJob stops scheduling of the job without deleting it.
func (c *Client) SuspendJob(jobID string) error {
	_, _, err := c.cmd(2, "JSUSP %s", jobID)
	return err
}

// ResumeJob resubmits a suspended job. hfaxd has no separate resume verb;
// JSUBM of an existing job id puts it back into scheduling.
func (c *Client) ResumeJob(jobID string) error {
	_, _, err := c.cmd(2, "JSUBM %s", jobID)
	return err
}

// WaitJob blocks until the server reports the job done or failed. No
// read deadline applies; abandoning the connection is the only way out.
func (c *Client) WaitJob(jobID string) error {
	c.conn.SetDeadline(time.Time{})
	if err := c.text.PrintfLine("JWAIT %s", jobID); err != nil {
		return err
	}
	_, _, err := c.text.ReadResponse(2)
	return replyError(err)
}

// ListJobs retrieves up to max entries of the given queue.
func (c *Client) ListJobs(queue QueueType, max int) ([]JobRecord, error) {
	spec := queue.spec()
	if _, _, err := c.cmd(2, "%s \"%s\"", spec.fmtCmd, spec.format); err != nil {
		return nil, err
	}

	data, err := c.retrieve("LIST %s", spec.dir)
	if err != nil {
		return nil, err
	}

	lines := strings.Split(string(data), "\n")
	return decodeListing(queue, lines, max), nil
}

// SubmitJob stages all documents once, then creates one job per
// destination referencing them. Multi-destination submissions share a
// group id, which hfaxd derives from the first job of the batch.
func (c *Client) SubmitJob(files, destinations []string, opts SendOptions) (SubmissionResult, error) {
	var result SubmissionResult

	docs := make([]string, 0, len(files))
	for _, file := range files {
		doc, err := c.storeDocument(file)
		if err != nil {
			return result, fmt.Errorf("store %s: %w", file, err)
		}
		docs = append(docs, doc)
	}

	jobIDs := make([]string, 0, len(destinations))
	for _, dest := range destinations {
		id, err := c.submitOne(dest, docs, opts)
		if err != nil {
			return result, err
		}
		jobIDs = append(jobIDs, id)
	}

	result.Success = true
	result.JobID = jobIDs[len(jobIDs)-1]
	if len(jobIDs) > 1 {
		result.GroupID = jobIDs[0]
	}
	result.TotalPages = c.queryTotalPages(result.JobID)
	return result, nil
}

// submitOne creates and submits a single job.
func (c *Client) submitOne(dest string, docs []string, opts SendOptions) (string, error) {
	if _, _, err := c.cmd(2, "JNEW"); err != nil {
		return "", err
	}

	recipient, number, subaddr := parseDestination(dest)
	params := opts.jobParams()
	params.Set("DIALSTRING", number)
	params.Set("EXTERNAL", number)
	if recipient != "" {
		params.Set("TOUSER", recipient)
	}
	if subaddr != "" {
		params.Set("SUBADDR", subaddr)
	}
	for _, doc := range docs {
		params.Add("DOCUMENT", doc)
	}

	err := params.Each(func(tag, value string) error {
		_, _, err := c.cmd(2, "JPARM %s %s", tag, quoteIfNeeded(value))
		return err
	})
	if err != nil {
		return "", err
	}

	_, msg, err := c.cmd(2, "JSUBM")
	if err != nil {
		return "", err
	}
	id := parseJobID(msg)
	if id == "" {
		return "", fmt.Errorf("no job id in submit reply %q", msg)
	}
	return id, nil
}

// queryTotalPages reads the page count back for a submitted job. A
// missing or unparsable reply leaves the count at zero; the submission
// already succeeded at this point.
func (c *Client) queryTotalPages(jobID string) int {
	if _, _, err := c.cmd(2, "JOB %s", jobID); err != nil {
		return 0
	}
	_, msg, err := c.cmd(2, "JPARM TOTPAGES")
	if err != nil {
		return 0
	}
	fields := strings.Fields(msg)
	if len(fields) == 0 {
		return 0
	}
	pages, err := strconv.Atoi(fields[len(fields)-1])
	if err != nil {
		return 0
	}
	return pages
}

// storeDocument uploads one staged file into the server's temporary
// document store and returns the server-side document name.
func (c *Client) storeDocument(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, _, err := c.cmd(2, "TYPE I"); err != nil {
		return "", err
	}

	dconn, err := c.openDataConn()
	if err != nil {
		return "", err
	}
	defer dconn.Close()

	if err := c.text.PrintfLine("STOT"); err != nil {
		return "", err
	}
	c.conn.SetDeadline(time.Now().Add(c.timeout))
	_, prelim, err := c.text.ReadResponse(1)
	if err != nil {
		return "", replyError(err)
	}

	if _, err := io.Copy(dconn, f); err != nil {
		return "", err
	}
	dconn.Close()

	_, final, err := c.text.ReadResponse(2)
	if err != nil {
		return "", replyError(err)
	}

	doc := parseStoredName(prelim)
	if doc == "" {
		doc = parseStoredName(final)
	}
	if doc == "" {
		return "", fmt.Errorf("no document name in store reply %q", prelim)
	}
	return doc, nil
}

// retrieve runs a data-transfer command and returns the transferred bytes.
func (c *Client) retrieve(format string, args ...interface{}) ([]byte, error) {
	dconn, err := c.openDataConn()
	if err != nil {
		return nil, err
	}
	defer dconn.Close()

	if err := c.text.PrintfLine(format, args...); err != nil {
		return nil, err
	}
	c.conn.SetDeadline(time.Now().Add(c.timeout))
	if _, _, err := c.text.ReadResponse(1); err != nil {
		return nil, replyError(err)
	}

	dconn.SetDeadline(time.Now().Add(c.timeout))
	data, err := io.ReadAll(dconn)
	if err != nil {
		return nil, err
	}
	dconn.Close()

	if _, _, err := c.text.ReadResponse(2); err != nil {
		return nil, replyError(err)
	}
	return data, nil
}

// openDataConn enters passive mode and dials the announced data port.
func (c *Client) openDataConn() (net.Conn, error) {
	_, msg, err := c.cmd(227, "PASV")
	if err != nil {
		return nil, err
	}
	addr, err := parsePasv(msg)
	if err != nil {
		return nil, err
	}
	return net.DialTimeout("tcp", addr, c.timeout)
}

// cmd sends one control command and reads its reply. expect follows
// textproto conventions (0 any, 2 any 2xx, 227 exact).
func (c *Client) cmd(expect int, format string, args ...interface{}) (int, string, error) {
	c.conn.SetDeadline(time.Now().Add(c.timeout))
	if err := c.text.PrintfLine(format, args...); err != nil {
		return 0, "", err
	}
	code, msg, err := c.text.ReadResponse(expect)
	return code, msg, replyError(err)
}

// replyError strips textproto wrapping so backend messages reach callers
// verbatim.
func replyError(err error) error {
	var te *textproto.Error
	if errors.As(err, &te) {
		return errors.New(strings.TrimSpace(te.Msg))
	}
	return err
}

// parsePasv extracts the data port from a 227 reply:
// "Entering Passive Mode (127,0,0,1,216,64)".
func parsePasv(msg string) (string, error) {
	open := strings.IndexByte(msg, '(')
	end := strings.IndexByte(msg, ')')
	if open < 0 || end < open {
		return "", fmt.Errorf("malformed passive reply %q", msg)
	}
	parts := strings.Split(msg[open+1:end], ",")
	if len(parts) != 6 {
		return "", fmt.Errorf("malformed passive reply %q", msg)
	}
	nums := make([]int, 6)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return "", fmt.Errorf("malformed passive reply %q", msg)
		}
		nums[i] = n
	}
	host := fmt.Sprintf("%d.%d.%d.%d", nums[0], nums[1], nums[2], nums[3])
	port := nums[4]<<8 | nums[5]
	return net.JoinHostPort(host, strconv.Itoa(port)), nil
}

// parseStoredName finds the server-side document name in a STOT reply:
// "FILE: /tmp/doc123.ps (Opening new data connection)".
func parseStoredName(msg string) string {
	fields := strings.Fields(msg)
	for i, tok := range fields {
		if strings.EqualFold(tok, "FILE:") && i+1 < len(fields) {
			return fields[i+1]
		}
	}
	return ""
}

// parseJobID finds the job number in a JSUBM reply like "Job 42 submitted".
func parseJobID(msg string) string {
	for _, tok := range strings.Fields(msg) {
		tok = strings.Trim(tok, ".,;")
		if tok == "" {
			continue
		}
		if _, err := strconv.Atoi(tok); err == nil {
			return tok
		}
	}
	return ""
}

// parseDestination splits the sendfax destination form
// recipient@number#subaddress into its parts.
func parseDestination(dest string) (recipient, number, subaddr string) {
	number = dest
	if at := strings.IndexByte(number, '@'); at >= 0 {
		recipient = number[:at]
		number = number[at+1:]
	}
	if hash := strings.IndexByte(number, '#'); hash >= 0 {
		subaddr = number[hash+1:]
		number = number[:hash]
	}
	return recipient, number, subaddr
}

// quoteIfNeeded wraps values containing whitespace for JPARM.
func quoteIfNeeded(value string) string {
	if strings.ContainsAny(value, " \t") {
		return "\"" + value + "\""
	}
	return value
}
