package hylafax

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeHfaxd is a minimal scripted hfaxd: one control connection, passive
// data connections on demand.
type fakeHfaxd struct {
	t      *testing.T
	ln     net.Listener
	handle func(sc *serverConn, line string)
}

type serverConn struct {
	t      *testing.T
	conn   net.Conn
	w      *bufio.Writer
	dataLn net.Listener
}

func newFakeHfaxd(t *testing.T, handle func(sc *serverConn, line string)) *fakeHfaxd {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NoError(t, err)

	f := &fakeHfaxd{t: t, ln: ln, handle: handle}
	go f.serve()
	t.Cleanup(func() { ln.Close() })
	return f
}

func (f *fakeHfaxd) addr() string {
	return f.ln.Addr().String()
}

func (f *fakeHfaxd) serve() {
	conn, err := f.ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	sc := &serverConn{t: f.t, conn: conn, w: bufio.NewWriter(conn)}
	sc.reply(220, "fake hfaxd ready")

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "QUIT" {
			sc.reply(221, "Goodbye")
			return
		}
		f.handle(sc, line)
	}
}

func (sc *serverConn) reply(code int, msg string) {
	fmt.Fprintf(sc.w, "%d %s\r\n", code, msg)
	sc.w.Flush()
}

// pasv opens a one-shot data listener and announces it.
func (sc *serverConn) pasv() {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NoError(sc.t, err)
	sc.dataLn = ln

	port := ln.Addr().(*net.TCPAddr).Port
	sc.reply(227, fmt.Sprintf("Entering Passive Mode (127,0,0,1,%d,%d)", port>>8, port&0xff))
}

func (sc *serverConn) acceptData() net.Conn {
	sc.dataLn.(*net.TCPListener).SetDeadline(time.Now().Add(5 * time.Second))
	conn, err := sc.dataLn.Accept()
	assert.NoError(sc.t, err)
	sc.dataLn.Close()
	sc.dataLn = nil
	return conn
}

// sendData serves a listing over the pending data connection.
func (sc *serverConn) sendData(payload string) {
	conn := sc.acceptData()
	io.WriteString(conn, payload)
	conn.Close()
}

// recvData consumes an upload from the pending data connection.
func (sc *serverConn) recvData() string {
	conn := sc.acceptData()
	data, _ := io.ReadAll(conn)
	conn.Close()
	return string(data)
}

func dialFake(t *testing.T, f *fakeHfaxd) *Client {
	conn, err := DialTimeout(f.addr(), 5*time.Second)
	assert.NoError(t, err)
	t.Cleanup(func() { conn.Quit() })
	return conn.(*Client)
}

func TestClientLogin(t *testing.T) {
	assert := assert.New(t)
	f := newFakeHfaxd(t, func(sc *serverConn, line string) {
		switch {
		case line == "USER maxm":
			sc.reply(230, "User maxm logged in.")
		default:
			sc.reply(500, "Unexpected: "+line)
		}
	})

	c := dialFake(t, f)
	assert.NoError(c.Login("maxm"))
}

func TestClientLoginPasswordRequired(t *testing.T) {
	assert := assert.New(t)
	f := newFakeHfaxd(t, func(sc *serverConn, line string) {
		sc.reply(331, "Password required for maxm.")
	})

	c := dialFake(t, f)
	err := c.Login("maxm")
	assert.Error(err)
	assert.Contains(err.Error(), "password")
}

func TestClientJobControl(t *testing.T) {
	assert := assert.New(t)
	var commands []string
	f := newFakeHfaxd(t, func(sc *serverConn, line string) {
		commands = append(commands, line)
		switch line {
		case "JKILL 42", "JSUSP 42", "JSUBM 42", "JWAIT 42":
			sc.reply(200, "Ok")
		case "JKILL 99":
			sc.reply(550, "Job not found")
		default:
			sc.reply(500, "Unexpected: "+line)
		}
	})

	c := dialFake(t, f)
	assert.NoError(c.KillJob("42"))
	assert.NoError(c.SuspendJob("42"))
	assert.NoError(c.ResumeJob("42"))
	assert.NoError(c.WaitJob("42"))

	// Backend message reaches the caller verbatim
	assert.EqualError(c.KillJob("99"), "Job not found")

	// Resume rides on JSUBM of the existing job
	assert.Contains(commands, "JSUBM 42")
}

func TestClientListJobs(t *testing.T) {
	assert := assert.New(t)
	f := newFakeHfaxd(t, func(sc *serverConn, line string) {
		switch {
		case strings.HasPrefix(line, "JOBFMT "):
			sc.reply(200, "Format set")
		case line == "PASV":
			sc.pasv()
		case line == "LIST sendq":
			sc.reply(150, "Opening data connection")
			sc.sendData("42|R|3|1|14:05|maxm|04012345678|faxsend0||Sending\r\n" +
				"43|T|1|2|15:00|maxm|04087654321|faxsend1||Waiting\r\n")
			sc.reply(226, "Transfer complete")
		default:
			sc.reply(500, "Unexpected: "+line)
		}
	})

	c := dialFake(t, f)
	jobs, err := c.ListJobs(SendQueue, DefaultMaxRecords)
	assert.NoError(err)
	assert.Len(jobs, 2)
	assert.Equal("42", jobs[0].JobID)
	assert.Equal("Sending", jobs[0].Status)
	assert.Equal("43", jobs[1].JobID)
	assert.Equal("04087654321", jobs[1].Number)
}

func TestClientListJobsEmpty(t *testing.T) {
	assert := assert.New(t)
	f := newFakeHfaxd(t, func(sc *serverConn, line string) {
		switch {
		case strings.HasPrefix(line, "RCVFMT "):
			sc.reply(200, "Format set")
		case line == "PASV":
			sc.pasv()
		case line == "LIST recvq":
			sc.reply(150, "Opening data connection")
			sc.sendData("")
			sc.reply(226, "Transfer complete")
		default:
			sc.reply(500, "Unexpected: "+line)
		}
	})

	c := dialFake(t, f)
	jobs, err := c.ListJobs(RecvQueue, DefaultMaxRecords)
	assert.NoError(err)
	assert.Empty(jobs)
}

func TestClientSubmitJob(t *testing.T) {
	assert := assert.New(t)

	staged := filepath.Join(t.TempDir(), "a.pdf")
	assert.NoError(os.WriteFile(staged, []byte("%PDF-1.4 fake"), 0644))

	var uploaded string
	var params []string
	nextJob := 42
	f := newFakeHfaxd(t, func(sc *serverConn, line string) {
		switch {
		case line == "TYPE I":
			sc.reply(200, "Type set to I")
		case line == "PASV":
			sc.pasv()
		case line == "STOT":
			sc.reply(150, "FILE: /tmp/doc001.pdf (Opening new data connection)")
			uploaded = sc.recvData()
			sc.reply(226, "Transfer complete")
		case line == "JNEW":
			sc.reply(200, "New job created")
		case strings.HasPrefix(line, "JPARM TOTPAGES"):
			sc.reply(213, "TOTPAGES 3")
		case strings.HasPrefix(line, "JPARM "):
			params = append(params, strings.TrimPrefix(line, "JPARM "))
			sc.reply(213, "Ok")
		case line == "JSUBM":
			sc.reply(200, fmt.Sprintf("Job %d submitted", nextJob))
			nextJob++
		case strings.HasPrefix(line, "JOB "):
			sc.reply(200, "Current job: "+strings.TrimPrefix(line, "JOB "))
		default:
			sc.reply(500, "Unexpected: "+line)
		}
	})

	c := dialFake(t, f)
	result, err := c.SubmitJob([]string{staged}, []string{"+15551234567", "mm@+15559876543#12"},
		DefaultSendOptions())
	assert.NoError(err)
	assert.True(result.Success)
	assert.Equal("43", result.JobID)
	assert.Equal("42", result.GroupID)
	assert.Equal(3, result.TotalPages)

	// The document was uploaded once and referenced by both jobs
	assert.Equal("%PDF-1.4 fake", uploaded)
	assert.Contains(params, "DOCUMENT /tmp/doc001.pdf")
	assert.Contains(params, "DIALSTRING +15551234567")
	assert.Contains(params, "DIALSTRING +15559876543")
	assert.Contains(params, "TOUSER mm")
	assert.Contains(params, "SUBADDR 12")
	assert.Contains(params, "ECM YES")
}

func TestClientSubmitJobRejected(t *testing.T) {
	assert := assert.New(t)

	staged := filepath.Join(t.TempDir(), "a.pdf")
	assert.NoError(os.WriteFile(staged, []byte("x"), 0644))

	f := newFakeHfaxd(t, func(sc *serverConn, line string) {
		switch {
		case line == "TYPE I":
			sc.reply(200, "Type set to I")
		case line == "PASV":
			sc.pasv()
		case line == "STOT":
			sc.reply(150, "FILE: /tmp/doc002.pdf (Opening new data connection)")
			sc.recvData()
			sc.reply(226, "Transfer complete")
		case line == "JNEW":
			sc.reply(503, "Job limit exceeded")
		default:
			sc.reply(500, "Unexpected: "+line)
		}
	})

	c := dialFake(t, f)
	result, err := c.SubmitJob([]string{staged}, []string{"+15551234567"}, DefaultSendOptions())
	assert.EqualError(err, "Job limit exceeded")
	assert.False(result.Success)
}

func TestParsePasv(t *testing.T) {
	assert := assert.New(t)

	addr, err := parsePasv("Entering Passive Mode (127,0,0,1,216,64)")
	assert.NoError(err)
	assert.Equal("127.0.0.1:55360", addr)

	_, err = parsePasv("no address here")
	assert.Error(err)

	_, err = parsePasv("(1,2,3)")
	assert.Error(err)
}

func TestParseDestination(t *testing.T) {
	assert := assert.New(t)

	recipient, number, subaddr := parseDestination("+15551234567")
	assert.Equal("", recipient)
	assert.Equal("+15551234567", number)
	assert.Equal("", subaddr)

	recipient, number, subaddr = parseDestination("Max Mustermann@04012345678#42")
	assert.Equal("Max Mustermann", recipient)
	assert.Equal("04012345678", number)
	assert.Equal("42", subaddr)
}

func TestParseJobID(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("42", parseJobID("Job 42 submitted"))
	assert.Equal("7", parseJobID("Job 7."))
	assert.Equal("", parseJobID("no id here"))
}

func TestParseStoredName(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("/tmp/doc001.pdf",
		parseStoredName("FILE: /tmp/doc001.pdf (Opening new data connection)"))
	assert.Equal("", parseStoredName("Opening data connection"))
}
