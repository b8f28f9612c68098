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
	"fmt"
	"strings"
)

// QueueType selects one of the six job populations hfaxd maintains.
type QueueType int

const (
	// SendQueue contains jobs waiting for or in transmission
	SendQueue QueueType = iota
	// DoneQueue contains completed jobs
	DoneQueue
	// RecvQueue contains received faxes
	RecvQueue
	// ArchiveQueue contains archived jobs
	ArchiveQueue
	// DocQueue contains queued documents
	DocQueue
	// ServerStatus lists modem/server status records
	ServerStatus
)

var queueNames = map[string]QueueType{
	"send":     SendQueue,
	"done":     DoneQueue,
	"recv":     RecvQueue,
	"archive":  ArchiveQueue,
	"document": DocQueue,
	"server":   ServerStatus,
}

// ParseQueueType maps a queue selector string to its QueueType.
func ParseQueueType(name string) (QueueType, error) {
	if q, ok := queueNames[strings.ToLower(name)]; ok {
		return q, nil
	}
	return 0, fmt.Errorf("unknown queue type %q", name)
}

func (q QueueType) String() string {
	switch q {
	case SendQueue:
		return "send"
	case DoneQueue:
		return "done"
	case RecvQueue:
		return "recv"
	case ArchiveQueue:
		return "archive"
	case DocQueue:
		return "document"
	case ServerStatus:
		return "server"
	}
	return fmt.Sprintf("QueueType(%d)", int(q))
}

// JobRecord is the normalized shape of one queue entry. All values are the
// human-readable strings hfaxd reports; fields a queue does not provide
// stay empty.
type JobRecord struct {
	JobID      string `json:"job_id"`
	State      string `json:"state"`
	Pages      string `json:"pages"`
	Dials      string `json:"dials"`
	TimeToSend string `json:"tts"`
	Sender     string `json:"sender"`
	Number     string `json:"number"`
	Modem      string `json:"modem"`
	Tag        string `json:"tag"`
	Status     string `json:"status"`
	FileName   string `json:"file_name"`
	Received   string `json:"received"`
}

// Per-queue listing parameters. The format strings are pipe-delimited so
// decoding does not depend on column widths; hfaxd fills one field per
// format escape.
type queueSpec struct {
	dir    string
	fmtCmd string
	format string
	decode func(fields []string) JobRecord
}

// spec returns the listing parameters for the queue type. The switch is
// exhaustive; adding a queue type without a spec panics at first use.
func (q QueueType) spec() queueSpec {
	switch q {
	case SendQueue:
		return queueSpec{"sendq", "JOBFMT", jobFormat, decodeJobFields}
	case DoneQueue:
		return queueSpec{"doneq", "JOBFMT", jobFormat, decodeJobFields}
	case ArchiveQueue:
		return queueSpec{"archive", "JOBFMT", jobFormat, decodeJobFields}
	case RecvQueue:
		return queueSpec{"recvq", "RCVFMT", recvFormat, decodeRecvFields}
	case DocQueue:
		return queueSpec{"docq", "FILEFMT", fileFormat, decodeFileFields}
	case ServerStatus:
		return queueSpec{"status", "MDMFMT", modemFormat, decodeModemFields}
	}
	panic(fmt.Sprintf("no queue spec for %v", q))
}

const (
	jobFormat   = "%j|%a|%P|%D|%y|%o|%e|%m|%J|%s"
	recvFormat  = "%f|%p|%s|%Y|%e"
	fileFormat  = "%f|%o|%t|%s"
	modemFormat = "%m|%n|%s"
)

func field(fields []string, i int) string {
	if i < len(fields) {
		return strings.TrimSpace(fields[i])
	}
	return ""
}

func decodeJobFields(fields []string) JobRecord {
	return JobRecord{
		JobID:      field(fields, 0),
		State:      field(fields, 1),
		Pages:      field(fields, 2),
		Dials:      field(fields, 3),
		TimeToSend: field(fields, 4),
		Sender:     field(fields, 5),
		Number:     field(fields, 6),
		Modem:      field(fields, 7),
		Tag:        field(fields, 8),
		Status:     field(fields, 9),
	}
}

func decodeRecvFields(fields []string) JobRecord {
	return JobRecord{
		FileName: field(fields, 0),
		Pages:    field(fields, 1),
		Sender:   field(fields, 2),
		Received: field(fields, 3),
		Status:   field(fields, 4),
	}
}

func decodeFileFields(fields []string) JobRecord {
	return JobRecord{
		FileName: field(fields, 0),
		Sender:   field(fields, 1),
		Received: field(fields, 2),
		Status:   field(fields, 3),
	}
}

func decodeModemFields(fields []string) JobRecord {
	return JobRecord{
		Modem:  field(fields, 0),
		Number: field(fields, 1),
		Status: field(fields, 2),
	}
}

// decodeListing turns raw LIST output into job records, skipping blank
// lines and anything that decodes to an entirely empty record.
func decodeListing(q QueueType, lines []string, max int) []JobRecord {
	spec := q.spec()
	records := make([]JobRecord, 0, len(lines))
	for _, line := range lines {
		if len(records) >= max {
			break
		}
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		rec := spec.decode(strings.Split(line, "|"))
		if rec == (JobRecord{}) {
			continue
		}
		records = append(records, rec)
	}
	return records
}
