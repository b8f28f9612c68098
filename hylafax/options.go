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

// SendOptions is a complete sendfax-style submission option record.
// String fields are passed to hfaxd verbatim; syntax of dial strings,
// times and page sizes is the server's business.
type SendOptions struct {
	Recipient         string
	DialString        string
	SubAddress        string
	CoverComments     string
	CoverRegarding    string
	CoverFromVoice    string
	CoverFromFax      string
	CoverFromCompany  string
	CoverFromLocation string
	CoverTemplate     string
	TagLineFormat     string
	JobTag            string
	TSI               string
	SendTime          string
	KillTime          string
	RetryTime         string
	PageSize          string
	Notification      string
	Priority          string
	VResolution       float64
	MaxTries          int
	MaxDials          int
	AutoCoverPage     bool
	UseECM            bool
	UseXVRes          bool
	Archive           bool
	DesiredSpeed      int
	MinSpeed          int
	DesiredDataFormat int
}

// DefaultSendOptions returns the option record hfaxd-compatible clients
// start from: low resolution, ECM on, notification when done.
func DefaultSendOptions() SendOptions {
	return SendOptions{
		VResolution:   98,
		MaxTries:      3,
		MaxDials:      12,
		AutoCoverPage: true,
		UseECM:        true,
		DesiredSpeed:  14400,
		MinSpeed:      2400,
		Notification:  "done",
		Priority:      "normal",
	}
}

// MarshalOptions builds a SendOptions record from a loosely typed mapping,
// as decoded from a JSON options object. Recognized keys overwrite the
// default value after coercion to the field's type; unrecognized keys are
// dropped silently. It never fails: values of an unusable type simply keep
// the default.
func MarshalOptions(raw map[string]interface{}) SendOptions {
	opts := DefaultSendOptions()
	for key, value := range raw {
		switch key {
		case "recipient":
			setString(&opts.Recipient, value)
		case "dialString":
			setString(&opts.DialString, value)
		case "subAddress":
			setString(&opts.SubAddress, value)
		case "coverComments":
			setString(&opts.CoverComments, value)
		case "coverRegarding":
			setString(&opts.CoverRegarding, value)
		case "coverFromVoice":
			setString(&opts.CoverFromVoice, value)
		case "coverFromFax":
			setString(&opts.CoverFromFax, value)
		case "coverFromCompany":
			setString(&opts.CoverFromCompany, value)
		case "coverFromLocation":
			setString(&opts.CoverFromLocation, value)
		case "coverTemplate":
			setString(&opts.CoverTemplate, value)
		case "tagLineFormat":
			setString(&opts.TagLineFormat, value)
		case "jobTag":
			setString(&opts.JobTag, value)
		case "tsi":
			setString(&opts.TSI, value)
		case "sendTime":
			setString(&opts.SendTime, value)
		case "killTime":
			setString(&opts.KillTime, value)
		case "retryTime":
			setString(&opts.RetryTime, value)
		case "pageSize":
			setString(&opts.PageSize, value)
		case "notification":
			setString(&opts.Notification, value)
		case "priority":
			setString(&opts.Priority, value)
		case "vResolution":
			setFloat(&opts.VResolution, value)
		case "maxRetries":
			setInt(&opts.MaxTries, value)
		case "maxDials":
			setInt(&opts.MaxDials, value)
		case "autoCoverPage":
			setBool(&opts.AutoCoverPage, value)
		case "useECM":
			setBool(&opts.UseECM, value)
		case "useXVRes":
			setBool(&opts.UseXVRes, value)
		case "archive":
			setBool(&opts.Archive, value)
		case "desiredSpeed":
			setInt(&opts.DesiredSpeed, value)
		case "minSpeed":
			setInt(&opts.MinSpeed, value)
		case "desiredDataFormat":
			setInt(&opts.DesiredDataFormat, value)
		}
	}
	return opts
}

func setString(dst *string, value interface{}) {
	if s, ok := value.(string); ok {
		*dst = s
	}
}

func setFloat(dst *float64, value interface{}) {
	switch v := value.(type) {
	case float64:
		*dst = v
	case int:
		*dst = float64(v)
	}
}

// JSON numbers decode as float64, so integer fields accept both shapes.
func setInt(dst *int, value interface{}) {
	switch v := value.(type) {
	case int:
		*dst = v
	case float64:
		*dst = int(v)
	}
}

func setBool(dst *bool, value interface{}) {
	if b, ok := value.(bool); ok {
		*dst = b
	}
}

// jobParams translates the record into the JPARM stream for one job.
// Zero-valued string fields are omitted so the server default applies.
func (o SendOptions) jobParams() *JobParams {
	p := NewJobParams()
	addString := func(tag, value string) {
		if value != "" {
			p.Add(tag, value)
		}
	}
	addString("TOUSER", o.Recipient)
	addString("SUBADDR", o.SubAddress)
	addString("COMMENTS", o.CoverComments)
	addString("REGARDING", o.CoverRegarding)
	addString("FROMVOICE", o.CoverFromVoice)
	addString("FROMFAX", o.CoverFromFax)
	addString("FROMCOMPANY", o.CoverFromCompany)
	addString("FROMLOCATION", o.CoverFromLocation)
	addString("COVER", o.CoverTemplate)
	addString("TAGLINE", o.TagLineFormat)
	addString("JOBTAG", o.JobTag)
	addString("TSI", o.TSI)
	addString("SENDTIME", o.SendTime)
	addString("LASTTIME", o.KillTime)
	addString("RETRYTIME", o.RetryTime)
	addString("PAGELENGTH", o.PageSize)
	addString("NOTIFY", o.Notification)
	addString("SCHEDPRI", o.Priority)
	p.SetInt("VRES", int(o.VResolution))
	p.SetInt("MAXTRIES", o.MaxTries)
	p.SetInt("MAXDIALS", o.MaxDials)
	p.SetBool("ECM", o.UseECM)
	p.SetBool("USEXVRES", o.UseXVRes)
	p.SetInt("BEGBR", o.DesiredSpeed)
	p.SetInt("MINBR", o.MinSpeed)
	p.SetInt("DATAFORMAT", o.DesiredDataFormat)
	if o.Archive {
		p.Set("DONEOP", "archive")
	}
	return p
}
