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

package gofaxlib

import (
	"log"

	"github.com/gonicus/gofaxweb/gofaxlib/logger"

	"gopkg.in/gcfg.v1"
)

var (
	// Config is the global configuration struct
	Config config
)

type config struct {
	Hylafax struct {
		Host           string
		Port           uint
		Username       string
		TimeoutSeconds uint
	}
	Httpd struct {
		Listen      string
		UploadDir   string
		MaxUploadMB uint
		MaxRecords  uint
	}
}

// LoadConfig loads the configuration from given file path
func LoadConfig(filename string) {
	err := gcfg.ReadFileInto(&Config, filename)
	if err != nil {
		logger.Logger.Print("Config: ", err)
		log.Fatal("Config: ", err)
	}
	applyDefaults()
}

func applyDefaults() {
	if Config.Hylafax.Host == "" {
		Config.Hylafax.Host = "localhost"
	}
	if Config.Hylafax.Port == 0 {
		Config.Hylafax.Port = 4559
	}
	if Config.Hylafax.TimeoutSeconds == 0 {
		Config.Hylafax.TimeoutSeconds = 30
	}
	if Config.Httpd.Listen == "" {
		Config.Httpd.Listen = ":8080"
	}
	if Config.Httpd.UploadDir == "" {
		Config.Httpd.UploadDir = "/tmp/fax_uploads"
	}
	if Config.Httpd.MaxUploadMB == 0 {
		Config.Httpd.MaxUploadMB = 16
	}
	if Config.Httpd.MaxRecords == 0 {
		Config.Httpd.MaxRecords = 1000
	}
}
