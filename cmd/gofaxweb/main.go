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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gonicus/gofaxweb/gofaxlib"
	"github.com/gonicus/gofaxweb/gofaxlib/logger"
	"github.com/gonicus/gofaxweb/httpd"
	"github.com/gonicus/gofaxweb/hylafax"

	"golang.org/x/sync/errgroup"
)

const (
	defaultConfigfile = "/etc/gofaxweb.conf"
	productName       = "GOfax.Web"
)

var (
	configFile  = flag.String("c", defaultConfigfile, "GOfax configuration file")
	showVersion = flag.Bool("version", false, "Show version information")

	usage = fmt.Sprintf("Usage: %s -version | [-c configfile]", os.Args[0])

	// Version can be set at build time using:
	//    -ldflags "-X main.version 0.42"
	version string
)

func init() {
	if version == "" {
		version = "development version"
	}

	flag.Usage = func() {
		log.Printf("%s %s\n%s\n", productName, version, usage)
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		os.Exit(1)
	}

	logger.Logger.Printf("%v gofaxweb %v starting", productName, version)
	gofaxlib.LoadConfig(*configFile)

	store, err := httpd.NewStore(gofaxlib.Config.Httpd.UploadDir)
	if err != nil {
		logger.Logger.Fatal(err)
	}

	backend := net.JoinHostPort(gofaxlib.Config.Hylafax.Host,
		strconv.Itoa(int(gofaxlib.Config.Hylafax.Port)))
	timeout := time.Duration(gofaxlib.Config.Hylafax.TimeoutSeconds) * time.Second

	newSession := func() *hylafax.Session {
		sess := hylafax.NewSession(backend, func(host string) (hylafax.Conn, error) {
			return hylafax.DialTimeout(host, timeout)
		})
		sess.MaxRecords = int(gofaxlib.Config.Httpd.MaxRecords)
		return sess
	}

	server := httpd.NewServer(newSession, store,
		gofaxlib.Config.Hylafax.Username, gofaxlib.Config.Httpd.MaxUploadMB)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Logger.Printf("Listening on %v, fax server %v", gofaxlib.Config.Httpd.Listen, backend)
		if err := server.Start(gofaxlib.Config.Httpd.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Logger.Print("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Logger.Fatal(err)
	}
	logger.Logger.Print("Terminating")
}
