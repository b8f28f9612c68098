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
	"errors"
	"net/http"

	"github.com/gonicus/gofaxweb/gofaxlib/logger"

	"github.com/labstack/echo/v4"
)

// envelope is the uniform response shape of every endpoint.
type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

func respond(c echo.Context, status int, success bool, data interface{}, message string) error {
	if data == nil {
		data = map[string]interface{}{}
	}
	return c.JSON(status, envelope{
		Success: success,
		Message: message,
		Data:    data,
	})
}

func ok(c echo.Context, data interface{}, message string) error {
	return respond(c, http.StatusOK, true, data, message)
}

func fail(c echo.Context, status int, message string) error {
	return respond(c, status, false, nil, message)
}

// errorHandler keeps the envelope on errors echo raises itself, most
// importantly the body limit's 413, and hides internal error text behind
// a generic message.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		message := http.StatusText(he.Code)
		if he.Code == http.StatusRequestEntityTooLarge {
			message = "File too large"
		}
		respond(c, he.Code, false, nil, message)
		return
	}

	logger.Logger.Printf("httpd: %s %s: %v", c.Request().Method, c.Request().URL.Path, err)
	respond(c, http.StatusInternalServerError, false, nil, "Internal server error")
}
