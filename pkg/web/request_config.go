// SPDX-License-Identifier: GPL-3.0-or-later

package web

import (
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"strings"

	"github.com/netdata/rabbitmq-monitor/pkg/buildinfo"
	"github.com/netdata/rabbitmq-monitor/pkg/executable"
)

// RequestConfig is the configuration of the HTTP request.
type RequestConfig struct {
	// URL specifies the URL to access.
	URL string `yaml:"url" json:"url"`

	// Username specifies the username for basic HTTP authentication.
	Username string `yaml:"username,omitempty" json:"username"`

	// Password specifies the password for basic HTTP authentication.
	Password string `yaml:"password,omitempty" json:"password"`

	// Headers specifies the HTTP request header fields to be sent by the client.
	Headers map[string]string `yaml:"headers,omitempty" json:"headers"`
}

// Copy makes a full copy of the RequestConfig.
func (r RequestConfig) Copy() RequestConfig {
	if r.Headers != nil {
		r.Headers = maps.Clone(r.Headers)
	}
	return r
}

var userAgent = fmt.Sprintf("Netdata %s.plugin/%s", executable.Name, buildinfo.Version)

// NewHTTPRequest returns a new GET *http.Request given a RequestConfig configuration and an error if any.
func NewHTTPRequest(cfg RequestConfig) (*http.Request, error) {
	req, err := http.NewRequest(http.MethodGet, cfg.URL, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", userAgent)

	if cfg.Username != "" || cfg.Password != "" {
		req.SetBasicAuth(cfg.Username, cfg.Password)
	}

	for k, v := range cfg.Headers {
		switch strings.ToLower(k) {
		case "host":
			req.Host = v
		default:
			req.Header.Set(k, v)
		}
	}

	return req, nil
}

// NewHTTPRequestWithPath returns a request for urlPath (and optional raw query) relative to cfg.URL.
func NewHTTPRequestWithPath(cfg RequestConfig, urlPath string, rawQuery ...string) (*http.Request, error) {
	cfg = cfg.Copy()

	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, err
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(urlPath, "/")
	if len(rawQuery) > 0 {
		u.RawQuery = strings.Join(rawQuery, "&")
	}
	cfg.URL = u.String()

	return NewHTTPRequest(cfg)
}
