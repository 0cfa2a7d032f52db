// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package connectivity answers whether the upstream is worth trying before
// a search goes to the network.
package connectivity

import (
	"context"
	"net/http"
	"time"

	"github.com/honeycombio/beeline-go"
)

const DefaultProbeTimeout = 2 * time.Second

type Checker interface {
	Online(ctx context.Context) bool
}

// Static always reports the same answer. Static(false) forces offline mode.
type Static bool

func (s Static) Online(ctx context.Context) bool {
	return bool(s)
}

// Probe sends a HEAD request to URL on every check. Any HTTP response counts
// as online, whatever the status; only a transport failure or timeout
// counts as offline.
type Probe struct {
	URL     string
	Client  *http.Client
	Timeout time.Duration
}

func NewProbe(url string) *Probe {
	return &Probe{URL: url, Client: http.DefaultClient, Timeout: DefaultProbeTimeout}
}

func (p *Probe) Online(ctx context.Context) bool {
	ctx, span := beeline.StartSpan(ctx, "connectivity.probe")
	defer span.Send()
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.URL, nil)
	if err != nil {
		span.AddField("error", err)
		return false
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		span.AddField("error", err)
		span.AddField("online", false)
		return false
	}
	_ = resp.Body.Close()
	span.AddField("status", resp.StatusCode)
	span.AddField("online", true)
	return true
}
