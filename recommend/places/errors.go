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

package places

import (
	"errors"
	"fmt"
	"time"
)

var ErrNotFound = errors.New("place not found")
var ErrNotImplemented = errors.New("not implemented")

// DefaultRetryAfter is used when the upstream throttles us without saying
// for how long.
const DefaultRetryAfter = 60 * time.Second

// NetworkError covers transport failures as well as authentication and
// protocol problems reported by the upstream. Status is zero when no
// response was received.
type NetworkError struct {
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *NetworkError) Error() string {
	msg := e.Op
	if e.Status != 0 {
		msg += fmt.Sprintf(": status %d", e.Status)
	}
	if e.Body != "" {
		msg += " - " + e.Body
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// RateLimitError means the upstream asked us to back off. Nothing in this
// module retries automatically.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter)
}

func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

func IsRateLimited(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}
