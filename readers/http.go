//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright (C) 2025 Aaron Mathis aaron.mathis@gmail.com
//
// This file is part of GoZonal.
//
// GoZonal is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// GoZonal is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with GoZonal. If not, see https://www.gnu.org/licenses/.
//

package readers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/cenkalti/backoff"
)

// HTTPReaderError provides structured error information for HTTP downloads.
type HTTPReaderError struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

func (e *HTTPReaderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("http reader %s [%s] (status %d): %v", e.Op, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("http reader %s [%s]: %v", e.Op, e.URL, e.Err)
}

func (e *HTTPReaderError) Unwrap() error {
	return e.Err
}

// HTTPFetcher downloads vector files over HTTP, retrying transient failures
// with an exponential backoff.
type HTTPFetcher struct {
	client  *http.Client
	timeout time.Duration
}

// ReaderOptionHTTP configures an HTTPFetcher.
type ReaderOptionHTTP func(*HTTPFetcher)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) ReaderOptionHTTP {
	return func(f *HTTPFetcher) {
		f.client = client
	}
}

// WithHTTPRetryTimeout bounds the total time spent retrying.
func WithHTTPRetryTimeout(timeout time.Duration) ReaderOptionHTTP {
	return func(f *HTTPFetcher) {
		f.timeout = timeout
	}
}

// NewHTTPFetcher creates a fetcher with a 30 second client timeout.
func NewHTTPFetcher(options ...ReaderOptionHTTP) *HTTPFetcher {
	f := &HTTPFetcher{
		client:  &http.Client{Timeout: 30 * time.Second},
		timeout: time.Minute,
	}
	for _, option := range options {
		option(f)
	}
	return f
}

// Fetch downloads rawURL into a temporary file and returns its path. Server
// errors and 429 responses are retried; other client errors are permanent.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", &HTTPReaderError{Op: "parse", URL: rawURL, Err: err}
	}

	var local string
	op := func() error {
		req, err := http.NewRequest(http.MethodGet, rawURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := f.client.Do(req.WithContext(ctx))
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return &HTTPReaderError{Op: "get", URL: rawURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("server error")}
		case resp.StatusCode >= 400:
			return backoff.Permanent(&HTTPReaderError{Op: "get", URL: rawURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("request failed")})
		}

		local, err = saveTemp(resp.Body, path.Ext(u.Path))
		return err
	}

	if err := backoff.Retry(op, f.backoff()); err != nil {
		if perm, ok := err.(*backoff.PermanentError); ok {
			err = perm.Err
		}
		return "", err
	}
	return local, nil
}

func (f *HTTPFetcher) backoff() backoff.BackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     100 * time.Millisecond,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          backoff.DefaultMultiplier,
		MaxInterval:         f.timeout / 6,
		MaxElapsedTime:      f.timeout,
		Clock:               backoff.SystemClock,
	}
	b.Reset()
	return b
}
