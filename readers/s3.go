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
	"io"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3ReaderError provides structured error information for S3 operations.
type S3ReaderError struct {
	Op  string
	Err error
}

func (e *S3ReaderError) Error() string {
	return fmt.Sprintf("s3 reader %s: %v", e.Op, e.Err)
}

func (e *S3ReaderError) Unwrap() error {
	return e.Err
}

// S3ReaderOptions configures the S3 client.
type S3ReaderOptions struct {
	Region         string
	Profile        string
	Credentials    aws.Credentials
	EndpointURL    string
	ForcePathStyle bool
}

// ReaderOptionS3 represents a configuration function for S3Fetcher.
type ReaderOptionS3 func(*S3ReaderOptions)

func WithS3Region(region string) ReaderOptionS3 {
	return func(opts *S3ReaderOptions) {
		opts.Region = region
	}
}

func WithS3Profile(profile string) ReaderOptionS3 {
	return func(opts *S3ReaderOptions) {
		opts.Profile = profile
	}
}

func WithS3Credentials(creds aws.Credentials) ReaderOptionS3 {
	return func(opts *S3ReaderOptions) {
		opts.Credentials = creds
	}
}

func WithS3Endpoint(endpoint string) ReaderOptionS3 {
	return func(opts *S3ReaderOptions) {
		opts.EndpointURL = endpoint
	}
}

func WithS3PathStyle(pathStyle bool) ReaderOptionS3 {
	return func(opts *S3ReaderOptions) {
		opts.ForcePathStyle = pathStyle
	}
}

// S3Fetcher downloads vector files from S3 to local temporary files.
type S3Fetcher struct {
	opts   S3ReaderOptions
	client *s3.Client
}

// NewS3Fetcher creates a fetcher. The client is created on first use.
func NewS3Fetcher(options ...ReaderOptionS3) *S3Fetcher {
	f := &S3Fetcher{}
	for _, option := range options {
		option(&f.opts)
	}
	return f
}

// Fetch downloads s3://bucket/key and returns the local path. The caller
// owns the file.
func (f *S3Fetcher) Fetch(ctx context.Context, location string) (string, error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", &S3ReaderError{Op: "parse", Err: err}
	}
	bucket, key := u.Host, strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return "", &S3ReaderError{Op: "parse", Err: fmt.Errorf("s3 location needs a bucket and key: %q", location)}
	}

	if f.client == nil {
		cfg, err := createAWSConfig(ctx, f.opts)
		if err != nil {
			return "", &S3ReaderError{Op: "create_aws_config", Err: err}
		}
		f.client = s3.NewFromConfig(cfg, func(o *s3.Options) {
			if f.opts.EndpointURL != "" {
				o.BaseEndpoint = aws.String(f.opts.EndpointURL)
			}
			o.UsePathStyle = f.opts.ForcePathStyle
		})
	}

	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", &S3ReaderError{Op: "get_object", Err: err}
	}
	defer out.Body.Close()

	local, err := saveTemp(out.Body, path.Ext(key))
	if err != nil {
		return "", &S3ReaderError{Op: "download", Err: err}
	}
	return local, nil
}

func createAWSConfig(ctx context.Context, opts S3ReaderOptions) (aws.Config, error) {
	configOpts := []func(*config.LoadOptions) error{}
	if opts.Region != "" {
		configOpts = append(configOpts, config.WithRegion(opts.Region))
	}
	if opts.Profile != "" {
		configOpts = append(configOpts, config.WithSharedConfigProfile(opts.Profile))
	}

	cfg, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return aws.Config{}, err
	}
	if opts.Credentials.AccessKeyID != "" {
		cfg.Credentials = aws.NewCredentialsCache(
			credentials.NewStaticCredentialsProvider(
				opts.Credentials.AccessKeyID,
				opts.Credentials.SecretAccessKey,
				opts.Credentials.SessionToken,
			),
		)
	}
	return cfg, nil
}

// saveTemp copies r into a temporary file keeping ext, so the format can
// still be detected from the name.
func saveTemp(r io.Reader, ext string) (string, error) {
	tmp, err := os.CreateTemp("", "gozonal-*"+ext)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}
