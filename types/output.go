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

package types

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/aaronlmathis/gozonal/core"
	"github.com/aaronlmathis/gozonal/writers"
)

// Package types resolves output paths into formats and locations and opens
// the matching sinks.

// OutputFormat represents a supported sink format.
type OutputFormat int

const (
	FormatUnknown OutputFormat = iota
	FormatCSV
	FormatJSON
	FormatParquet
	FormatPostgres
	FormatGeoJSON
	FormatGeoPackage
)

func (f OutputFormat) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatJSON:
		return "json"
	case FormatParquet:
		return "parquet"
	case FormatPostgres:
		return "postgres"
	case FormatGeoJSON:
		return "geojson"
	case FormatGeoPackage:
		return "gpkg"
	default:
		return "unknown"
	}
}

// Geospatial reports whether the format stores geometry.
func (f OutputFormat) Geospatial() bool {
	return f == FormatGeoJSON || f == FormatGeoPackage
}

// SupportsArrays reports whether the format can hold per-cell arrays.
func (f OutputFormat) SupportsArrays() bool {
	return f == FormatJSON || f == FormatGeoJSON
}

var extensions = map[string]OutputFormat{
	".csv":     FormatCSV,
	".json":    FormatJSON,
	".jsonl":   FormatJSON,
	".parquet": FormatParquet,
	".geojson": FormatGeoJSON,
	".gpkg":    FormatGeoPackage,
}

// DetectFormat determines the output format of a path and checks it against
// the output mode. Tabular output accepts CSV, JSON, Parquet and PostgreSQL;
// geospatial output accepts GeoJSON and GeoPackage.
func DetectFormat(p string, mode core.OutputMode) (OutputFormat, error) {
	loc, err := ParseLocation(p)
	if err != nil {
		return FormatUnknown, err
	}
	f := loc.Format()
	switch {
	case f == FormatUnknown:
		return f, &core.ConfigurationError{Op: "output", Err: fmt.Errorf("unsupported output %q", p)}
	case mode == core.Geospatial && !f.Geospatial():
		return f, &core.ConfigurationError{Op: "output", Err: fmt.Errorf("geospatial output requires .geojson or .gpkg, got %q", p)}
	case mode == core.Tabular && f.Geospatial():
		return f, &core.ConfigurationError{Op: "output", Err: fmt.Errorf("tabular output cannot be written to %q", p)}
	}
	return f, nil
}

// OutputLocation is a resolved output destination.
type OutputLocation interface {
	Format() OutputFormat
	NewSink(ctx context.Context, columns []string) (core.DataSink, error)
	NewLayerSink(ctx context.Context, layerName string) (core.LayerSink, error)
}

// ParseLocation resolves an output path: a local file, an s3:// object or a
// postgres:// table.
func ParseLocation(p string) (OutputLocation, error) {
	switch {
	case strings.HasPrefix(p, "s3://"):
		u, err := url.Parse(p)
		if err != nil {
			return nil, &core.ConfigurationError{Op: "output", Err: err}
		}
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return nil, &core.ConfigurationError{Op: "output", Err: fmt.Errorf("s3 output needs a bucket and key: %q", p)}
		}
		return S3Location{Bucket: u.Host, Key: key}, nil
	case strings.HasPrefix(p, "postgres://"), strings.HasPrefix(p, "postgresql://"):
		u, err := url.Parse(p)
		if err != nil {
			return nil, &core.ConfigurationError{Op: "output", Err: err}
		}
		q := u.Query()
		table := q.Get("table")
		if table == "" {
			table = "zonal_stats"
		}
		q.Del("table")
		u.RawQuery = q.Encode()
		return PostgresLocation{DSN: u.String(), Table: table}, nil
	default:
		file, _ := core.SplitLayerPath(p)
		return FileLocation{Path: file}, nil
	}
}

func formatOf(name string) OutputFormat {
	return extensions[strings.ToLower(path.Ext(name))]
}

// FileLocation writes output to a local filesystem path.
type FileLocation struct {
	Path string
}

// Format implements OutputLocation.
func (f FileLocation) Format() OutputFormat {
	return formatOf(f.Path)
}

// NewSink instantiates a tabular writer for the file location.
func (f FileLocation) NewSink(ctx context.Context, columns []string) (core.DataSink, error) {
	switch f.Format() {
	case FormatCSV, FormatJSON:
		file, err := create(f.Path)
		if err != nil {
			return nil, err
		}
		return newStreamSink(f.Format(), file, columns)
	case FormatParquet:
		return writers.NewParquetWriter(f.Path, writers.WithFieldOrder(columns))
	default:
		return nil, fmt.Errorf("unsupported tabular format for %s", f.Path)
	}
}

// NewLayerSink instantiates a layer writer for the file location.
func (f FileLocation) NewLayerSink(ctx context.Context, layerName string) (core.LayerSink, error) {
	switch f.Format() {
	case FormatGeoJSON:
		file, err := create(f.Path)
		if err != nil {
			return nil, err
		}
		return writers.NewGeoJSONWriter(file, false), nil
	case FormatGeoPackage:
		return writers.NewGeoPackageWriter(ctx, f.Path, layerName)
	default:
		return nil, fmt.Errorf("unsupported geospatial format for %s", f.Path)
	}
}

func create(p string) (*os.File, error) {
	if dir := filepath.Dir(p); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	return os.Create(p)
}

func newStreamSink(format OutputFormat, w io.WriteCloser, columns []string) (core.DataSink, error) {
	if format == FormatCSV {
		return writers.NewCSVWriter(w, writers.WithHeaders(columns))
	}
	return writers.NewJSONWriter(w, writers.WithJSONColumns(columns)), nil
}

// S3Location writes objects to an S3 bucket. The format follows the key's
// extension.
type S3Location struct {
	Bucket string
	Key    string
	Client *s3.Client
}

// Format implements OutputLocation.
func (s S3Location) Format() OutputFormat {
	return formatOf(s.Key)
}

func (s S3Location) client(ctx context.Context) (*s3.Client, error) {
	if s.Client != nil {
		return s.Client, nil
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(cfg), nil
}

func (s S3Location) put(ctx context.Context, body io.Reader) error {
	client, err := s.client(ctx)
	if err != nil {
		return err
	}
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &s.Bucket,
		Key:    &s.Key,
		Body:   body,
	})
	return err
}

type s3WriteCloser struct {
	ctx context.Context
	buf bytes.Buffer
	loc S3Location
}

func (w *s3WriteCloser) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *s3WriteCloser) Close() error {
	return w.loc.put(w.ctx, bytes.NewReader(w.buf.Bytes()))
}

// NewSink creates a writer uploading to S3 on Close.
func (s S3Location) NewSink(ctx context.Context, columns []string) (core.DataSink, error) {
	switch s.Format() {
	case FormatCSV, FormatJSON:
		return newStreamSink(s.Format(), &s3WriteCloser{ctx: ctx, loc: s}, columns)
	case FormatParquet:
		tmp, err := os.CreateTemp("", "gozonal-*.parquet")
		if err != nil {
			return nil, err
		}
		name := tmp.Name()
		tmp.Close()
		pw, err := writers.NewParquetWriter(name, writers.WithFieldOrder(columns))
		if err != nil {
			os.Remove(name)
			return nil, err
		}
		return &s3FileSink{DataSink: pw, ctx: ctx, loc: s, filename: name}, nil
	default:
		return nil, fmt.Errorf("unsupported tabular format for s3://%s/%s", s.Bucket, s.Key)
	}
}

// NewLayerSink creates a GeoJSON writer uploading to S3 on Close.
func (s S3Location) NewLayerSink(ctx context.Context, layerName string) (core.LayerSink, error) {
	if s.Format() != FormatGeoJSON {
		return nil, fmt.Errorf("only geojson layers can be written to s3")
	}
	return writers.NewGeoJSONWriter(&s3WriteCloser{ctx: ctx, loc: s}, false), nil
}

// s3FileSink writes to a local temporary file and uploads it on Close.
type s3FileSink struct {
	core.DataSink
	ctx      context.Context
	loc      S3Location
	filename string
}

func (p *s3FileSink) Close() error {
	defer os.Remove(p.filename)
	if err := p.DataSink.Close(); err != nil {
		return err
	}
	file, err := os.Open(p.filename)
	if err != nil {
		return err
	}
	defer file.Close()
	return p.loc.put(p.ctx, file)
}

// PostgresLocation directs output to a PostgreSQL table.
type PostgresLocation struct {
	DSN   string
	Table string
}

// Format implements OutputLocation.
func (p PostgresLocation) Format() OutputFormat {
	return FormatPostgres
}

// NewSink instantiates a PostgreSQL writer.
func (p PostgresLocation) NewSink(ctx context.Context, columns []string) (core.DataSink, error) {
	return writers.NewPostgresWriter(
		writers.WithPostgresDSN(p.DSN),
		writers.WithTableName(p.Table),
		writers.WithColumns(columns),
	)
}

// NewLayerSink is not supported for PostgreSQL output.
func (p PostgresLocation) NewLayerSink(ctx context.Context, layerName string) (core.LayerSink, error) {
	return nil, fmt.Errorf("geospatial output to postgres is not supported")
}

// Sinks opens sinks by resolving output paths. It satisfies the merge
// package's SinkFactory.
type Sinks struct{}

// NewTableSink implements SinkFactory.
func (Sinks) NewTableSink(ctx context.Context, p string, columns []string) (core.DataSink, error) {
	loc, err := ParseLocation(p)
	if err != nil {
		return nil, err
	}
	return loc.NewSink(ctx, columns)
}

// NewLayerSink implements SinkFactory.
func (Sinks) NewLayerSink(ctx context.Context, p string, layerName string) (core.LayerSink, error) {
	loc, err := ParseLocation(p)
	if err != nil {
		return nil, err
	}
	return loc.NewLayerSink(ctx, layerName)
}
