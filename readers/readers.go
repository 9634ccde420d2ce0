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
	"os"
	"path/filepath"
	"strings"

	"github.com/aaronlmathis/gozonal/core"
)

// Package readers loads the vector features a run computes statistics for
// and the tabular results it produces.

// VectorReaderError wraps errors raised by the feature sources.
type VectorReaderError struct {
	Op  string
	Err error
}

func (e *VectorReaderError) Error() string {
	return fmt.Sprintf("vector reader %s: %v", e.Op, e.Err)
}

func (e *VectorReaderError) Unwrap() error {
	return e.Err
}

// described is implemented by sources that know their schema and CRS.
type described interface {
	Name() string
	CRS() string
	Columns() []string
}

// Collect drains src into a FeatureCollection and closes it.
func Collect(ctx context.Context, src core.FeatureSource) (*core.FeatureCollection, error) {
	defer src.Close()

	fc := &core.FeatureCollection{}
	if d, ok := src.(described); ok {
		fc.Name, fc.CRS = d.Name(), d.CRS()
		fc.Columns = append([]string(nil), d.Columns()...)
	}
	seen := make(map[string]bool, len(fc.Columns))
	for _, c := range fc.Columns {
		seen[c] = true
	}
	for {
		f, err := src.Read(ctx)
		if err == io.EOF {
			return fc, nil
		}
		if err != nil {
			return nil, err
		}
		for k := range f.Attributes {
			if !seen[k] {
				seen[k] = true
				fc.Columns = append(fc.Columns, k)
			}
		}
		fc.Features = append(fc.Features, f)
	}
}

// Open resolves a vector location and returns a source for it. Supported
// locations are local .geojson/.json and .gpkg files (with an optional
// "|layername=" suffix), postgres:// tables, mongodb:// collections, and
// s3:// or http(s):// URLs of files in one of the file formats.
func Open(ctx context.Context, location string) (core.FeatureSource, error) {
	switch {
	case strings.HasPrefix(location, "postgres://"), strings.HasPrefix(location, "postgresql://"):
		return NewPostGISReader(ctx, location)
	case strings.HasPrefix(location, "mongodb://"), strings.HasPrefix(location, "mongodb+srv://"):
		return NewMongoReader(ctx, location)
	case strings.HasPrefix(location, "s3://"):
		path, layer := core.SplitLayerPath(location)
		local, err := NewS3Fetcher().Fetch(ctx, path)
		if err != nil {
			return nil, err
		}
		return openFile(ctx, local, layer, true)
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		path, layer := core.SplitLayerPath(location)
		local, err := NewHTTPFetcher().Fetch(ctx, path)
		if err != nil {
			return nil, err
		}
		return openFile(ctx, local, layer, true)
	default:
		path, layer := core.SplitLayerPath(location)
		return openFile(ctx, path, layer, false)
	}
}

func openFile(ctx context.Context, path, layer string, temporary bool) (core.FeatureSource, error) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	var (
		src core.FeatureSource
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".geojson", ".json":
		var f *os.File
		if f, err = os.Open(path); err == nil {
			src, err = NewGeoJSONReader(f, name)
		}
	case ".gpkg":
		src, err = NewGeoPackageReader(ctx, path, layer)
	default:
		err = fmt.Errorf("unsupported vector format %q", path)
	}
	if err != nil {
		if temporary {
			os.Remove(path)
		}
		return nil, &VectorReaderError{Op: "open", Err: err}
	}
	if temporary {
		return &tempSource{FeatureSource: src, path: path}, nil
	}
	return src, nil
}

// tempSource removes a downloaded file once the source is closed.
type tempSource struct {
	core.FeatureSource
	path string
}

func (t *tempSource) Close() error {
	defer os.Remove(t.path)
	return t.FeatureSource.Close()
}

func (t *tempSource) Name() string {
	if d, ok := t.FeatureSource.(described); ok {
		return d.Name()
	}
	return ""
}

func (t *tempSource) CRS() string {
	if d, ok := t.FeatureSource.(described); ok {
		return d.CRS()
	}
	return ""
}

func (t *tempSource) Columns() []string {
	if d, ok := t.FeatureSource.(described); ok {
		return d.Columns()
	}
	return nil
}
