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

package merge

import (
	"context"

	"github.com/aaronlmathis/gozonal/core"
	"github.com/aaronlmathis/gozonal/transform"
)

// MergeLayers combines layers into one layer named name. The field schema is
// the union of all layer fields in first-seen order. Features are reprojected
// to crs when a layer uses a different one. An empty crs means the first
// non-empty layer CRS.
func MergeLayers(name string, layers []*core.Layer, crs string) (*core.Layer, error) {
	out := &core.Layer{Name: name, CRS: core.NormalizeCRS(crs)}
	for _, l := range layers {
		if out.CRS != "" {
			break
		}
		if l != nil {
			out.CRS = core.NormalizeCRS(l.CRS)
		}
	}
	seen := make(map[string]bool)
	for _, l := range layers {
		if l == nil {
			continue
		}
		for _, f := range l.Fields {
			if !seen[f] {
				seen[f] = true
				out.Fields = append(out.Fields, f)
			}
		}
		project, err := Transformer(l.CRS, out.CRS)
		if err != nil {
			return nil, err
		}
		for _, f := range l.Features {
			if project != nil {
				g, err := project(f.Geometry)
				if err != nil {
					return nil, err
				}
				f = core.Feature{Attributes: f.Attributes, Geometry: g}
			}
			out.Features = append(out.Features, f)
		}
	}
	return out, nil
}

// PrefixLayer prepends prefix to every field for which keep returns false.
func PrefixLayer(ctx context.Context, l *core.Layer, prefix string, keep func(string) bool) (*core.Layer, error) {
	mapping := transform.PrefixMapping(l.Fields, prefix, keep)
	if len(mapping) == 0 {
		return l, nil
	}
	rename := transform.Rename(mapping)
	out := &core.Layer{Name: l.Name, CRS: l.CRS, Fields: transform.RenameColumns(l.Fields, mapping)}
	out.Features = make([]core.Feature, len(l.Features))
	for i, f := range l.Features {
		attrs, err := rename.Transform(ctx, f.Attributes)
		if err != nil {
			return nil, err
		}
		out.Features[i] = core.Feature{Attributes: attrs, Geometry: f.Geometry}
	}
	return out, nil
}

func (m *Merger) layerName() string {
	if m.cfg.OutputPath != "" {
		if _, name := core.SplitLayerPath(m.cfg.OutputPath); name != "" {
			return name
		}
	}
	return "zonal_stats"
}

func (m *Merger) mergeLayers(ctx context.Context, partials []core.PartialResult) (*core.MergedResult, error) {
	layers := make([]*core.Layer, 0, len(partials))
	for _, p := range partials {
		layers = append(layers, p.Layer)
	}
	merged, err := MergeLayers(m.layerName(), layers, m.cfg.CRS)
	if err != nil {
		return nil, &core.MergeError{Op: "combine_layers", Err: err}
	}

	merged, err = PrefixLayer(ctx, merged, m.cfg.Prefix, m.cfg.IsIncluded)
	if err != nil {
		return nil, &core.MergeError{Op: "prefix", Err: err}
	}
	id := m.cfg.IDColumn
	if id != "" && m.cfg.IDKind != core.KindUnknown {
		cast := transform.ConvertType(id, m.cfg.IDKind)
		for i, f := range merged.Features {
			attrs, err := cast.Transform(ctx, f.Attributes)
			if err != nil {
				return nil, &core.MergeError{Op: "cast_identifier", Err: err}
			}
			merged.Features[i].Attributes = attrs
		}
	}

	result := &core.MergedResult{Mode: core.Geospatial, Layer: merged, OutputPath: m.cfg.OutputPath}
	if m.cfg.OutputPath == "" {
		return result, nil
	}

	path, _ := core.SplitLayerPath(m.cfg.OutputPath)
	sink, err := m.sinks.NewLayerSink(ctx, path, merged.Name)
	if err != nil {
		return nil, &core.MergeError{Op: "open_sink", Err: err}
	}
	if err := sink.WriteLayer(ctx, merged); err != nil {
		sink.Close()
		return nil, &core.MergeError{Op: "write", Err: err}
	}
	if err := sink.Close(); err != nil {
		return nil, &core.MergeError{Op: "close", Err: err}
	}
	return result, nil
}
