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
	"strings"

	"github.com/go-spatial/geom/encoding/geojson"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/aaronlmathis/gozonal/core"
)

// MongoReaderError provides structured error information for MongoDB reader operations.
type MongoReaderError struct {
	Op         string
	Collection string
	Err        error
}

func (e *MongoReaderError) Error() string {
	if e.Collection != "" {
		return fmt.Sprintf("mongo reader %s [%s]: %v", e.Op, e.Collection, e.Err)
	}
	return fmt.Sprintf("mongo reader %s: %v", e.Op, e.Err)
}

func (e *MongoReaderError) Unwrap() error {
	return e.Err
}

// MongoReader implements core.FeatureSource for a MongoDB collection whose
// documents store a GeoJSON geometry. The location is a mongodb:// URL with
// the database as path and the collection in the "collection" query
// parameter; "geometry" names the geometry field (default geometry).
type MongoReader struct {
	client     *mongo.Client
	cursor     *mongo.Cursor
	collection string
	geomField  string
	columns    []string
	buffered   []bson.D
}

// NewMongoReader connects and opens a cursor over the collection.
func NewMongoReader(ctx context.Context, location string) (*MongoReader, error) {
	u, err := url.Parse(location)
	if err != nil {
		return nil, &MongoReaderError{Op: "parse", Err: err}
	}
	q := u.Query()
	database := strings.TrimPrefix(u.Path, "/")
	r := &MongoReader{collection: q.Get("collection"), geomField: q.Get("geometry")}
	if database == "" || r.collection == "" {
		return nil, &MongoReaderError{Op: "parse", Err: fmt.Errorf("mongo location needs a database path and a collection parameter")}
	}
	if r.geomField == "" {
		r.geomField = "geometry"
	}
	q.Del("collection")
	q.Del("geometry")
	u.RawQuery = q.Encode()

	r.client, err = mongo.Connect(ctx, options.Client().ApplyURI(u.String()))
	if err != nil {
		return nil, &MongoReaderError{Op: "connect", Err: err}
	}
	coll := r.client.Database(database).Collection(r.collection)
	r.cursor, err = coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		r.client.Disconnect(ctx)
		return nil, &MongoReaderError{Op: "find", Collection: r.collection, Err: err}
	}

	// Peek at the first document for the column order.
	if r.cursor.Next(ctx) {
		var doc bson.D
		if err := r.cursor.Decode(&doc); err != nil {
			r.Close()
			return nil, &MongoReaderError{Op: "decode", Collection: r.collection, Err: err}
		}
		r.buffered = append(r.buffered, doc)
		for _, e := range doc {
			if e.Key != r.geomField {
				r.columns = append(r.columns, e.Key)
			}
		}
	}
	return r, nil
}

// Name returns the collection name.
func (r *MongoReader) Name() string { return r.collection }

// CRS returns EPSG:4326, the only CRS GeoJSON in MongoDB uses.
func (r *MongoReader) CRS() string { return "EPSG:4326" }

// Columns returns the fields of the first document except the geometry.
func (r *MongoReader) Columns() []string { return r.columns }

// Read implements core.FeatureSource.
func (r *MongoReader) Read(ctx context.Context) (core.Feature, error) {
	var doc bson.D
	if len(r.buffered) > 0 {
		doc, r.buffered = r.buffered[0], r.buffered[1:]
	} else {
		if !r.cursor.Next(ctx) {
			if err := r.cursor.Err(); err != nil {
				return core.Feature{}, &MongoReaderError{Op: "read", Collection: r.collection, Err: err}
			}
			return core.Feature{}, io.EOF
		}
		if err := r.cursor.Decode(&doc); err != nil {
			return core.Feature{}, &MongoReaderError{Op: "decode", Collection: r.collection, Err: err}
		}
	}

	f := core.Feature{Attributes: make(core.Record, len(doc))}
	for _, e := range doc {
		if e.Key != r.geomField {
			f.Attributes[e.Key] = bsonValue(e.Value)
			continue
		}
		if e.Value == nil {
			continue
		}
		data, err := bson.MarshalExtJSON(e.Value, false, false)
		if err != nil {
			return core.Feature{}, &MongoReaderError{Op: "geometry", Collection: r.collection, Err: err}
		}
		var g geojson.Geometry
		if err := g.UnmarshalJSON(data); err != nil {
			return core.Feature{}, &MongoReaderError{Op: "geometry", Collection: r.collection, Err: err}
		}
		f.Geometry = g.Geometry
	}
	return f, nil
}

// Close implements core.FeatureSource.
func (r *MongoReader) Close() error {
	ctx := context.Background()
	if r.cursor != nil {
		r.cursor.Close(ctx)
	}
	return r.client.Disconnect(ctx)
}

func bsonValue(v interface{}) interface{} {
	switch x := v.(type) {
	case int32:
		return int64(x)
	case primitive.ObjectID:
		return x.Hex()
	case primitive.DateTime:
		return x.Time()
	case bson.A:
		out := make([]interface{}, len(x))
		for i, e := range x {
			out[i] = bsonValue(e)
		}
		return out
	case bson.D:
		m := make(map[string]interface{}, len(x))
		for _, e := range x {
			m[e.Key] = bsonValue(e.Value)
		}
		return m
	default:
		return v
	}
}
