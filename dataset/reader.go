// Copyright 2025 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dataset

import (
	"bufio"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/juju/errors"
)

const (
	TrainSentinel = "train dataset"
	TestSentinel  = "test dataset"

	maxLineSize = 1 << 20
)

type RecordKind int

const (
	RatingRecord RecordKind = iota
	QueryRecord
)

// Query asks for the rating a user would give to an item.
type Query struct {
	UserId int32
	ItemId int32
}

// Record is a typed line of the input stream.
type Record struct {
	Kind   RecordKind
	Rating Rating
	Query  Query
	Line   int
}

// Reader splits a line-oriented stream into training ratings and queries.
// The stream starts in training mode. The "test dataset" sentinel switches to
// query mode for the rest of the stream.
type Reader struct {
	scanner *bufio.Scanner
	line    int
	test    bool
}

func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Reader{scanner: scanner}
}

// Next returns the next record, or io.EOF at the end of the stream.
func (r *Reader) Next() (Record, error) {
	for r.scanner.Scan() {
		r.line++
		text := strings.TrimSpace(r.scanner.Text())
		if text == "" {
			continue
		}
		if !r.test {
			switch text {
			case TrainSentinel:
				continue
			case TestSentinel:
				r.test = true
				continue
			}
			rating, err := parseRating(text, r.line)
			if err != nil {
				return Record{}, errors.Trace(err)
			}
			return Record{Kind: RatingRecord, Rating: rating, Line: r.line}, nil
		}
		query, err := parseQuery(text, r.line)
		if err != nil {
			return Record{}, errors.Trace(err)
		}
		return Record{Kind: QueryRecord, Query: query, Line: r.line}, nil
	}
	if err := r.scanner.Err(); err != nil {
		return Record{}, errors.Trace(err)
	}
	return Record{}, io.EOF
}

// InTestMode reports whether the test sentinel has been read.
func (r *Reader) InTestMode() bool {
	return r.test
}

// Load puts every training rating into store and returns the queries in input
// order.
func Load(r io.Reader, store *RatingStore) ([]Query, error) {
	reader := NewReader(r)
	var queries []Query
	for {
		record, err := reader.Next()
		if err == io.EOF {
			return queries, nil
		} else if err != nil {
			return nil, errors.Trace(err)
		}
		switch record.Kind {
		case RatingRecord:
			store.Put(record.Rating.UserId, record.Rating.ItemId, record.Rating.Value)
		case QueryRecord:
			queries = append(queries, record.Query)
		}
	}
}

// LoadRatings returns the training ratings of a stream in input order. Reading
// stops at the test section.
func LoadRatings(r io.Reader) ([]Rating, error) {
	reader := NewReader(r)
	var ratings []Rating
	for {
		record, err := reader.Next()
		if err == io.EOF {
			return ratings, nil
		} else if err != nil {
			return nil, errors.Trace(err)
		}
		if reader.InTestMode() {
			return ratings, nil
		}
		ratings = append(ratings, record.Rating)
	}
}

func parseRating(text string, line int) (Rating, error) {
	fields := strings.Fields(text)
	if len(fields) < 3 {
		return Rating{}, errors.NotValidf("rating at line %d: %q", line, text)
	}
	userId, err := parseId(fields[0], "user id", line)
	if err != nil {
		return Rating{}, err
	}
	itemId, err := parseId(fields[1], "item id", line)
	if err != nil {
		return Rating{}, err
	}
	value, err := strconv.ParseFloat(fields[2], 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return Rating{}, errors.NotValidf("rating at line %d: %q", line, fields[2])
	}
	return Rating{UserId: userId, ItemId: itemId, Value: value}, nil
}

func parseQuery(text string, line int) (Query, error) {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return Query{}, errors.NotValidf("query at line %d: %q", line, text)
	}
	userId, err := parseId(fields[0], "user id", line)
	if err != nil {
		return Query{}, err
	}
	itemId, err := parseId(fields[1], "item id", line)
	if err != nil {
		return Query{}, err
	}
	return Query{UserId: userId, ItemId: itemId}, nil
}

func parseId(field, name string, line int) (int32, error) {
	id, err := strconv.ParseInt(field, 10, 32)
	if err != nil || id < 0 {
		return 0, errors.NotValidf("%s at line %d: %q", name, line, field)
	}
	return int32(id), nil
}
