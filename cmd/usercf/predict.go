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

package main

import (
	"bufio"
	"context"
	"io"
	"os"

	"github.com/gorse-io/usercf/base/log"
	"github.com/gorse-io/usercf/config"
	"github.com/gorse-io/usercf/dataset"
	"github.com/gorse-io/usercf/model/usercf"
	"github.com/juju/errors"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

// predict fits a model on the training part of r and writes one prediction
// per query to w, in query order.
func predict(ctx context.Context, r io.Reader, w io.Writer, conf *config.Config) error {
	store := dataset.NewRatingStore()
	queries, err := dataset.Load(r, store)
	if err != nil {
		return errors.Trace(err)
	}
	log.Logger().Info("load dataset complete",
		zap.Int("n_records", store.CountRecords()),
		zap.Int("n_ratings", store.CountRatings()),
		zap.Int("n_queries", len(queries)))

	m := usercf.NewUserCF(conf.Model.Params())
	if err = m.Fit(ctx, store, conf.Fit.GetFitConfig()); err != nil {
		return errors.Trace(err)
	}
	predictions, err := m.BatchPredict(ctx, queries, conf.Fit.Jobs)
	if err != nil {
		return errors.Trace(err)
	}

	writer := bufio.NewWriter(w)
	for _, prediction := range predictions {
		if _, err = writer.WriteString(conf.Output.Format(prediction)); err != nil {
			return errors.Trace(err)
		}
		if err = writer.WriteByte('\n'); err != nil {
			return errors.Trace(err)
		}
	}
	return errors.Trace(writer.Flush())
}

type readCloser struct {
	io.Reader
	io.Closer
}

// openInput opens path for reading, or stdin if path is empty or "-".
func openInput(path string, showProgress bool) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if !showProgress {
		return file, nil
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errors.Trace(err)
	}
	pbReader := progressbar.NewReader(file, progressbar.DefaultBytes(stat.Size(), "Loading "+stat.Name()))
	return readCloser{Reader: &pbReader, Closer: file}, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error {
	return nil
}

// openOutput creates path for writing, or returns stdout if path is empty or
// "-".
func openOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopWriteCloser{Writer: os.Stdout}, nil
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return file, nil
}
