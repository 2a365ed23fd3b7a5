// Copyright 2025 The Macrodiff Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package linegraph

import (
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Create opens path for writing linegraph output, transparently
// gzip-compressing when the file name ends in .gz.
func Create(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	return &gzipFile{zw: gzip.NewWriter(f), f: f}, nil
}

// Open opens a linegraph file for reading, transparently decompressing
// .gz files.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &gzipReadFile{zr: zr, f: f}, nil
}

type gzipFile struct {
	zw *gzip.Writer
	f  *os.File
}

func (g *gzipFile) Write(p []byte) (int, error) { return g.zw.Write(p) }

func (g *gzipFile) Close() error {
	if err := g.zw.Close(); err != nil {
		g.f.Close()
		return err
	}
	return g.f.Close()
}

type gzipReadFile struct {
	zr *gzip.Reader
	f  *os.File
}

func (g *gzipReadFile) Read(p []byte) (int, error) { return g.zr.Read(p) }

func (g *gzipReadFile) Close() error {
	if err := g.zr.Close(); err != nil {
		g.f.Close()
		return err
	}
	return g.f.Close()
}
