// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build linux

package frame

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func fakeFFmpeg(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffmpeg")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o700))
	return path
}

func TestExtract(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	bin := fakeFFmpeg(t, `printf '\377\330JPEG\377\331'`)
	e := NewExtractor(Config{Bin: bin})

	img, err := e.Extract(context.Background(), "/videos/movie.mkv")
	require.NoError(t, err)
	assert.Equal(t, []byte("\xff\xd8JPEG\xff\xd9"), img)
}

func TestExtractPassesArguments(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "args")
	bin := fakeFFmpeg(t, `printf '%s\n' "$@" > `+out+`; printf x`)
	e := NewExtractor(Config{Bin: bin, Seek: "00:01:00"})

	_, err := e.Extract(context.Background(), "/videos/my movie.mkv")
	require.NoError(t, err)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t,
		"-ss\n00:01:00\n-i\n/videos/my movie.mkv\n-vframes\n1\n-q:v\n6\n-nostats\n-hide_banner\n-f\nimage2pipe\n-c:v\nmjpeg\n-\n",
		string(got))
}

func TestExtractFailureIncludesStderr(t *testing.T) {
	bin := fakeFFmpeg(t, `echo "No such file or directory" >&2; exit 1`)
	_, err := NewExtractor(Config{Bin: bin}).Extract(context.Background(), "/missing.mkv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No such file or directory")
}

func TestExtractNoOutput(t *testing.T) {
	bin := fakeFFmpeg(t, `exit 0`)
	_, err := NewExtractor(Config{Bin: bin}).Extract(context.Background(), "/x.mkv")
	assert.ErrorIs(t, err, ErrNoFrame)
}

func TestExtractTimeoutKillsProcess(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	bin := fakeFFmpeg(t, `sleep 30 & sleep 30`)
	e := NewExtractor(Config{Bin: bin, Timeout: 100 * time.Millisecond})

	began := time.Now()
	_, err := e.Extract(context.Background(), "/x.mkv")
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(began), 5*time.Second)
}

func TestExtractCanceled(t *testing.T) {
	bin := fakeFFmpeg(t, `sleep 30`)
	e := NewExtractor(Config{Bin: bin})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := e.Extract(ctx, "/x.mkv")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExtractMissingBinary(t *testing.T) {
	_, err := NewExtractor(Config{Bin: filepath.Join(t.TempDir(), "nope")}).Extract(context.Background(), "/x.mkv")
	assert.Error(t, err)
}

func TestLimitedBuffer(t *testing.T) {
	b := &limitedBuffer{limit: 4}
	n, err := b.Write([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	n, err = b.Write([]byte("def"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "abcd", b.String())
	assert.True(t, b.overflow)
}
