// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package fingerprint computes the 64-bit content hash used by the
// OpenSubtitles database to index video releases.
package fingerprint

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
)

const (
	// BlockSize is the number of bytes sampled from each end of the file.
	BlockSize = 65536
	words     = BlockSize / 8
)

// ErrTooSmall is returned for sources shorter than one block.
var ErrTooSmall = errors.New("fingerprint: source smaller than 64 KiB")

// Fingerprint identifies a file by hash and size.
type Fingerprint struct {
	Hash string
	Size int64
}

// Compute hashes the first and last 64 KiB of r. size must be the total
// length of r. The result is 16 lowercase hex digits.
//
// Not a cryptographic hash: it only needs to match the upstream index.
func Compute(r io.ReadSeeker, size int64) (string, error) {
	if size < BlockSize {
		return "", fmt.Errorf("%w: %d bytes", ErrTooSmall, size)
	}

	buf := make([]byte, BlockSize)
	hash := uint64(size)

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("seek head: %w", err)
	}
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("read head: %w", err)
	}
	hash = sumWords(hash, buf)

	if _, err := r.Seek(size-BlockSize, io.SeekStart); err != nil {
		return "", fmt.Errorf("seek tail: %w", err)
	}
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("read tail: %w", err)
	}
	hash = sumWords(hash, buf)

	return Format(hash), nil
}

// Format renders a hash as 16 zero-padded lowercase hex digits.
func Format(hash uint64) string {
	s := strconv.FormatUint(hash, 16)
	if len(s) < 16 {
		s = "0000000000000000"[len(s):] + s
	}
	return s
}

func sumWords(hash uint64, block []byte) uint64 {
	for i := 0; i < words; i++ {
		hash += binary.LittleEndian.Uint64(block[i*8:])
	}
	return hash
}

// ComputeFile opens path and fingerprints it with its own handle.
func ComputeFile(path string) (Fingerprint, error) {
	f, err := os.Open(path) // #nosec G304 -- callers resolve paths through the media library
	if err != nil {
		return Fingerprint{}, fmt.Errorf("open: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return Fingerprint{}, fmt.Errorf("stat: %w", err)
	}

	hash, err := Compute(f, info.Size())
	if err != nil {
		return Fingerprint{}, err
	}
	return Fingerprint{Hash: hash, Size: info.Size()}, nil
}
