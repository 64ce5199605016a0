// Package tailer reads the bytes appended to a file since a known offset.
// No handle survives a call, so a renamed file is never followed.
package tailer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var ErrNotFound = errors.New("file not found")

type Result struct {
	Lines []string
	// Offset is the file position after the read.
	Offset int64
}

// Tail reads path from offset to end of file. Offsets outside [0, size] are
// clamped. Invalid UTF-8 is dropped and a trailing line without newline is
// returned as is.
func Tail(path string, offset int64) (Result, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Result{Offset: offset}, ErrNotFound
		}
		return Result{Offset: offset}, fmt.Errorf("error while opening file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return Result{Offset: offset}, fmt.Errorf("error getting file stats: %w", err)
	}

	start := clamp(offset, info.Size())
	if _, err := file.Seek(start, io.SeekStart); err != nil {
		return Result{Offset: offset}, fmt.Errorf("error seeking to %d: %w", start, err)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return Result{Offset: offset}, fmt.Errorf("error reading file: %w", err)
	}

	return Result{
		Lines:  SplitLines(strings.ToValidUTF8(string(data), "")),
		Offset: start + int64(len(data)),
	}, nil
}

// SplitLines splits on \n and strips a \r before it.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, line := range lines {
		line = strings.TrimSuffix(line, "\n")
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

func clamp(offset, size int64) int64 {
	if offset < 0 {
		return 0
	}
	if offset > size {
		return size
	}
	return offset
}
