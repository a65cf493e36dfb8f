package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"time"
)

const (
	maxLineBytes = 1024 * 1024
	pollInterval = 250 * time.Millisecond
)

// Filter reports whether a log line should be shown.
type Filter func(line string) bool

// ItemFilter matches lines logged for itemID in either log format. A
// non-positive ID matches everything.
func ItemFilter(itemID int64) Filter {
	if itemID <= 0 {
		return nil
	}
	id := strconv.FormatInt(itemID, 10)
	pattern := regexp.MustCompile(`\[item ` + id + `[ \]]|"item_id":` + id + `[,}]`)
	return pattern.MatchString
}

// Result holds the lines read and the byte offset to resume from.
type Result struct {
	Lines  []string
	Offset int64
}

// Tail returns up to limit matching lines from the end of path. A missing
// file yields an empty result so callers can follow a log that does not
// exist yet.
func Tail(path string, limit int, filter Filter) (Result, error) {
	file, err := openLog(path)
	if err != nil || file == nil {
		return Result{}, err
	}
	defer file.Close()

	if limit <= 0 {
		offset, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return Result{}, fmt.Errorf("seek log file: %w", err)
		}
		return Result{Offset: offset}, nil
	}

	ring := make([]string, limit)
	count, next := 0, 0
	offset, err := scanLines(file, func(line string) {
		if filter != nil && !filter(line) {
			return
		}
		ring[next] = line
		next = (next + 1) % limit
		if count < limit {
			count++
		}
	})
	if err != nil {
		return Result{}, err
	}

	lines := make([]string, count)
	start := 0
	if count == limit {
		start = next
	}
	for i := range lines {
		lines[i] = ring[(start+i)%limit]
	}
	return Result{Lines: lines, Offset: offset}, nil
}

// ReadFrom returns the matching lines appended after offset. When the file
// shrank below offset (rotation) reading restarts at the beginning.
func ReadFrom(path string, offset int64, filter Filter) (Result, error) {
	file, err := openLog(path)
	if err != nil || file == nil {
		return Result{}, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return Result{Offset: offset}, fmt.Errorf("stat log file: %w", err)
	}
	if offset < 0 || offset > info.Size() {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return Result{Offset: offset}, fmt.Errorf("seek log file: %w", err)
	}

	var lines []string
	read, err := scanLines(file, func(line string) {
		if filter == nil || filter(line) {
			lines = append(lines, line)
		}
	})
	if err != nil {
		return Result{Offset: offset}, err
	}
	return Result{Lines: lines, Offset: offset + read}, nil
}

// Follow polls path from offset and hands each batch of new lines to emit
// until ctx is cancelled. It returns nil on cancellation.
func Follow(ctx context.Context, path string, offset int64, filter Filter, emit func([]string)) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		result, err := ReadFrom(path, offset, filter)
		if err != nil {
			return err
		}
		offset = result.Offset
		if len(result.Lines) > 0 {
			emit(result.Lines)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func openLog(path string) (*os.File, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("log path %q is a directory", path)
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return file, nil
}

// scanLines feeds every complete line of r to fn and returns the number of
// bytes consumed. A trailing partial line is left for the next read.
func scanLines(r io.Reader, fn func(string)) (int64, error) {
	reader := bufio.NewReaderSize(r, 64*1024)
	var consumed int64
	for {
		line, err := reader.ReadString('\n')
		if err == nil {
			consumed += int64(len(line))
			text := line[:len(line)-1]
			if n := len(text); n > 0 && text[n-1] == '\r' {
				text = text[:n-1]
			}
			if len(text) > maxLineBytes {
				text = text[:maxLineBytes]
			}
			fn(text)
			continue
		}
		if errors.Is(err, io.EOF) {
			return consumed, nil
		}
		return consumed, fmt.Errorf("read log file: %w", err)
	}
}
