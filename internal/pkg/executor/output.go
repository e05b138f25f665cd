package executor

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

const truncatedMarker = "...[truncated]\n"

// tailBuffer keeps the last max bytes written to it
type tailBuffer struct {
	max       int
	buf       []byte
	truncated bool
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	b.buf = append(b.buf, p...)
	if b.max > 0 && len(b.buf) > b.max {
		b.buf = b.buf[len(b.buf)-b.max:]
		b.truncated = true
	}
	return n, nil
}

func (b *tailBuffer) String() string {
	if b.truncated {
		return truncatedMarker + string(b.buf)
	}
	return string(b.buf)
}

// ParseOutputs reads a CONVEYOR_OUTPUT file: key=value lines, plus
// key<<DELIM blocks for multi-line values. A missing file has no outputs.
func ParseOutputs(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}
	return parseOutputs(data)
}

func parseOutputs(data []byte) (map[string]string, error) {
	out := map[string]string{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(text) == "" || strings.HasPrefix(text, "#") {
			continue
		}

		if key, delim, ok := strings.Cut(text, "<<"); ok && !strings.Contains(key, "=") {
			var lines []string
			closed := false
			for sc.Scan() {
				line++
				l := strings.TrimRight(sc.Text(), "\r")
				if l == delim {
					closed = true
					break
				}
				lines = append(lines, l)
			}
			if !closed {
				return nil, fmt.Errorf("output %q: missing delimiter %q", key, delim)
			}
			out[strings.TrimSpace(key)] = strings.Join(lines, "\n")
			continue
		}

		key, value, ok := strings.Cut(text, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("output line %d: expected key=value", line)
		}
		out[key] = value
	}
	return out, sc.Err()
}
