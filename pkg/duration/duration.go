// Copyright 2025 Arcade Team
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package duration

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var (
	durationRegex = regexp.MustCompile(`^(\d+)([smhdwMy])$`)

	// ErrInvalidFormat indicates an invalid duration format
	ErrInvalidFormat = errors.New("invalid duration format")
)

var units = map[string]time.Duration{
	"s": time.Second,
	"m": time.Minute,
	"h": time.Hour,
	"d": 24 * time.Hour,
	"w": 7 * 24 * time.Hour,
	"M": 30 * 24 * time.Hour,
	"y": 365 * 24 * time.Hour,
}

// Parse accepts either a single number with a unit (s, m, h, d, w, M as 30
// days, y as 365 days) or anything time.ParseDuration understands, such as
// "1h30m". Negative values are rejected.
func Parse(s string) (time.Duration, error) {
	if s == "" {
		return 0, ErrInvalidFormat
	}

	if matches := durationRegex.FindStringSubmatch(s); len(matches) == 3 {
		value, err := strconv.ParseInt(matches[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s", ErrInvalidFormat, s)
		}
		return time.Duration(value) * units[matches[2]], nil
	}

	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidFormat, s)
	}
	return d, nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) time.Duration {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Duration is a time.Duration that decodes from strings like "30m" or "2d"
// in YAML/JSON documents. A bare number is read as seconds.
type Duration time.Duration

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*d = 0
	case float64:
		if v < 0 {
			return fmt.Errorf("%w: %v", ErrInvalidFormat, v)
		}
		*d = Duration(time.Duration(v * float64(time.Second)))
	case string:
		parsed, err := Parse(v)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
	default:
		return fmt.Errorf("%w: %s", ErrInvalidFormat, string(b))
	}
	return nil
}
