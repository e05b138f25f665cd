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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "30s", want: 30 * time.Second},
		{in: "5m", want: 5 * time.Minute},
		{in: "2h", want: 2 * time.Hour},
		{in: "1d", want: 24 * time.Hour},
		{in: "1w", want: 7 * 24 * time.Hour},
		{in: "1M", want: 30 * 24 * time.Hour},
		{in: "1y", want: 365 * 24 * time.Hour},
		{in: "1h30m", want: 90 * time.Minute},
		{in: "", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "-5m", wantErr: true},
		{in: "10x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMustParse(t *testing.T) {
	assert.Equal(t, time.Hour, MustParse("1h"))
	assert.Panics(t, func() { MustParse("bogus") })
}

func TestDuration_UnmarshalJSON(t *testing.T) {
	var v struct {
		Timeout Duration `json:"timeout"`
		Wait    Duration `json:"wait"`
		Empty   Duration `json:"empty"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"timeout":"2d","wait":90,"empty":null}`), &v))
	assert.Equal(t, 48*time.Hour, v.Timeout.Std())
	assert.Equal(t, 90*time.Second, v.Wait.Std())
	assert.Equal(t, time.Duration(0), v.Empty.Std())

	assert.Error(t, json.Unmarshal([]byte(`{"timeout":"later"}`), &v))
	assert.Error(t, json.Unmarshal([]byte(`{"timeout":true}`), &v))

	out, err := json.Marshal(Duration(90 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, `"1m30s"`, string(out))
}
