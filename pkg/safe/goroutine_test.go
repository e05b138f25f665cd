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

package safe

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo(t *testing.T) {
	err := Do(func() { panic("stage exploded") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stage exploded")

	assert.NoError(t, Do(func() {}))
}

func TestGo(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(2)
	Go(func() {
		defer wg.Done()
		panic("boom")
	})
	ran := false
	Go(func() {
		defer wg.Done()
		ran = true
	})
	wg.Wait()
	assert.True(t, ran)
}
