/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package srv

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soclab/go-dram/pkg/config"
	"github.com/soclab/go-dram/pkg/dram"
	"github.com/soclab/go-dram/pkg/layers"
)

func newTestState(t *testing.T) *State {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "state.db")
	state, err := NewState(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(state.Close)
	return state
}

func TestStateResultRoundTrip(t *testing.T) {
	state := newTestState(t)

	_, err := state.GetResult()
	assert.Equal(t, ErrKeyNotFound{What: KeyLatest}, err)

	result := &dram.Result{
		Version:        layers.DDRInfoV4,
		Frequencies:    []uint64{1600000000, 2092800000},
		HighestBankBit: 15,
	}
	require.NoError(t, state.SetResult(result))

	loaded, err := state.GetResult()
	require.NoError(t, err)
	assert.Equal(t, result.Version, loaded.Version)
	assert.Equal(t, result.Frequencies, loaded.Frequencies)
	assert.Equal(t, result.HighestBankBit, loaded.HighestBankBit)
}

func TestStateResultLastWriteWins(t *testing.T) {
	state := newTestState(t)

	require.NoError(t, state.SetResult(&dram.Result{Version: layers.DDRInfoV3}))
	require.NoError(t, state.SetResult(&dram.Result{Version: layers.DDRInfoV5SixRegions}))

	loaded, err := state.GetResult()
	require.NoError(t, err)
	assert.Equal(t, layers.DDRInfoV5SixRegions, loaded.Version)
}

func TestStateDiagnostics(t *testing.T) {
	state := newTestState(t)

	diags, err := state.GetDiagnostics()
	require.NoError(t, err)
	assert.Empty(t, diags)

	first := &Diagnostic{Size: 300, Reason: "test reason", ObservedAt: Now()}
	second := &Diagnostic{Size: 310, Reason: "other reason", ObservedAt: Now()}
	require.NoError(t, state.AddDiagnostic(first))
	require.NoError(t, state.AddDiagnostic(second))
	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)

	diags, err = state.GetDiagnostics()
	require.NoError(t, err)
	require.Len(t, diags, 2)
	// ksuid timestamps have one second precision so entries recorded in
	// the same second come back in random-payload order
	assert.ElementsMatch(t, []int{300, 310}, []int{diags[0].Size, diags[1].Size})
	assert.ElementsMatch(t, []string{"test reason", "other reason"}, []string{diags[0].Reason, diags[1].Reason})
}
