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

package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersistLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigDir, ConfigFile)

	cfg := NewDefaultConfig()
	cfg.filepath = path
	cfg.IP = "0.0.0.0"
	cfg.ApiPort = 9999
	cfg.SmemPath = "/tmp/smem.bin"
	cfg.LogLevel = "debug"
	require.NoError(t, cfg.Persist(false))

	loaded := NewDefaultConfig()
	loaded.filepath = path
	require.NoError(t, loaded.Load())

	assert.Equal(t, "0.0.0.0", loaded.IP)
	assert.Equal(t, 9999, loaded.ApiPort)
	assert.Equal(t, "/tmp/smem.bin", loaded.SmemPath)
	assert.Equal(t, "debug", loaded.LogLevel)
}

func TestPersistExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFile)

	cfg := NewDefaultConfig()
	cfg.filepath = path
	require.NoError(t, cfg.Persist(false))

	err := cfg.Persist(false)
	assert.Equal(t, ErrConfigFileExists{Path: path}, err)

	assert.NoError(t, cfg.Persist(true))
}

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.filepath = filepath.Join(t.TempDir(), "missing")

	require.NoError(t, cfg.Load())
	assert.Equal(t, DefaultIP, cfg.IP)
	assert.Equal(t, DefaultApiPort, cfg.ApiPort)
}
