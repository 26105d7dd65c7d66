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

package dram

import (
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/google/gopacket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soclab/go-dram/pkg/layers"
	"github.com/soclab/go-dram/pkg/smem"
)

func buildBlob(t *testing.T, info *layers.DDRInfo) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	layer := &layers.DDRInfoLayer{DDRInfo: info}
	require.NoError(t, layer.SerializeTo(buf, gopacket.SerializeOptions{}))
	return buf.Bytes()
}

func v3Info() *layers.DDRInfo {
	info := &layers.DDRInfo{
		Version:     layers.DDRInfoV3,
		DeviceType:  layers.DDRTypeLPDDR4X,
		NumDDRFreqs: 1,
		NumChannels: 4,
		FreqTable:   make([]layers.DDRFreq, layers.DDRFreqNumV3),
	}
	info.FreqTable[0] = layers.DDRFreq{FreqKHz: 1600000, Enabled: 1}
	return info
}

func TestParse(t *testing.T) {
	result, err := Parse(buildBlob(t, v3Info()))
	require.NoError(t, err)

	assert.Equal(t, layers.DDRInfoV3, result.Version)
	assert.Equal(t, []uint64{1600000000}, result.Frequencies)
	assert.Equal(t, uint8(0), result.HighestBankBit)
	require.NotNil(t, result.Details)
	assert.Equal(t, layers.DDRTypeLPDDR4X, result.Details.DeviceType)
}

func TestParseErrors(t *testing.T) {
	t.Run("too small", func(t *testing.T) {
		_, err := Parse(make([]byte, 24))
		assert.Equal(t, layers.ErrBlobTooSmall{Size: 24}, err)
	})
	t.Run("unknown layout", func(t *testing.T) {
		_, err := Parse(make([]byte, 333))
		assert.Equal(t, layers.ErrUnknownLayout{Size: 333}, err)
	})
}

func TestParseV4BankBit(t *testing.T) {
	info := v3Info()
	info.Version = layers.DDRInfoV4
	info.FreqTable = make([]layers.DDRFreq, layers.DDRFreqNumV5)
	info.FreqTable[0] = layers.DDRFreq{FreqKHz: 2092800, Enabled: 1}
	info.HighestBankBit = 15

	result, err := Parse(buildBlob(t, info))
	require.NoError(t, err)
	assert.Equal(t, layers.DDRInfoV4, result.Version)
	assert.Equal(t, uint8(15), result.HighestBankBit)
}

func TestParseItem(t *testing.T) {
	builder := smem.NewBuilder(smem.DefaultRegionSize)
	require.NoError(t, builder.PutItem(smem.DDRInfoItem, buildBlob(t, v3Info())))
	data, err := builder.Bytes()
	require.NoError(t, err)
	store, err := smem.NewStore(data)
	require.NoError(t, err)

	result, err := ParseItem(store)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1600000000}, result.Frequencies)
}

func TestParseItemMissing(t *testing.T) {
	builder := smem.NewBuilder(smem.DefaultRegionSize)
	data, err := builder.Bytes()
	require.NoError(t, err)
	store, err := smem.NewStore(data)
	require.NoError(t, err)

	_, err = ParseItem(store)
	assert.Equal(t, smem.ErrItemNotFound{Item: smem.DDRInfoItem}, err)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smem.bin")
	builder := smem.NewBuilder(smem.DefaultRegionSize)
	require.NoError(t, builder.PutItem(smem.DDRInfoItem, buildBlob(t, v3Info())))
	require.NoError(t, builder.Persist(path))

	result, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, layers.DDRInfoV3, result.Version)
}

func TestCacheNoData(t *testing.T) {
	cache := NewCache()

	assert.Nil(t, cache.Result())

	_, err := cache.HighestBankBit()
	assert.Equal(t, ErrNoData{}, err)

	_, err = cache.Frequencies()
	assert.Equal(t, ErrNoData{}, err)
}

func TestCacheLastWriteWins(t *testing.T) {
	cache := NewCache()

	first := &Result{Version: layers.DDRInfoV3, Frequencies: []uint64{1600000000}}
	second := &Result{Version: layers.DDRInfoV4, Frequencies: []uint64{2092800000}, HighestBankBit: 15}

	cache.Set(first)
	cache.Set(second)

	assert.Same(t, second, cache.Result())

	hbb, err := cache.HighestBankBit()
	require.NoError(t, err)
	assert.Equal(t, uint8(15), hbb)
}

func TestCacheFrequenciesCopy(t *testing.T) {
	cache := NewCache()
	cache.Set(&Result{Frequencies: []uint64{1600000000, 2092800000}})

	freqs, err := cache.Frequencies()
	require.NoError(t, err)
	freqs[0] = 1

	again, err := cache.Frequencies()
	require.NoError(t, err)
	assert.Equal(t, []uint64{1600000000, 2092800000}, again)
}

func TestParseDecodedByteOrder(t *testing.T) {
	// spot check the serializer against a raw little endian write
	blob := buildBlob(t, v3Info())
	assert.Equal(t, uint32(1600000), binary.LittleEndian.Uint32(blob[72:76]))
	assert.Equal(t, uint8(1), blob[76])
}
