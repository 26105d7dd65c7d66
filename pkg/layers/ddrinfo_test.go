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

package layers

import (
	"encoding/binary"
	"testing"

	"github.com/google/gopacket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferDDRInfoVersion(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		version DDRInfoVersion
	}{
		{"empty", 0, DDRInfoTooSmall},
		{"one below v3", DDRInfoSizeV3 - 1, DDRInfoTooSmall},
		{"v3", DDRInfoSizeV3, DDRInfoV3},
		{"one above v3", DDRInfoSizeV3 + 1, DDRInfoUnknown},
		{"v3 extra freq", DDRInfoSizeV3ExtraFreq, DDRInfoV3ExtraFreq},
		{"v4", DDRInfoSizeV4, DDRInfoV4},
		{"v5 base without regions", DDRInfoSizeV5Base, DDRInfoUnknown},
		{"v5 one region", DDRInfoSizeV5Base + DDRInfoRegionSize, DDRInfoUnknown},
		{"v5 four regions", DDRInfoSizeV5FourRegions, DDRInfoV5FourRegions},
		{"v5 five regions", DDRInfoSizeV5Base + 5*DDRInfoRegionSize, DDRInfoUnknown},
		{"v5 six regions", DDRInfoSizeV5SixRegions, DDRInfoV5SixRegions},
		{"oversized", 1024, DDRInfoUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.version, InferDDRInfoVersion(tt.size))
		})
	}
}

func TestDDRInfoSize(t *testing.T) {
	versions := []DDRInfoVersion{
		DDRInfoV3,
		DDRInfoV3ExtraFreq,
		DDRInfoV4,
		DDRInfoV5FourRegions,
		DDRInfoV5SixRegions,
	}
	// sizes are the classifier input so no two layouts may share one
	seen := make(map[int]DDRInfoVersion)
	for _, version := range versions {
		size, err := DDRInfoSize(version)
		require.NoError(t, err)
		previous, dup := seen[size]
		assert.False(t, dup, "size %d assigned to both %s and %s", size, previous, version)
		seen[size] = version
		assert.Equal(t, version, InferDDRInfoVersion(size))
	}

	_, err := DDRInfoSize(DDRInfoUnknown)
	assert.Error(t, err)
	_, err = DDRInfoSize(DDRInfoTooSmall)
	assert.Error(t, err)
}

// blob helpers write fields at their layout offsets so the decoder is
// checked against the raw format, not against the serializer

func putFreq(blob []byte, slot int, khz uint32, enabled uint8) {
	off := 72 + slot*8
	binary.LittleEndian.PutUint32(blob[off:off+4], khz)
	blob[off+4] = enabled
}

func buildV3Blob() []byte {
	blob := make([]byte, DDRInfoSizeV3)
	blob[0] = 0x06                                      // manufacturer
	blob[1] = uint8(DDRTypeLPDDR4X)                     // device type
	binary.LittleEndian.PutUint16(blob[2:4], 1)         // part 0 revision 1
	binary.LittleEndian.PutUint16(blob[4:6], 3)         // part 0 revision 2
	binary.LittleEndian.PutUint16(blob[6:8], 16)        // part 0 width
	binary.LittleEndian.PutUint16(blob[8:10], 6)        // part 0 density
	putFreq(blob, 0, 1600000, 1)
	putFreq(blob, 1, 0, 1)       // khz zero, must be skipped
	putFreq(blob, 2, 2092800, 0) // disabled, must be skipped
	putFreq(blob, 3, 547200, 1)
	blob[176] = 2                                                 // num_ddr_freqs
	binary.LittleEndian.PutUint64(blob[184:192], 0x8000_0000)     // clk period address
	blob[192] = 4                                                 // num channels
	return blob
}

func TestDecodeV3(t *testing.T) {
	packet := gopacket.NewPacket(buildV3Blob(), DDRInfoLayerType, gopacket.Default)
	require.Nil(t, packet.ErrorLayer())

	layer := packet.Layer(DDRInfoLayerType)
	require.NotNil(t, layer)
	info := layer.(*DDRInfoLayer).DDRInfo

	assert.Equal(t, DDRInfoV3, info.Version)
	assert.Equal(t, uint8(0x06), info.ManufacturerID)
	assert.Equal(t, DDRTypeLPDDR4X, info.DeviceType)
	assert.Equal(t, PartDetails{RevisionID1: 1, RevisionID2: 3, Width: 16, Density: 6}, info.PartDetails[0])
	assert.Equal(t, uint8(2), info.NumDDRFreqs)
	assert.Equal(t, uint64(0x8000_0000), info.ClkPeriodAddress)
	assert.Equal(t, uint8(4), info.NumChannels)
	assert.Equal(t, uint8(0), info.HighestBankBit)
	assert.Nil(t, info.Regions)
	assert.Len(t, info.FreqTable, DDRFreqNumV3)

	// zero and disabled slots dropped, table order kept, kHz scaled to Hz
	assert.Equal(t, []uint64{1600000000, 547200000}, info.Frequencies())
}

func TestDecodeV3WalksAllSlotsDespiteCount(t *testing.T) {
	blob := buildV3Blob()
	putFreq(blob, 12, 3200000, 1) // far past num_ddr_freqs which says 2

	packet := gopacket.NewPacket(blob, DDRInfoLayerType, gopacket.Default)
	require.Nil(t, packet.ErrorLayer())
	info := packet.Layer(DDRInfoLayerType).(*DDRInfoLayer).DDRInfo

	assert.Equal(t, []uint64{1600000000, 547200000, 3200000000}, info.Frequencies())
}

func TestDecodeV4(t *testing.T) {
	blob := make([]byte, DDRInfoSizeV4)
	blob[0] = 0xff
	blob[1] = uint8(DDRTypeLPDDR5)
	putFreq(blob, 0, 2092800, 1)
	blob[176] = 1                                             // num_ddr_freqs
	binary.LittleEndian.PutUint64(blob[184:192], 0x8044_0000) // clk period address
	blob[192] = 8                                             // num channels
	for ch := 0; ch < DDRChannelNum; ch++ {
		blob[193+ch] = 2
	}
	blob[201] = 5 // bank bit table entry [0][0]
	blob[202] = 9 // rest of the table must be ignored
	blob[209] = 9

	packet := gopacket.NewPacket(blob, DDRInfoLayerType, gopacket.Default)
	require.Nil(t, packet.ErrorLayer())
	info := packet.Layer(DDRInfoLayerType).(*DDRInfoLayer).DDRInfo

	assert.Equal(t, DDRInfoV4, info.Version)
	assert.Equal(t, uint8(8), info.NumChannels)
	assert.Equal(t, [DDRChannelNum]uint8{2, 2, 2, 2, 2, 2, 2, 2}, info.NumRanks)
	assert.Equal(t, uint8(5), info.HighestBankBit)
	assert.Len(t, info.FreqTable, DDRFreqNumV5)
	assert.Equal(t, []uint64{2092800000}, info.Frequencies())
}

func TestDecodeV4FreqSlotAliasesPlan(t *testing.T) {
	// slot 13 of the v4 table overlays num_ddr_freqs and its padding, the
	// padding byte doubles as the enabled flag so the slot never counts
	blob := make([]byte, DDRInfoSizeV4)
	putFreq(blob, 0, 547200, 1)
	blob[176] = 77 // num_ddr_freqs, also slot 13 kHz low byte

	packet := gopacket.NewPacket(blob, DDRInfoLayerType, gopacket.Default)
	require.Nil(t, packet.ErrorLayer())
	info := packet.Layer(DDRInfoLayerType).(*DDRInfoLayer).DDRInfo

	assert.Equal(t, uint8(77), info.NumDDRFreqs)
	assert.Equal(t, []uint64{547200000}, info.Frequencies())
}

func buildV5Blob(regionNum int) []byte {
	blob := make([]byte, DDRInfoSizeV5Base+regionNum*DDRInfoRegionSize)
	blob[0] = 0x01
	blob[1] = uint8(DDRTypeLPDDR5X)
	putFreq(blob, 0, 547200, 1)
	putFreq(blob, 1, 2736000, 1)
	blob[184] = 2                                              // num_ddr_freqs
	binary.LittleEndian.PutUint64(blob[192:200], 0x80AF_0000)  // clk period address
	binary.LittleEndian.PutUint32(blob[200:204], 4224000)      // max nominal kHz
	blob[208] = 4                                              // num channels
	binary.LittleEndian.PutUint32(blob[216:220], 9999)         // ddr_region_num, display only
	binary.LittleEndian.PutUint64(blob[224:232], 8<<30)        // rank 0 size
	binary.LittleEndian.PutUint64(blob[232:240], 8<<30)        // rank 1 size
	binary.LittleEndian.PutUint64(blob[240:248], 0x0_8000_0000) // cs0 start
	binary.LittleEndian.PutUint64(blob[248:256], 0x2_0000_0000) // cs1 start
	binary.LittleEndian.PutUint32(blob[256:260], 0x0103)       // highest bank bit, truncated to u8
	for i := 0; i < regionNum; i++ {
		off := 264 + i*DDRInfoRegionSize
		binary.LittleEndian.PutUint64(blob[off:off+8], 0x8000_0000+uint64(i)<<31)
		binary.LittleEndian.PutUint64(blob[off+8:off+16], 2<<30)
		binary.LittleEndian.PutUint64(blob[off+16:off+24], uint64(i)<<31)
		binary.LittleEndian.PutUint32(blob[off+24:off+28], 512)
		blob[off+28] = uint8(i % 2)
		blob[off+29] = uint8(i)
		binary.LittleEndian.PutUint64(blob[off+32:off+40], uint64(i)*0x1000)
	}
	return blob
}

func TestDecodeV5(t *testing.T) {
	tests := []struct {
		name      string
		regionNum int
		version   DDRInfoVersion
	}{
		{"four regions", 4, DDRInfoV5FourRegions},
		{"six regions", 6, DDRInfoV5SixRegions},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			packet := gopacket.NewPacket(buildV5Blob(tt.regionNum), DDRInfoLayerType, gopacket.Default)
			require.Nil(t, packet.ErrorLayer())
			info := packet.Layer(DDRInfoLayerType).(*DDRInfoLayer).DDRInfo

			assert.Equal(t, tt.version, info.Version)
			assert.Equal(t, uint32(4224000), info.MaxNomDDRFreq)
			assert.Equal(t, uint8(4), info.NumChannels)
			require.NotNil(t, info.Regions)
			// the embedded count is carried through untouched while the
			// walked region number follows the classified size
			assert.Equal(t, uint32(9999), info.Regions.RegionNum)
			assert.Len(t, info.Regions.Regions, tt.regionNum)
			assert.Equal(t, uint64(8<<30), info.Regions.Rank0Size)
			assert.Equal(t, uint64(0x2_0000_0000), info.Regions.Cs1StartAddr)
			assert.Equal(t, uint32(0x0103), info.Regions.HighestBankBit)
			assert.Equal(t, uint8(0x03), info.HighestBankBit)
			assert.Equal(t, DDRRegion{
				StartAddress:         0x8000_0000 + 1<<31,
				Size:                 2 << 30,
				MemControllerAddress: 1 << 31,
				GranuleSizeMiB:       512,
				Rank:                 1,
				SegmentsStartIndex:   1,
				SegmentsStartOffset:  0x1000,
			}, info.Regions.Regions[1])
			assert.Equal(t, []uint64{547200000, 2736000000}, info.Frequencies())
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	t.Run("too small", func(t *testing.T) {
		l := &DDRInfoLayer{}
		err := l.DecodeFromBytes(make([]byte, 42), gopacket.NilDecodeFeedback)
		assert.Equal(t, ErrBlobTooSmall{Size: 42}, err)
	})
	t.Run("unknown layout", func(t *testing.T) {
		l := &DDRInfoLayer{}
		err := l.DecodeFromBytes(make([]byte, 300), gopacket.NilDecodeFeedback)
		assert.Equal(t, ErrUnknownLayout{Size: 300}, err)
	})
	t.Run("too small blob marks packet truncated", func(t *testing.T) {
		packet := gopacket.NewPacket(make([]byte, 100), DDRInfoLayerType, gopacket.Default)
		require.NotNil(t, packet.ErrorLayer())
		assert.True(t, packet.Metadata().Truncated)
	})
}

func TestDecodeIdempotence(t *testing.T) {
	blob := buildV5Blob(4)

	l := &DDRInfoLayer{}
	require.NoError(t, l.DecodeFromBytes(blob, gopacket.NilDecodeFeedback))
	first := l.DDRInfo

	// Reusing the layer must not leak state into the second decode.
	require.NoError(t, l.DecodeFromBytes(blob, gopacket.NilDecodeFeedback))
	second := l.DDRInfo

	assert.NotSame(t, first, second)
	assert.Equal(t, first, second)
	assert.Equal(t, first.Frequencies(), second.Frequencies())

	fresh := &DDRInfoLayer{}
	require.NoError(t, fresh.DecodeFromBytes(blob, gopacket.NilDecodeFeedback))
	assert.Equal(t, first, fresh.DDRInfo)
}

func TestFrequenciesDedupe(t *testing.T) {
	blob := buildV3Blob()
	putFreq(blob, 4, 1600000, 1) // same rate as slot 0

	packet := gopacket.NewPacket(blob, DDRInfoLayerType, gopacket.Default)
	require.Nil(t, packet.ErrorLayer())
	info := packet.Layer(DDRInfoLayerType).(*DDRInfoLayer).DDRInfo

	assert.Equal(t, []uint64{1600000000, 547200000}, info.Frequencies())
}

func TestFrequenciesEmptyNotNil(t *testing.T) {
	blob := make([]byte, DDRInfoSizeV3)

	packet := gopacket.NewPacket(blob, DDRInfoLayerType, gopacket.Default)
	require.Nil(t, packet.ErrorLayer())
	info := packet.Layer(DDRInfoLayerType).(*DDRInfoLayer).DDRInfo

	freqs := info.Frequencies()
	assert.NotNil(t, freqs)
	assert.Empty(t, freqs)
}

func TestSerializeRoundTrip(t *testing.T) {
	versions := []DDRInfoVersion{
		DDRInfoV3,
		DDRInfoV3ExtraFreq,
		DDRInfoV4,
		DDRInfoV5FourRegions,
		DDRInfoV5SixRegions,
	}
	for _, version := range versions {
		t.Run(version.String(), func(t *testing.T) {
			original := &DDRInfo{
				Version:          version,
				ManufacturerID:   0x06,
				DeviceType:       DDRTypeLPDDR4X,
				NumDDRFreqs:      2,
				ClkPeriodAddress: 0x8000_0000,
				NumChannels:      4,
				FreqTable:        make([]DDRFreq, DDRInfoFreqNum(version)),
			}
			original.PartDetails[0] = PartDetails{RevisionID1: 1, RevisionID2: 3, Width: 16, Density: 6}
			original.FreqTable[0] = DDRFreq{FreqKHz: 1600000, Enabled: 1}
			original.FreqTable[1] = DDRFreq{FreqKHz: 2092800, Enabled: 1}
			switch version {
			case DDRInfoV4:
				original.NumRanks = [DDRChannelNum]uint8{2, 2, 2, 2}
				original.HighestBankBit = 15
				// slot 13 aliases the plan tail, so a decode of the
				// serialized blob reads num_ddr_freqs back as its kHz value
				original.FreqTable[13] = DDRFreq{FreqKHz: 2}
			case DDRInfoV5FourRegions, DDRInfoV5SixRegions:
				regionNum := DDRInfoRegionNum(version)
				original.MaxNomDDRFreq = 4224000
				original.HighestBankBit = 16
				original.Regions = &DDRRegions{
					RegionNum:      uint32(regionNum),
					Rank0Size:      4 << 30,
					Rank1Size:      4 << 30,
					Cs0StartAddr:   0x8000_0000,
					Cs1StartAddr:   0x1_8000_0000,
					HighestBankBit: 16,
					Regions:        make([]DDRRegion, regionNum),
				}
				for i := range original.Regions.Regions {
					original.Regions.Regions[i] = DDRRegion{
						StartAddress: 0x8000_0000 + uint64(i)<<31,
						Size:         2 << 30,
						Rank:         uint8(i % 2),
					}
				}
			}

			buf := gopacket.NewSerializeBuffer()
			layer := &DDRInfoLayer{DDRInfo: original}
			require.NoError(t, layer.SerializeTo(buf, gopacket.SerializeOptions{}))

			size, err := DDRInfoSize(version)
			require.NoError(t, err)
			require.Len(t, buf.Bytes(), size)

			decoded := &DDRInfoLayer{}
			require.NoError(t, decoded.DecodeFromBytes(buf.Bytes(), gopacket.NilDecodeFeedback))
			assert.Equal(t, original, decoded.DDRInfo)
		})
	}
}

func TestSerializeSizeMismatch(t *testing.T) {
	info := &DDRInfo{Version: DDRInfoV3}
	err := info.Serialize(make([]byte, DDRInfoSizeV4))
	assert.Error(t, err)

	info.Version = DDRInfoUnknown
	err = info.Serialize(make([]byte, DDRInfoSizeV3))
	assert.Error(t, err)
}

func TestDDRInfoVersionJSON(t *testing.T) {
	for _, version := range []DDRInfoVersion{
		DDRInfoTooSmall,
		DDRInfoV3,
		DDRInfoV3ExtraFreq,
		DDRInfoV4,
		DDRInfoV5FourRegions,
		DDRInfoV5SixRegions,
		DDRInfoUnknown,
	} {
		out, err := version.MarshalJSON()
		require.NoError(t, err)
		var decoded DDRInfoVersion
		require.NoError(t, decoded.UnmarshalJSON(out))
		assert.Equal(t, version, decoded)
	}

	var v DDRInfoVersion
	assert.Error(t, v.UnmarshalJSON([]byte(`"v9"`)))
}
