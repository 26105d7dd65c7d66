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
	"errors"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/soclab/go-dram/pkg/log"
)

const (
	// DDRInfoLayerNum identifies the layer
	DDRInfoLayerNum = 2001
)

// DDRInfoLayer ...
type DDRInfoLayer struct {
	layers.BaseLayer
	*DDRInfo
}

var DDRInfoLayerType = gopacket.RegisterLayerType(DDRInfoLayerNum,
	gopacket.LayerTypeMetadata{Name: "DDRInfoLayerType", Decoder: gopacket.DecodeFunc(DecodeDDRInfoLayer)})

// LayerType returns the type of the DDRInfo layer in the layer catalog
func (l *DDRInfoLayer) LayerType() gopacket.LayerType {
	return DDRInfoLayerType
}

// DecodeFromBytes classifies the blob by its exact size and decodes the
// matching layout. Every concrete layout is decoded with plain offset reads,
// the classified size guarantees that all of them are in bounds.
func (l *DDRInfoLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	version := InferDDRInfoVersion(len(data))
	log.Debug("DecodeFromBytes: decoding DDR info blob: size: %d version: %s", len(data), version)

	switch version {
	case DDRInfoTooSmall:
		df.SetTruncated()
		return ErrBlobTooSmall{Size: len(data)}
	case DDRInfoUnknown:
		return ErrUnknownLayout{Size: len(data)}
	}

	l.BaseLayer = layers.BaseLayer{
		Contents: data,
		Payload:  []byte{},
	}

	info := &DDRInfo{Version: version}
	info.decodeCommon(data)

	switch version {
	case DDRInfoV3:
		info.decodePlan(data, DDRFreqNumV3, offNumFreqsV3, offClkPeriodV3)
		info.NumChannels = data[offNumChannelsV3]
	case DDRInfoV3ExtraFreq:
		info.decodePlan(data, DDRFreqNumV5, offNumFreqsV3Extra, offClkPeriodV3Extra)
		info.NumChannels = data[offNumChannelsV3Extra]
	case DDRInfoV4:
		info.decodeV4(data)
	case DDRInfoV5FourRegions:
		info.decodeV5(data, 4)
	case DDRInfoV5SixRegions:
		info.decodeV5(data, 6)
	}

	l.DDRInfo = info
	return nil
}

func (info *DDRInfo) decodeCommon(data []byte) {
	info.ManufacturerID = data[offManufacturerID]
	info.DeviceType = DDRType(data[offDeviceType])
	for i := 0; i < DDRChannelNum; i++ {
		off := offPartDetails + i*partDetailsSize
		info.PartDetails[i] = PartDetails{
			RevisionID1: binary.LittleEndian.Uint16(data[off : off+2]),
			RevisionID2: binary.LittleEndian.Uint16(data[off+2 : off+4]),
			Width:       binary.LittleEndian.Uint16(data[off+4 : off+6]),
			Density:     binary.LittleEndian.Uint16(data[off+6 : off+8]),
		}
	}
}

func (info *DDRInfo) decodeFreqTable(data []byte, freqNum int) {
	for i := 0; i < freqNum; i++ {
		off := offFreqTable + i*freqEntrySize
		info.FreqTable = append(info.FreqTable, DDRFreq{
			FreqKHz: binary.LittleEndian.Uint32(data[off : off+4]),
			Enabled: data[off+4],
		})
	}
}

func (info *DDRInfo) decodePlan(data []byte, freqNum int, offNumFreqs int, offClkPeriod int) {
	info.decodeFreqTable(data, freqNum)
	info.NumDDRFreqs = data[offNumFreqs]
	info.ClkPeriodAddress = binary.LittleEndian.Uint64(data[offClkPeriod : offClkPeriod+8])
}

func (info *DDRInfo) decodeV4(data []byte) {
	// the v4 plan keeps the v3 field offsets while the table walk covers
	// one more slot, the extra slot aliases the count and padding bytes
	// and is filtered out by its enabled flag
	info.decodePlan(data, DDRFreqNumV5, offNumFreqsV3, offClkPeriodV3)
	info.NumChannels = data[offNumChannelsV4]
	copy(info.NumRanks[:], data[offNumRanksV4:offNumRanksV4+DDRChannelNum])
	// only entry [0][0] of the bank bit table is authoritative
	info.HighestBankBit = data[offBankBitV4]
}

func (info *DDRInfo) decodeV5(data []byte, regionNum int) {
	info.decodePlan(data, DDRFreqNumV5, offNumFreqsV5, offClkPeriodV5)
	info.MaxNomDDRFreq = binary.LittleEndian.Uint32(data[offMaxNomFreqV5 : offMaxNomFreqV5+4])
	info.NumChannels = data[offNumChannelsV5]

	regions := &DDRRegions{
		RegionNum:      binary.LittleEndian.Uint32(data[offRegionNumV5 : offRegionNumV5+4]),
		Rank0Size:      binary.LittleEndian.Uint64(data[offRank0SizeV5 : offRank0SizeV5+8]),
		Rank1Size:      binary.LittleEndian.Uint64(data[offRank1SizeV5 : offRank1SizeV5+8]),
		Cs0StartAddr:   binary.LittleEndian.Uint64(data[offCs0StartV5 : offCs0StartV5+8]),
		Cs1StartAddr:   binary.LittleEndian.Uint64(data[offCs1StartV5 : offCs1StartV5+8]),
		HighestBankBit: binary.LittleEndian.Uint32(data[offBankBitV5 : offBankBitV5+4]),
	}
	// regionNum comes from the size classification, not from the blob
	for i := 0; i < regionNum; i++ {
		off := offRegionsV5 + i*DDRInfoRegionSize
		regions.Regions = append(regions.Regions, DDRRegion{
			StartAddress:         binary.LittleEndian.Uint64(data[off : off+8]),
			Size:                 binary.LittleEndian.Uint64(data[off+8 : off+16]),
			MemControllerAddress: binary.LittleEndian.Uint64(data[off+16 : off+24]),
			GranuleSizeMiB:       binary.LittleEndian.Uint32(data[off+24 : off+28]),
			Rank:                 data[off+28],
			SegmentsStartIndex:   data[off+29],
			SegmentsStartOffset:  binary.LittleEndian.Uint64(data[off+32 : off+40]),
		})
	}
	info.Regions = regions
	info.HighestBankBit = uint8(regions.HighestBankBit)
}

// Serialize writes the DDR info fields into buf which must be exactly the
// size of the version layout. Field offsets mirror DecodeFromBytes.
func (info *DDRInfo) Serialize(buf []byte) error {
	size, err := DDRInfoSize(info.Version)
	if err != nil {
		return err
	}
	if len(buf) != size {
		return errors.New("Invalid DDR info buffer: length does not match the version layout")
	}

	buf[offManufacturerID] = info.ManufacturerID
	buf[offDeviceType] = uint8(info.DeviceType)
	for i, part := range info.PartDetails {
		off := offPartDetails + i*partDetailsSize
		binary.LittleEndian.PutUint16(buf[off:off+2], part.RevisionID1)
		binary.LittleEndian.PutUint16(buf[off+2:off+4], part.RevisionID2)
		binary.LittleEndian.PutUint16(buf[off+4:off+6], part.Width)
		binary.LittleEndian.PutUint16(buf[off+6:off+8], part.Density)
	}

	freqNum := DDRInfoFreqNum(info.Version)
	for i, slot := range info.FreqTable {
		if i >= freqNum {
			break
		}
		off := offFreqTable + i*freqEntrySize
		binary.LittleEndian.PutUint32(buf[off:off+4], slot.FreqKHz)
		buf[off+4] = slot.Enabled
	}

	switch info.Version {
	case DDRInfoV3:
		info.serializePlan(buf, offNumFreqsV3, offClkPeriodV3)
		buf[offNumChannelsV3] = info.NumChannels
	case DDRInfoV3ExtraFreq:
		info.serializePlan(buf, offNumFreqsV3Extra, offClkPeriodV3Extra)
		buf[offNumChannelsV3Extra] = info.NumChannels
	case DDRInfoV4:
		// freq table slot 13 overlaps these fields, write them last so
		// that the plan counts win over a stray slot value
		info.serializePlan(buf, offNumFreqsV3, offClkPeriodV3)
		buf[offNumChannelsV4] = info.NumChannels
		copy(buf[offNumRanksV4:offNumRanksV4+DDRChannelNum], info.NumRanks[:])
		buf[offBankBitV4] = info.HighestBankBit
	case DDRInfoV5FourRegions, DDRInfoV5SixRegions:
		info.serializePlan(buf, offNumFreqsV5, offClkPeriodV5)
		binary.LittleEndian.PutUint32(buf[offMaxNomFreqV5:offMaxNomFreqV5+4], info.MaxNomDDRFreq)
		buf[offNumChannelsV5] = info.NumChannels
		info.serializeRegions(buf)
	}

	return nil
}

func (info *DDRInfo) serializePlan(buf []byte, offNumFreqs int, offClkPeriod int) {
	buf[offNumFreqs] = info.NumDDRFreqs
	binary.LittleEndian.PutUint64(buf[offClkPeriod:offClkPeriod+8], info.ClkPeriodAddress)
}

func (info *DDRInfo) serializeRegions(buf []byte) {
	if info.Regions == nil {
		return
	}
	binary.LittleEndian.PutUint32(buf[offRegionNumV5:offRegionNumV5+4], info.Regions.RegionNum)
	binary.LittleEndian.PutUint64(buf[offRank0SizeV5:offRank0SizeV5+8], info.Regions.Rank0Size)
	binary.LittleEndian.PutUint64(buf[offRank1SizeV5:offRank1SizeV5+8], info.Regions.Rank1Size)
	binary.LittleEndian.PutUint64(buf[offCs0StartV5:offCs0StartV5+8], info.Regions.Cs0StartAddr)
	binary.LittleEndian.PutUint64(buf[offCs1StartV5:offCs1StartV5+8], info.Regions.Cs1StartAddr)
	binary.LittleEndian.PutUint32(buf[offBankBitV5:offBankBitV5+4], info.Regions.HighestBankBit)
	regionNum := DDRInfoRegionNum(info.Version)
	for i, region := range info.Regions.Regions {
		if i >= regionNum {
			break
		}
		off := offRegionsV5 + i*DDRInfoRegionSize
		binary.LittleEndian.PutUint64(buf[off:off+8], region.StartAddress)
		binary.LittleEndian.PutUint64(buf[off+8:off+16], region.Size)
		binary.LittleEndian.PutUint64(buf[off+16:off+24], region.MemControllerAddress)
		binary.LittleEndian.PutUint32(buf[off+24:off+28], region.GranuleSizeMiB)
		buf[off+28] = region.Rank
		buf[off+29] = region.SegmentsStartIndex
		binary.LittleEndian.PutUint64(buf[off+32:off+40], region.SegmentsStartOffset)
	}
}

// SerializeTo serializes the DDRInfo layer into bytes and writes the bytes
// to the SerializeBuffer
func (l *DDRInfoLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	size, err := DDRInfoSize(l.Version)
	if err != nil {
		return err
	}
	buf, err := b.AppendBytes(size)
	if err != nil {
		return err
	}
	return l.DDRInfo.Serialize(buf)
}

func DecodeDDRInfoLayer(data []byte, p gopacket.PacketBuilder) error {
	l := &DDRInfoLayer{}
	err := l.DecodeFromBytes(data, p)
	if err != nil {
		return err
	}
	p.AddLayer(l)
	return nil
}
