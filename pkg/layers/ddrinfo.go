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
	"encoding/json"
	"fmt"
	"strings"

	"sigs.k8s.io/yaml"

	"github.com/soclab/go-dram/pkg/log"
)

// boot_images ddr_driver structs, C natural alignment on a 64-bit target,
// all integers little-endian

const (
	// DDRChannelNum is the number of part detail slots in every layout
	DDRChannelNum = 8
	// DDRRankNum is the rank dimension of the v4 bank bit table
	DDRRankNum = 2
	// DDRFreqNumV3 is the frequency table length of the plain v3 layout
	DDRFreqNumV3 = 13
	// DDRFreqNumV5 is the frequency table length of all later layouts
	DDRFreqNumV5 = 14
)

const (
	DDRInfoSizeV3            = 200
	DDRInfoSizeV3ExtraFreq   = 208
	DDRInfoSizeV4            = 224
	DDRInfoSizeV5Base        = 264
	DDRInfoRegionSize        = 40
	DDRInfoSizeV5FourRegions = DDRInfoSizeV5Base + 4*DDRInfoRegionSize
	DDRInfoSizeV5SixRegions  = DDRInfoSizeV5Base + 6*DDRInfoRegionSize
)

// field offsets within the blob
const (
	offManufacturerID = 0
	offDeviceType     = 1
	offPartDetails    = 2
	offFreqTable      = 72

	partDetailsSize = 8
	freqEntrySize   = 8

	offNumFreqsV3    = 176
	offClkPeriodV3   = 184
	offNumChannelsV3 = 192

	offNumFreqsV3Extra    = 184
	offClkPeriodV3Extra   = 192
	offNumChannelsV3Extra = 200

	offNumChannelsV4 = 192
	offNumRanksV4    = 193
	offBankBitV4     = 201

	offNumFreqsV5    = 184
	offClkPeriodV5   = 192
	offMaxNomFreqV5  = 200
	offNumChannelsV5 = 208
	offRegionNumV5   = 216
	offRank0SizeV5   = 224
	offRank1SizeV5   = 232
	offCs0StartV5    = 240
	offCs1StartV5    = 248
	offBankBitV5     = 256
	offRegionsV5     = 264
)

// DDRInfoVersion identifies the blob layout generation. The producer ships
// no version field, the layout is recognized by the exact blob size only.
type DDRInfoVersion int

const (
	DDRInfoUnknown DDRInfoVersion = iota
	DDRInfoTooSmall
	DDRInfoV3
	DDRInfoV3ExtraFreq
	DDRInfoV4
	DDRInfoV5FourRegions
	DDRInfoV5SixRegions
)

// InferDDRInfoVersion classifies a blob by its size. Sizes below the v3
// layout mean the producer published nothing useful. Sizes that match no
// layout exactly are unknown, there is no nearest-size guessing.
func InferDDRInfoVersion(size int) DDRInfoVersion {
	if size < DDRInfoSizeV3 {
		return DDRInfoTooSmall
	}
	switch size {
	case DDRInfoSizeV3:
		return DDRInfoV3
	case DDRInfoSizeV3ExtraFreq:
		return DDRInfoV3ExtraFreq
	case DDRInfoSizeV4:
		return DDRInfoV4
	case DDRInfoSizeV5FourRegions:
		return DDRInfoV5FourRegions
	case DDRInfoSizeV5SixRegions:
		return DDRInfoV5SixRegions
	default:
		return DDRInfoUnknown
	}
}

// DDRInfoSize returns the exact blob size of a concrete layout version
func DDRInfoSize(version DDRInfoVersion) (int, error) {
	switch version {
	case DDRInfoV3:
		return DDRInfoSizeV3, nil
	case DDRInfoV3ExtraFreq:
		return DDRInfoSizeV3ExtraFreq, nil
	case DDRInfoV4:
		return DDRInfoSizeV4, nil
	case DDRInfoV5FourRegions:
		return DDRInfoSizeV5FourRegions, nil
	case DDRInfoV5SixRegions:
		return DDRInfoSizeV5SixRegions, nil
	default:
		return 0, ErrNoConcreteLayout{Version: version}
	}
}

// DDRInfoFreqNum returns the frequency table length of a concrete layout
// version, zero otherwise
func DDRInfoFreqNum(version DDRInfoVersion) int {
	switch version {
	case DDRInfoV3:
		return DDRFreqNumV3
	case DDRInfoV3ExtraFreq, DDRInfoV4, DDRInfoV5FourRegions, DDRInfoV5SixRegions:
		return DDRFreqNumV5
	default:
		return 0
	}
}

// DDRInfoRegionNum returns the trailing region record count of a layout
// version. The count is a property of the classified size, the ddr_region_num
// field inside the blob is never trusted.
func DDRInfoRegionNum(version DDRInfoVersion) int {
	switch version {
	case DDRInfoV5FourRegions:
		return 4
	case DDRInfoV5SixRegions:
		return 6
	default:
		return 0
	}
}

func (v DDRInfoVersion) String() string {
	switch v {
	case DDRInfoTooSmall:
		return "too-small"
	case DDRInfoV3:
		return "v3"
	case DDRInfoV3ExtraFreq:
		return "v3-extra-freq"
	case DDRInfoV4:
		return "v4"
	case DDRInfoV5FourRegions:
		return "v5-four-regions"
	case DDRInfoV5SixRegions:
		return "v5-six-regions"
	default:
		return "unknown"
	}
}

func (v *DDRInfoVersion) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

func (v *DDRInfoVersion) UnmarshalJSON(bytes []byte) error {
	trimmed := strings.Trim(string(bytes), "\"")
	versionMapping := map[string]DDRInfoVersion{
		"too-small":       DDRInfoTooSmall,
		"v3":              DDRInfoV3,
		"v3-extra-freq":   DDRInfoV3ExtraFreq,
		"v4":              DDRInfoV4,
		"v5-four-regions": DDRInfoV5FourRegions,
		"v5-six-regions":  DDRInfoV5SixRegions,
		"unknown":         DDRInfoUnknown,
	}
	version, ok := versionMapping[trimmed]
	if !ok {
		return fmt.Errorf("Unknown DDR info version: %s", trimmed)
	}
	*v = version
	return nil
}

// DDRType is the memory technology reported in the device_type field
type DDRType uint8

const (
	DDRTypeNoDDR DDRType = iota
	DDRTypeLPDDR1
	DDRTypeLPDDR2
	DDRTypePCDDR2
	DDRTypePCDDR3
	DDRTypeLPDDR3
	DDRTypeLPDDR4
	DDRTypeLPDDR4X
	DDRTypeLPDDR5
	DDRTypeLPDDR5X
)

func (t DDRType) String() string {
	switch t {
	case DDRTypeNoDDR:
		return "NODDR"
	case DDRTypeLPDDR1:
		return "LPDDR1"
	case DDRTypeLPDDR2:
		return "LPDDR2"
	case DDRTypePCDDR2:
		return "PCDDR2"
	case DDRTypePCDDR3:
		return "PCDDR3"
	case DDRTypeLPDDR3:
		return "LPDDR3"
	case DDRTypeLPDDR4:
		return "LPDDR4"
	case DDRTypeLPDDR4X:
		return "LPDDR4X"
	case DDRTypeLPDDR5:
		return "LPDDR5"
	case DDRTypeLPDDR5X:
		return "LPDDR5X"
	default:
		return fmt.Sprintf("DDRType(%d)", uint8(t))
	}
}

func (t *DDRType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *DDRType) UnmarshalJSON(bytes []byte) error {
	trimmed := strings.Trim(string(bytes), "\"")
	for ddrType := DDRTypeNoDDR; ddrType <= DDRTypeLPDDR5X; ddrType++ {
		if ddrType.String() == trimmed {
			*t = ddrType
			return nil
		}
	}
	var raw uint8
	if _, err := fmt.Sscanf(trimmed, "DDRType(%d)", &raw); err != nil {
		return fmt.Errorf("Unknown DDR type: %s", trimmed)
	}
	*t = DDRType(raw)
	return nil
}

// PartDetails ... // 8 bytes
type PartDetails struct {
	RevisionID1 uint16 `json:"revisionID1"`
	RevisionID2 uint16 `json:"revisionID2"`
	Width       uint16 `json:"width"`
	Density     uint16 `json:"density"`
}

// DDRFreq is one raw frequency table slot // 8 bytes
type DDRFreq struct {
	FreqKHz uint32 `json:"freqKHz"`
	Enabled uint8  `json:"enabled"`
}

// DDRRegion ... // 40 bytes
type DDRRegion struct {
	StartAddress         uint64 `json:"startAddress"`
	Size                 uint64 `json:"size"`
	MemControllerAddress uint64 `json:"memControllerAddress"`
	GranuleSizeMiB       uint32 `json:"granuleSizeMiB"`
	Rank                 uint8  `json:"rank"`
	SegmentsStartIndex   uint8  `json:"segmentsStartIndex"`
	SegmentsStartOffset  uint64 `json:"segmentsStartOffset"`
}

// DDRRegions is the v5 regions header plus the trailing region records
type DDRRegions struct {
	// RegionNum as found in the blob, recorded for display only
	RegionNum      uint32      `json:"regionNum"`
	Rank0Size      uint64      `json:"rank0Size"`
	Rank1Size      uint64      `json:"rank1Size"`
	Cs0StartAddr   uint64      `json:"cs0StartAddr"`
	Cs1StartAddr   uint64      `json:"cs1StartAddr"`
	HighestBankBit uint32      `json:"highestBankBit"`
	Regions        []DDRRegion `json:"regions"`
}

// DDRInfo holds the decoded fields of one DDR info blob
type DDRInfo struct {
	Version        DDRInfoVersion             `json:"version"`
	ManufacturerID uint8                      `json:"manufacturerID"`
	DeviceType     DDRType                    `json:"deviceType"`
	PartDetails    [DDRChannelNum]PartDetails `json:"partDetails"`

	// FreqTable holds all raw table slots including disabled ones,
	// see Frequencies for the usable clock rates
	FreqTable        []DDRFreq `json:"freqTable"`
	NumDDRFreqs      uint8     `json:"numDDRFreqs"`
	ClkPeriodAddress uint64    `json:"clkPeriodAddress"`
	NumChannels      uint8     `json:"numChannels"`

	NumRanks [DDRChannelNum]uint8 `json:"numRanks"`

	MaxNomDDRFreq uint32      `json:"maxNomDDRFreq,omitempty"`
	Regions       *DDRRegions `json:"regions,omitempty"`

	// HighestBankBit is zero for layouts that do not carry it
	HighestBankBit uint8 `json:"highestBankBit"`
}

// Frequencies returns the usable DDR clock rates in Hz. Slots with a zero
// frequency or a cleared enabled flag are skipped, table order is preserved
// and duplicates are dropped.
func (info *DDRInfo) Frequencies() []uint64 {
	freqs := []uint64{}
	seen := make(map[uint64]bool)
	for _, slot := range info.FreqTable {
		if slot.FreqKHz == 0 || slot.Enabled == 0 {
			continue
		}
		hz := uint64(slot.FreqKHz) * 1000
		if seen[hz] {
			continue
		}
		seen[hz] = true
		freqs = append(freqs, hz)
	}
	return freqs
}

func (info *DDRInfo) String() string {
	result, err := yaml.Marshal(info)
	if err != nil {
		log.Error("Error occured while marshaling DDR info, %s", err)
		return ""
	}
	return fmt.Sprintf("---\n%s", string(result))
}
