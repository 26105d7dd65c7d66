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

package pack

import (
	"github.com/google/gopacket"
	"github.com/spf13/cobra"

	"github.com/soclab/go-dram/pkg/layers"
	"github.com/soclab/go-dram/pkg/smem"
)

const (
	OutOptionName     = "out"
	VersionOptionName = "version"
)

func NewCommand() *cobra.Command {
	var out, version string
	cmd := &cobra.Command{
		Use:   "pack",
		Short: "Write a shared memory snapshot with a sample DDR info item",
		RunE: func(cmd *cobra.Command, args []string) error {
			var v layers.DDRInfoVersion
			if err := v.UnmarshalJSON([]byte(version)); err != nil {
				return err
			}
			layer := &layers.DDRInfoLayer{DDRInfo: sampleDDRInfo(v)}
			buf := gopacket.NewSerializeBuffer()
			if err := layer.SerializeTo(buf, gopacket.SerializeOptions{}); err != nil {
				return err
			}
			builder := smem.NewBuilder(smem.DefaultRegionSize)
			if err := builder.PutItem(smem.DDRInfoItem, buf.Bytes()); err != nil {
				return err
			}
			return builder.Persist(out)
		},
	}
	cmd.Flags().StringVar(&out, OutOptionName, "", "Path to write the snapshot to")
	cmd.Flags().StringVar(&version, VersionOptionName, "v3", "DDR info layout to pack. One of: v3, v3-extra-freq, v4, v5-four-regions, v5-six-regions")
	cmd.MarkFlagRequired(OutOptionName)

	return cmd
}

// sampleDDRInfo fills a DDR info struct with LPDDR4X details that look like
// what boot firmware reports on a 4 channel dual rank part
func sampleDDRInfo(version layers.DDRInfoVersion) *layers.DDRInfo {
	info := &layers.DDRInfo{
		Version:          version,
		ManufacturerID:   0x06,
		DeviceType:       layers.DDRTypeLPDDR4X,
		NumDDRFreqs:      3,
		ClkPeriodAddress: 0x80000000,
		NumChannels:      4,
		FreqTable:        make([]layers.DDRFreq, layers.DDRInfoFreqNum(version)),
	}
	for ch := 0; ch < int(info.NumChannels); ch++ {
		info.PartDetails[ch] = layers.PartDetails{
			RevisionID1: 1,
			RevisionID2: 3,
			Width:       16,
			Density:     6,
		}
	}
	info.FreqTable[0] = layers.DDRFreq{FreqKHz: 547200, Enabled: 1}
	info.FreqTable[1] = layers.DDRFreq{FreqKHz: 1555200, Enabled: 1}
	info.FreqTable[2] = layers.DDRFreq{FreqKHz: 2092800, Enabled: 1}

	switch version {
	case layers.DDRInfoV4:
		info.HighestBankBit = 15
		for ch := 0; ch < int(info.NumChannels); ch++ {
			info.NumRanks[ch] = 2
		}
	case layers.DDRInfoV5FourRegions, layers.DDRInfoV5SixRegions:
		regionNum := layers.DDRInfoRegionNum(version)
		regions := &layers.DDRRegions{
			RegionNum:      uint32(regionNum),
			Rank0Size:      4 << 30,
			Rank1Size:      4 << 30,
			Cs0StartAddr:   0x080000000,
			Cs1StartAddr:   0x180000000,
			HighestBankBit: 16,
			Regions:        make([]layers.DDRRegion, regionNum),
		}
		for i := 0; i < regionNum; i++ {
			regions.Regions[i] = layers.DDRRegion{
				StartAddress:         0x080000000 + uint64(i)*(2<<30),
				Size:                 2 << 30,
				MemControllerAddress: uint64(i) * (2 << 30),
				GranuleSizeMiB:       512,
				Rank:                 uint8(i % 2),
				SegmentsStartIndex:   uint8(i),
			}
		}
		info.MaxNomDDRFreq = 2092800
		info.Regions = regions
		info.HighestBankBit = 16
	}
	return info
}
