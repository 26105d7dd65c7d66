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
	"fmt"

	"github.com/google/gopacket"
	"sigs.k8s.io/yaml"

	"github.com/soclab/go-dram/pkg/layers"
	"github.com/soclab/go-dram/pkg/log"
	"github.com/soclab/go-dram/pkg/smem"
)

// Result is the normalized outcome of one successful parse
type Result struct {
	Version layers.DDRInfoVersion `json:"version"`
	// Frequencies holds the usable DDR clock rates in Hz, at most one
	// per frequency table slot, duplicates dropped, table order
	Frequencies []uint64 `json:"frequencies"`
	// HighestBankBit is zero for layouts that do not carry it
	HighestBankBit uint8           `json:"highestBankBit"`
	Details        *layers.DDRInfo `json:"details,omitempty"`
}

func (r *Result) String() string {
	out, err := yaml.Marshal(r)
	if err != nil {
		log.Error("Error occured while marshaling DDR result, %s", err)
		return ""
	}
	return fmt.Sprintf("---\n%s", string(out))
}

// ItemGetter fetches raw item bytes out of a shared memory snapshot
type ItemGetter interface {
	Get(item smem.ItemID) ([]byte, error)
}

var _ ItemGetter = &smem.Store{}

// Parse decodes one DDR info blob. Undersized blobs return ErrBlobTooSmall
// which callers treat as "no data", sizes matching no known layout return
// ErrUnknownLayout which is worth reporting, both from the layers package.
func Parse(blob []byte) (*Result, error) {
	packet := gopacket.NewPacket(blob, layers.DDRInfoLayerType, gopacket.Default)
	if errLayer := packet.ErrorLayer(); errLayer != nil {
		return nil, errLayer.Error()
	}

	layer := packet.Layer(layers.DDRInfoLayerType)
	if layer == nil {
		return nil, ErrDecode{What: "no DDR info layer in packet"}
	}
	info := layer.(*layers.DDRInfoLayer).DDRInfo

	result := &Result{
		Version:        info.Version,
		Frequencies:    info.Frequencies(),
		HighestBankBit: info.HighestBankBit,
		Details:        info,
	}
	log.Debug("Parsed DDR info: version: %s frequencies: %d bank bit: %d",
		result.Version, len(result.Frequencies), result.HighestBankBit)
	return result, nil
}

// ParseItem fetches the DDR info item and parses it
func ParseItem(getter ItemGetter) (*Result, error) {
	blob, err := getter.Get(smem.DDRInfoItem)
	if err != nil {
		return nil, err
	}
	return Parse(blob)
}

// ParseFile reads a shared memory snapshot from a file and parses the
// DDR info item found in it
func ParseFile(path string) (*Result, error) {
	store, err := smem.Open(path)
	if err != nil {
		return nil, err
	}
	return ParseItem(store)
}
