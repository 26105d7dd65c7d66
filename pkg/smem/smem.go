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

package smem

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io/ioutil"

	"github.com/soclab/go-dram/pkg/log"
)

// Qualcomm shared memory region layout. The header at the region base is
// common to all versions. Version 11 allocates items out of a flat heap
// indexed by the TOC that follows the header. Version 12 keeps the TOC for
// compatibility but allocates items inside partitions described by a
// partition table placed in the last page of the region, global items live
// in the partition owned by host 0xfffe.

type ItemID uint16

// DDRInfoItem is the shared memory item the boot firmware fills with the
// DDR details blob
const DDRInfoItem ItemID = 603

const (
	HeaderSize = 8400
	ItemCount  = 512

	HeapVersion      = 11
	PartitionVersion = 12

	PtableSize       = 4096
	PtableHeaderSize = 32
	PtableEntrySize  = 48
	PartHeaderSize   = 32
	PrivateEntrySize = 16

	GlobalHost    = 0xfffe
	PrivateCanary = 0xa5a5
)

// header field offsets
const (
	offVersionSBL  = 92 // version[7], filled by the boot loader
	offInitialized = 192
	offFreeOffset  = 196
	offAvailable   = 200
	offToc         = 208

	tocEntrySize = 16
)

var (
	ptableMagic = []byte{'$', 'T', 'O', 'C'}
	partMagic   = []byte{'$', 'P', 'R', 'T'}
)

// Item describes one allocated entry
type Item struct {
	ID   ItemID `json:"id"`
	Size int    `json:"size"`
}

// Store gives read access to the items of one SMEM region snapshot
type Store struct {
	data    []byte
	version uint32

	// global partition bounds, set for the partitioned format only
	partOffset int
	partSize   int
}

// Open reads an SMEM region snapshot from a file
func Open(path string) (*Store, error) {
	log.Debug("Opening SMEM snapshot: path: %s", path)
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewStore(data)
}

// NewStore validates the snapshot header and indexes the item area
func NewStore(data []byte) (*Store, error) {
	if len(data) < HeaderSize {
		return nil, ErrTruncatedSnapshot{What: "header", Size: len(data)}
	}
	if binary.LittleEndian.Uint32(data[offInitialized:offInitialized+4]) != 1 {
		return nil, ErrNotInitialized{}
	}

	s := &Store{
		data:    data,
		version: binary.LittleEndian.Uint32(data[offVersionSBL:offVersionSBL+4]) >> 16,
	}
	log.Debug("SMEM snapshot: size: %d version: %d", len(data), s.version)

	switch s.version {
	case HeapVersion:
		return s, nil
	case PartitionVersion:
		if err := s.locateGlobalPartition(); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, ErrUnsupportedVersion{Version: s.version}
	}
}

// Version returns the SMEM heap version reported by the boot loader
func (s *Store) Version() uint32 {
	return s.version
}

// locateGlobalPartition walks the partition table in the last page of the
// region and records the bounds of the partition owned by the global host
func (s *Store) locateGlobalPartition() error {
	if len(s.data) < HeaderSize+PtableSize {
		return ErrTruncatedSnapshot{What: "partition table", Size: len(s.data)}
	}
	ptable := len(s.data) - PtableSize

	if !bytes.Equal(s.data[ptable:ptable+4], ptableMagic) {
		return ErrCorruptPartition{What: "bad partition table magic"}
	}
	if version := binary.LittleEndian.Uint32(s.data[ptable+4 : ptable+8]); version != 1 {
		return ErrCorruptPartition{What: fmt.Sprintf("unsupported partition table version %d", version)}
	}
	numEntries := int(binary.LittleEndian.Uint32(s.data[ptable+8 : ptable+12]))
	if numEntries > (PtableSize-PtableHeaderSize)/PtableEntrySize {
		return ErrCorruptPartition{What: fmt.Sprintf("partition table claims %d entries", numEntries)}
	}

	for i := 0; i < numEntries; i++ {
		entry := ptable + PtableHeaderSize + i*PtableEntrySize
		host0 := binary.LittleEndian.Uint16(s.data[entry+12 : entry+14])
		host1 := binary.LittleEndian.Uint16(s.data[entry+14 : entry+16])
		if host0 != GlobalHost || host1 != GlobalHost {
			continue
		}

		offset := int(binary.LittleEndian.Uint32(s.data[entry : entry+4]))
		size := int(binary.LittleEndian.Uint32(s.data[entry+4 : entry+8]))
		if offset < HeaderSize || size < PartHeaderSize || offset+size > ptable {
			return ErrCorruptPartition{What: "global partition bounds out of range"}
		}
		if err := checkPartHeader(s.data[offset:offset+size], size); err != nil {
			return err
		}

		s.partOffset = offset
		s.partSize = size
		return nil
	}
	return ErrNoGlobalPartition{}
}

func checkPartHeader(part []byte, size int) error {
	if !bytes.Equal(part[0:4], partMagic) {
		return ErrCorruptPartition{What: "bad partition header magic"}
	}
	host0 := binary.LittleEndian.Uint16(part[4:6])
	host1 := binary.LittleEndian.Uint16(part[6:8])
	if host0 != GlobalHost || host1 != GlobalHost {
		return ErrCorruptPartition{What: "partition header host mismatch"}
	}
	if int(binary.LittleEndian.Uint32(part[8:12])) != size {
		return ErrCorruptPartition{What: "partition header size mismatch"}
	}
	if int(binary.LittleEndian.Uint32(part[12:16])) > size {
		return ErrCorruptPartition{What: "uncached free offset beyond partition"}
	}
	return nil
}

// walkUncached visits the uncached entries of the global partition in
// allocation order, stopping early when visit returns true
func (s *Store) walkUncached(visit func(item ItemID, data []byte) bool) error {
	part := s.data[s.partOffset : s.partOffset+s.partSize]
	free := int(binary.LittleEndian.Uint32(part[12:16]))

	offset := PartHeaderSize
	for offset < free {
		if offset+PrivateEntrySize > len(part) {
			return ErrCorruptPartition{What: fmt.Sprintf("entry header at offset %d out of range", offset)}
		}
		if binary.LittleEndian.Uint16(part[offset:offset+2]) != PrivateCanary {
			return ErrCorruptPartition{What: fmt.Sprintf("bad canary at offset %d", offset)}
		}
		item := ItemID(binary.LittleEndian.Uint16(part[offset+2 : offset+4]))
		size := int(binary.LittleEndian.Uint32(part[offset+4 : offset+8]))
		paddingData := int(binary.LittleEndian.Uint16(part[offset+8 : offset+10]))
		paddingHdr := int(binary.LittleEndian.Uint16(part[offset+10 : offset+12]))

		dataOffset := offset + PrivateEntrySize + paddingHdr
		dataLen := size - paddingData
		if dataLen < 0 || dataOffset+dataLen > len(part) {
			return ErrCorruptPartition{What: fmt.Sprintf("entry %d data out of range", item)}
		}

		if visit(item, part[dataOffset:dataOffset+dataLen]) {
			return nil
		}
		offset += PrivateEntrySize + paddingHdr + size
	}
	return nil
}

// Get returns the bytes of one item. The returned slice is a view into the
// snapshot, callers must not modify it.
func (s *Store) Get(item ItemID) ([]byte, error) {
	log.Debug("Getting SMEM item: %d", item)
	if s.version == HeapVersion {
		return s.getFromHeap(item)
	}

	var found []byte
	err := s.walkUncached(func(id ItemID, data []byte) bool {
		if id == item {
			found = data
			return true
		}
		return false
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrItemNotFound{Item: item}
	}
	return found, nil
}

func (s *Store) getFromHeap(item ItemID) ([]byte, error) {
	if int(item) >= ItemCount {
		return nil, ErrItemOutOfRange{Item: item}
	}
	entry := offToc + int(item)*tocEntrySize
	if binary.LittleEndian.Uint32(s.data[entry:entry+4]) == 0 {
		return nil, ErrItemNotFound{Item: item}
	}
	offset := int(binary.LittleEndian.Uint32(s.data[entry+4 : entry+8]))
	size := int(binary.LittleEndian.Uint32(s.data[entry+8 : entry+12]))
	if offset+size > len(s.data) {
		return nil, ErrTruncatedSnapshot{What: fmt.Sprintf("item %d data", item), Size: len(s.data)}
	}
	return s.data[offset : offset+size], nil
}

// Items lists the allocated entries in allocation order
func (s *Store) Items() ([]*Item, error) {
	var items []*Item
	if s.version == HeapVersion {
		for id := 0; id < ItemCount; id++ {
			entry := offToc + id*tocEntrySize
			if binary.LittleEndian.Uint32(s.data[entry:entry+4]) == 0 {
				continue
			}
			size := int(binary.LittleEndian.Uint32(s.data[entry+8 : entry+12]))
			items = append(items, &Item{ID: ItemID(id), Size: size})
		}
		return items, nil
	}

	err := s.walkUncached(func(id ItemID, data []byte) bool {
		items = append(items, &Item{ID: id, Size: len(data)})
		return false
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}
