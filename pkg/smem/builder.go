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
	"encoding/binary"
	"io/ioutil"
)

const (
	// DefaultRegionSize matches the usual size of the SMEM carveout
	DefaultRegionSize = 0x200000

	pageSize = 4096
)

// Builder composes SMEM region snapshots in the partitioned format, laid
// out the way the boot firmware does it: the header at the region base, the
// global partition on the first page boundary after the header and the
// partition table in the last page
type Builder struct {
	regionSize int
	items      []builderItem
}

type builderItem struct {
	id   ItemID
	data []byte
}

// NewBuilder ...
func NewBuilder(regionSize int) *Builder {
	return &Builder{regionSize: regionSize}
}

// PutItem schedules one item for allocation
func (b *Builder) PutItem(id ItemID, data []byte) error {
	for _, item := range b.items {
		if item.id == id {
			return ErrDuplicateItem{Item: id}
		}
	}
	b.items = append(b.items, builderItem{id: id, data: data})
	return nil
}

// Bytes lays the snapshot out and returns it
func (b *Builder) Bytes() ([]byte, error) {
	partOffset := alignUp(HeaderSize, pageSize)
	if b.regionSize < partOffset+PartHeaderSize+PtableSize {
		return nil, ErrRegionTooSmall{Size: b.regionSize}
	}
	partSize := b.regionSize - PtableSize - partOffset

	data := make([]byte, b.regionSize)

	// header
	binary.LittleEndian.PutUint32(data[offVersionSBL:offVersionSBL+4], PartitionVersion<<16)
	binary.LittleEndian.PutUint32(data[offInitialized:offInitialized+4], 1)
	binary.LittleEndian.PutUint32(data[offFreeOffset:offFreeOffset+4], HeaderSize)
	binary.LittleEndian.PutUint32(data[offAvailable:offAvailable+4], uint32(b.regionSize-HeaderSize))

	// uncached item entries
	part := data[partOffset : partOffset+partSize]
	offset := PartHeaderSize
	for _, item := range b.items {
		size := alignUp(len(item.data), 8)
		if offset+PrivateEntrySize+size > partSize {
			return nil, ErrRegionTooSmall{Size: b.regionSize}
		}
		binary.LittleEndian.PutUint16(part[offset:offset+2], PrivateCanary)
		binary.LittleEndian.PutUint16(part[offset+2:offset+4], uint16(item.id))
		binary.LittleEndian.PutUint32(part[offset+4:offset+8], uint32(size))
		binary.LittleEndian.PutUint16(part[offset+8:offset+10], uint16(size-len(item.data)))
		copy(part[offset+PrivateEntrySize:], item.data)
		offset += PrivateEntrySize + size
	}

	// partition header
	copy(part[0:4], partMagic)
	binary.LittleEndian.PutUint16(part[4:6], GlobalHost)
	binary.LittleEndian.PutUint16(part[6:8], GlobalHost)
	binary.LittleEndian.PutUint32(part[8:12], uint32(partSize))
	binary.LittleEndian.PutUint32(part[12:16], uint32(offset))
	binary.LittleEndian.PutUint32(part[16:20], uint32(partSize))

	// partition table
	ptable := data[b.regionSize-PtableSize:]
	copy(ptable[0:4], ptableMagic)
	binary.LittleEndian.PutUint32(ptable[4:8], 1)
	binary.LittleEndian.PutUint32(ptable[8:12], 1)
	entry := ptable[PtableHeaderSize:]
	binary.LittleEndian.PutUint32(entry[0:4], uint32(partOffset))
	binary.LittleEndian.PutUint32(entry[4:8], uint32(partSize))
	binary.LittleEndian.PutUint16(entry[12:14], GlobalHost)
	binary.LittleEndian.PutUint16(entry[14:16], GlobalHost)

	return data, nil
}

// Persist writes the snapshot to a file
func (b *Builder) Persist(path string) error {
	data, err := b.Bytes()
	if err != nil {
		return err
	}
	return ioutil.WriteFile(path, data, 0644)
}

func alignUp(n int, align int) int {
	return (n + align - 1) &^ (align - 1)
}
