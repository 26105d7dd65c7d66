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
	"fmt"
)

// ErrTruncatedSnapshot returned when the snapshot is too short to hold the
// structure named in What
type ErrTruncatedSnapshot struct {
	What string
	Size int
}

func (e ErrTruncatedSnapshot) Error() string {
	return fmt.Sprintf("Truncated SMEM snapshot: %d bytes, %s out of range", e.Size, e.What)
}

// ErrNotInitialized returned when the snapshot header says the shared memory
// heap was never set up by the boot firmware
type ErrNotInitialized struct{}

func (e ErrNotInitialized) Error() string {
	return "SMEM heap not initialized"
}

// ErrUnsupportedVersion ...
type ErrUnsupportedVersion struct {
	Version uint32
}

func (e ErrUnsupportedVersion) Error() string {
	return fmt.Sprintf("Unsupported SMEM version: %d", e.Version)
}

// ErrItemNotFound returned when no allocated entry carries the item
type ErrItemNotFound struct {
	Item ItemID
}

func (e ErrItemNotFound) Error() string {
	return fmt.Sprintf("SMEM item not found: %d", e.Item)
}

// ErrItemOutOfRange returned for items beyond the legacy heap TOC
type ErrItemOutOfRange struct {
	Item ItemID
}

func (e ErrItemOutOfRange) Error() string {
	return fmt.Sprintf("SMEM item %d out of range for the legacy heap, TOC holds %d entries", e.Item, ItemCount)
}

// ErrNoGlobalPartition returned when the partition table has no entry owned
// by the global host
type ErrNoGlobalPartition struct{}

func (e ErrNoGlobalPartition) Error() string {
	return "Global partition not found in the SMEM partition table"
}

// ErrCorruptPartition returned when a partition structure fails validation
type ErrCorruptPartition struct {
	What string
}

func (e ErrCorruptPartition) Error() string {
	return fmt.Sprintf("Corrupt SMEM partition: %s", e.What)
}

// ErrDuplicateItem ...
type ErrDuplicateItem struct {
	Item ItemID
}

func (e ErrDuplicateItem) Error() string {
	return fmt.Sprintf("SMEM item already allocated: %d", e.Item)
}

// ErrRegionTooSmall returned when a snapshot being composed does not fit
// into the requested region size
type ErrRegionTooSmall struct {
	Size int
}

func (e ErrRegionTooSmall) Error() string {
	return fmt.Sprintf("SMEM region too small: %d bytes", e.Size)
}
