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
	"fmt"
)

// ErrBlobTooSmall returned when a DDR info blob is shorter than the smallest
// known layout. Producers publish nothing useful in this case, so callers
// normally treat it as "no data" rather than as a failure.
type ErrBlobTooSmall struct {
	Size int
}

func (e ErrBlobTooSmall) Error() string {
	return fmt.Sprintf("DDR info blob too small: %d bytes, need at least %d", e.Size, DDRInfoSizeV3)
}

// ErrUnknownLayout returned when a DDR info blob is large enough to carry
// data but its size matches none of the known layouts exactly
type ErrUnknownLayout struct {
	Size int
}

func (e ErrUnknownLayout) Error() string {
	return fmt.Sprintf("DDR info blob size %d matches no known layout", e.Size)
}

// ErrNoConcreteLayout returned when a size or a blob is requested for a
// version that does not denote a concrete layout
type ErrNoConcreteLayout struct {
	Version DDRInfoVersion
}

func (e ErrNoConcreteLayout) Error() string {
	return fmt.Sprintf("DDR info version %s has no concrete layout", e.Version)
}
