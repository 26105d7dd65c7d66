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
	"sync"
)

// Cache keeps the result of the most recent successful parse and answers
// queries against it. Writes are last-write-wins, a failed parse must not
// call Set so a previously stored result stays intact.
type Cache struct {
	mu     sync.RWMutex
	result *Result
}

// NewCache ...
func NewCache() *Cache {
	return &Cache{}
}

// Set stores a parse result
func (c *Cache) Set(result *Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.result = result
}

// Result returns the stored result, nil before the first successful parse
func (c *Cache) Result() *Result {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.result
}

// HighestBankBit returns the highest DDR bank address bit of the stored
// result, ErrNoData before the first successful parse
func (c *Cache) HighestBankBit() (uint8, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.result == nil {
		return 0, ErrNoData{}
	}
	return c.result.HighestBankBit, nil
}

// Frequencies returns a copy of the stored frequency list so every caller
// iterates over its own snapshot
func (c *Cache) Frequencies() ([]uint64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.result == nil {
		return nil, ErrNoData{}
	}
	freqs := make([]uint64, len(c.result.Frequencies))
	copy(freqs, c.result.Frequencies)
	return freqs, nil
}
