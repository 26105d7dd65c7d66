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

package command

import (
	"errors"
	"fmt"

	"github.com/imroc/req"

	"github.com/soclab/go-dram/pkg/config"
	"github.com/soclab/go-dram/pkg/dram"
	"github.com/soclab/go-dram/pkg/smem"
	"github.com/soclab/go-dram/pkg/srv"
)

type ApiClient struct {
	*config.Config
	ApiPrefix string
}

func NewApiClient(cfg *config.Config) *ApiClient {
	return &ApiClient{
		Config:    cfg,
		ApiPrefix: fmt.Sprintf("http://%s:%d/api", cfg.IP, cfg.ApiPort),
	}
}

// Info sends request to get the decoded DDR details
func (c *ApiClient) Info() (*dram.Result, error) {
	r, err := req.Get(fmt.Sprintf("%s/dram", c.ApiPrefix))
	if err != nil {
		return nil, err
	}
	if r.Response().StatusCode != 200 {
		return nil, errors.New(r.Response().Status)
	}
	result := &dram.Result{}
	err = r.ToJSON(result)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Frequencies sends request to get the enabled DDR frequencies in Hz
func (c *ApiClient) Frequencies() ([]uint64, error) {
	r, err := req.Get(fmt.Sprintf("%s/dram/frequencies", c.ApiPrefix))
	if err != nil {
		return nil, err
	}
	if r.Response().StatusCode != 200 {
		return nil, errors.New(r.Response().Status)
	}
	var freqs []uint64
	err = r.ToJSON(&freqs)
	if err != nil {
		return nil, err
	}
	return freqs, nil
}

// HighestBankBit sends request to get the highest DDR bank address bit
func (c *ApiClient) HighestBankBit() (uint8, error) {
	r, err := req.Get(fmt.Sprintf("%s/dram/hbb", c.ApiPrefix))
	if err != nil {
		return 0, err
	}
	if r.Response().StatusCode != 200 {
		return 0, errors.New(r.Response().Status)
	}
	bankBit := &srv.BankBit{}
	err = r.ToJSON(bankBit)
	if err != nil {
		return 0, err
	}
	return bankBit.HighestBankBit, nil
}

// Refresh sends request to reread the shared memory snapshot and decode
// the DDR info item
func (c *ApiClient) Refresh() (*dram.Result, error) {
	r, err := req.Post(fmt.Sprintf("%s/dram/refresh", c.ApiPrefix))
	if err != nil {
		return nil, err
	}
	if r.Response().StatusCode != 200 {
		return nil, errors.New(r.Response().Status)
	}
	result := &dram.Result{}
	err = r.ToJSON(result)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Items sends request to list the items present in the shared memory snapshot
func (c *ApiClient) Items() ([]*smem.Item, error) {
	r, err := req.Get(fmt.Sprintf("%s/smem/items", c.ApiPrefix))
	if err != nil {
		return nil, err
	}
	if r.Response().StatusCode != 200 {
		return nil, errors.New(r.Response().Status)
	}
	var items []*smem.Item
	err = r.ToJSON(&items)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Diagnostics sends request to list the blobs that could not be decoded
func (c *ApiClient) Diagnostics() ([]*srv.Diagnostic, error) {
	r, err := req.Get(fmt.Sprintf("%s/diagnostics", c.ApiPrefix))
	if err != nil {
		return nil, err
	}
	if r.Response().StatusCode != 200 {
		return nil, errors.New(r.Response().Status)
	}
	var diags []*srv.Diagnostic
	err = r.ToJSON(&diags)
	if err != nil {
		return nil, err
	}
	return diags, nil
}
