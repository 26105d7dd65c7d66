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

package srv

import (
	"context"

	"github.com/soclab/go-dram/pkg/config"
	"github.com/soclab/go-dram/pkg/dram"
	"github.com/soclab/go-dram/pkg/layers"
	"github.com/soclab/go-dram/pkg/log"
	"github.com/soclab/go-dram/pkg/smem"
)

type DramServer struct {
	Server
	state *State
	cache *dram.Cache
	api   *ApiServer
}

// NewDramServer ...
func NewDramServer(ctx context.Context, cfg *config.Config) (*DramServer, error) {
	log.Debug("Initializing DRAM server with smem path: %s", cfg.SmemPath)

	state, err := NewState(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s := &DramServer{
		Server: Server{
			Context: ctx,
			Config:  cfg,
		},
		state: state,
		cache: dram.NewCache(),
	}
	api, err := NewApiServer(ctx, cfg, s)
	if err != nil {
		state.Close()
		return nil, err
	}
	s.api = api
	return s, nil
}

// Refresh rereads the shared memory snapshot, decodes the DDR info item and
// makes the result available for queries. A failed decode leaves the
// previously decoded details in place.
func (s *DramServer) Refresh() (*dram.Result, error) {
	log.Debug("Refreshing DDR details from %s", s.Config.SmemPath)
	store, err := smem.Open(s.Config.SmemPath)
	if err != nil {
		observeRefresh(OutcomeError)
		return nil, err
	}
	result, err := dram.ParseItem(store)
	switch e := err.(type) {
	case nil:
	case layers.ErrBlobTooSmall:
		// placeholder blob written by boot firmware that carries no details
		observeRefresh(OutcomeTooSmall)
		log.Info("DDR info item is a placeholder, size: %d", e.Size)
		return nil, err
	case layers.ErrUnknownLayout:
		observeRefresh(OutcomeUnknownLayout)
		log.Error("DDR info item has an unknown layout, size: %d", e.Size)
		diag := &Diagnostic{
			Size:       e.Size,
			Reason:     err.Error(),
			ObservedAt: Now(),
		}
		if diagErr := s.state.AddDiagnostic(diag); diagErr != nil {
			log.Error("Error while recording diagnostic: %s", diagErr)
		}
		return nil, err
	case smem.ErrItemNotFound:
		observeRefresh(OutcomeMissing)
		log.Warning("Shared memory snapshot has no DDR info item")
		return nil, err
	default:
		observeRefresh(OutcomeError)
		log.Error("Error while decoding DDR info item: %s", err)
		return nil, err
	}

	s.cache.Set(result)
	observeResult(result)
	observeRefresh(OutcomeOk)
	// the cache is already updated, a persist failure does not undo the refresh
	if stateErr := s.state.SetResult(result); stateErr != nil {
		log.Error("Error while persisting DDR details: %s", stateErr)
	}
	return result, nil
}

// Items lists the items present in the shared memory snapshot
func (s *DramServer) Items() ([]*smem.Item, error) {
	store, err := smem.Open(s.Config.SmemPath)
	if err != nil {
		return nil, err
	}
	return store.Items()
}

// Run refreshes the DDR details once and serves the API until the context
// is canceled
func (s *DramServer) Run() error {
	// start from the persisted details so queries work across restarts
	if result, err := s.state.GetResult(); err == nil {
		s.cache.Set(result)
	}
	if _, err := s.Refresh(); err != nil {
		log.Debug("No DDR details at startup: %s", err)
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.api.Run()
	}()

	select {
	case <-s.Context.Done():
		s.state.Close()
		return s.Context.Err()
	case err := <-errChan:
		s.state.Close()
		return err
	}
}
