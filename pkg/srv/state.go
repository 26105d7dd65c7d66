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
	"fmt"

	"github.com/segmentio/ksuid"
	"go.etcd.io/bbolt"
	"sigs.k8s.io/yaml"

	"github.com/soclab/go-dram/pkg/config"
	"github.com/soclab/go-dram/pkg/dram"
	"github.com/soclab/go-dram/pkg/log"
)

const (
	BucketNameDram        = "dram"
	BucketNameDiagnostics = "diagnostics"
	KeyLatest             = "latest"
)

// Diagnostic describes a DDR info blob that could not be decoded
type Diagnostic struct {
	ID         string `json:"id"`
	Size       int    `json:"size"`
	Reason     string `json:"reason"`
	ObservedAt uint64 `json:"observedAt"`
}

func (d *Diagnostic) String() string {
	out, err := yaml.Marshal(d)
	if err != nil {
		log.Error("Error occured while marshaling diagnostic, %s", err)
		return ""
	}
	return fmt.Sprintf("---\n%s", string(out))
}

type State struct {
	context.Context
	DB *bbolt.DB
}

func NewState(ctx context.Context, cfg *config.Config) (*State, error) {
	// open state database
	db, err := bbolt.Open(cfg.DBPath, 0600, nil)
	if err != nil {
		return nil, err
	}
	// create buckets in the state database
	if err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{BucketNameDram, BucketNameDiagnostics} {
			_, err = tx.CreateBucketIfNotExists([]byte(name))
			if err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &State{
		Context: ctx,
		DB:      db,
	}, nil
}

// Close ...
func (s *State) Close() {
	s.DB.Close()
}

// SetResult persists the most recently decoded DDR details
func (s *State) SetResult(result *dram.Result) error {
	log.Debug("Persisting DDR details: version: %s", result.Version)
	value, err := yaml.Marshal(result)
	if err != nil {
		return err
	}
	if err := s.DB.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketNameDram))
		if b == nil {
			return ErrBucketNotFound{Bucket: BucketNameDram}
		}
		return b.Put([]byte(KeyLatest), value)
	}); err != nil {
		return err
	}
	return nil
}

// GetResult returns the persisted DDR details
func (s *State) GetResult() (*dram.Result, error) {
	log.Debug("Getting persisted DDR details")
	result := &dram.Result{}
	if err := s.DB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketNameDram))
		if b == nil {
			return ErrBucketNotFound{Bucket: BucketNameDram}
		}
		value := b.Get([]byte(KeyLatest))
		if value == nil {
			return ErrKeyNotFound{What: KeyLatest}
		}
		return yaml.Unmarshal(value, result)
	}); err != nil {
		return nil, err
	}
	return result, nil
}

// AddDiagnostic records a blob that could not be decoded so that it can be
// inspected later. Keys are ksuids which sort by creation time.
func (s *State) AddDiagnostic(diag *Diagnostic) error {
	diag.ID = ksuid.New().String()
	log.Debug("Recording diagnostic: id: %s size: %d", diag.ID, diag.Size)
	value, err := yaml.Marshal(diag)
	if err != nil {
		return err
	}
	if err := s.DB.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketNameDiagnostics))
		if b == nil {
			return ErrBucketNotFound{Bucket: BucketNameDiagnostics}
		}
		return b.Put([]byte(diag.ID), value)
	}); err != nil {
		return err
	}
	return nil
}

// GetDiagnostics returns all recorded diagnostics ordered by creation time
func (s *State) GetDiagnostics() ([]*Diagnostic, error) {
	log.Debug("Getting diagnostics")
	diags := []*Diagnostic{}
	if err := s.DB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketNameDiagnostics))
		if b == nil {
			return ErrBucketNotFound{Bucket: BucketNameDiagnostics}
		}
		return b.ForEach(func(k, v []byte) error {
			diag := &Diagnostic{}
			if err := yaml.Unmarshal(v, diag); err != nil {
				return err
			}
			diags = append(diags, diag)
			return nil
		})
	}); err != nil {
		return nil, err
	}
	return diags, nil
}
