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

// go-dram API
//
// # RESTful APIs to interact with go-dram server
//
// Terms Of Service:
//
// Schemes: http
// Host: localhost:8603
// Version: 1.0.0
// Contact:
//
//	Consumes:
//	- application/json
//
//	Produces:
//	- application/json
//
// swagger:meta
package srv

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/go-openapi/loads"
	"github.com/go-openapi/runtime/middleware"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/soclab/go-dram/pkg/config"
	"github.com/soclab/go-dram/pkg/dram"
	"github.com/soclab/go-dram/pkg/layers"
	"github.com/soclab/go-dram/pkg/log"
	"github.com/soclab/go-dram/pkg/smem"
)

// Success response
// swagger:response okResp
type RespOk struct {
	// in:body
	Body struct {
		// HTTP status code 200 - OK
		Code int `json:"code"`
	}
}

// Error Not Found
// swagger:response notFound
type RespNotFound struct {
	// in:body
	Body struct {
		// HTTP status code 404 - Not Found
		Code int `json:"code"`
	}
}

// Error Bad Upstream
// swagger:response badUpstream
type RespBadUpstream struct {
	// in:body
	Body struct {
		// HTTP status code 502 - Bad Gateway
		Code int `json:"code"`
	}
}

// BankBit ...
type BankBit struct {
	HighestBankBit uint8 `json:"highestBankBit"`
}

type ApiServer struct {
	context.Context
	*config.Config
	*mux.Router
	doc  *loads.Document
	dram *DramServer
}

func NewApiServer(ctx context.Context, cfg *config.Config, dramServer *DramServer) (*ApiServer, error) {
	log.Info("Initializing API server with address: %s port: %d", cfg.IP, cfg.ApiPort)

	doc, err := loadSwagger()
	if err != nil {
		return nil, err
	}
	s := &ApiServer{
		Context: ctx,
		Config:  cfg,
		doc:     doc,
		dram:    dramServer,
	}
	return s, nil
}

// Start
func (s *ApiServer) Run() error {
	log.Info("Starting API server: address: %s port: %d", s.Config.IP, s.Config.ApiPort)
	s.configureRouter()
	httpServer := &http.Server{
		Handler: handlers.RecoveryHandler()(handlers.CombinedLoggingHandler(os.Stdout, s.Router)),
		Addr:    fmt.Sprintf("%s:%d", s.Config.IP, s.Config.ApiPort),
	}
	return httpServer.ListenAndServe()
}

func (s *ApiServer) configureRouter() {
	s.Router = mux.NewRouter()
	s.Router.Use(instrument)
	subRouter := s.Router.PathPrefix("/api").Subrouter()
	// swagger:operation GET /dram get DDR details
	// ---
	// summary: read decoded DDR details
	// description: --
	// responses:
	//   "200":
	//     "$ref": "#/responses/okResp"
	//   "404":
	//     "$ref": "#/responses/notFound"
	subRouter.HandleFunc("/dram", s.handleInfo()).Methods("GET")
	// swagger:operation GET /dram/frequencies get DDR frequencies
	// ---
	// summary: read enabled DDR frequencies in Hz
	// description: --
	// responses:
	//   "200":
	//     "$ref": "#/responses/okResp"
	//   "404":
	//     "$ref": "#/responses/notFound"
	subRouter.HandleFunc("/dram/frequencies", s.handleFrequencies()).Methods("GET")
	// swagger:operation GET /dram/hbb get highest bank bit
	// ---
	// summary: read the highest bank bit
	// description: --
	// responses:
	//   "200":
	//     "$ref": "#/responses/okResp"
	//   "404":
	//     "$ref": "#/responses/notFound"
	subRouter.HandleFunc("/dram/hbb", s.handleBankBit()).Methods("GET")
	// swagger:operation POST /dram/refresh refresh DDR details
	// ---
	// summary: reread the shared memory snapshot and decode the DDR info item
	// description: --
	// responses:
	//   "200":
	//     "$ref": "#/responses/okResp"
	//   "404":
	//     "$ref": "#/responses/notFound"
	//   "502":
	//     "$ref": "#/responses/badUpstream"
	subRouter.HandleFunc("/dram/refresh", s.handleRefresh()).Methods("POST")
	// swagger:operation GET /smem/items list shared memory items
	// ---
	// summary: list items present in the shared memory snapshot
	// description: --
	// responses:
	//   "200":
	//     "$ref": "#/responses/okResp"
	//   "502":
	//     "$ref": "#/responses/badUpstream"
	subRouter.HandleFunc("/smem/items", s.handleItems()).Methods("GET")
	// swagger:operation GET /diagnostics list diagnostics
	// ---
	// summary: list blobs that could not be decoded
	// description: --
	// responses:
	//   "200":
	//     "$ref": "#/responses/okResp"
	subRouter.HandleFunc("/diagnostics", s.handleDiagnostics()).Methods("GET")
	subRouter.HandleFunc("/swagger.json", s.handleSwagger()).Methods("GET")
	subRouter.Handle("/docs", middleware.Redoc(middleware.RedocOpts{BasePath: "/api", SpecURL: "/api/swagger.json"}, nil)).Methods("GET")
	s.Router.Handle("/metrics", promhttp.Handler())
}

func (s *ApiServer) handleInfo() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Handling DDR details request")
		result := s.dram.cache.Result()
		if result == nil {
			http.Error(w, dram.ErrNoData{}.Error(), http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	}
}

func (s *ApiServer) handleFrequencies() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Handling DDR frequencies request")
		freqs, err := s.dram.cache.Frequencies()
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(freqs)
	}
}

func (s *ApiServer) handleBankBit() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Handling highest bank bit request")
		hbb, err := s.dram.cache.HighestBankBit()
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(&BankBit{HighestBankBit: hbb})
	}
}

func (s *ApiServer) handleRefresh() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Handling refresh request")
		result, err := s.dram.Refresh()
		switch err.(type) {
		case nil:
		case layers.ErrBlobTooSmall, smem.ErrItemNotFound:
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		default:
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	}
}

func (s *ApiServer) handleItems() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Handling shared memory items request")
		items, err := s.dram.Items()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(items)
	}
}

func (s *ApiServer) handleDiagnostics() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Handling diagnostics request")
		diags, err := s.dram.state.GetDiagnostics()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(diags)
	}
}

func (s *ApiServer) handleSwagger() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(s.doc.Raw())
	}
}
