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
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/soclab/go-dram/pkg/dram"
)

const (
	OutcomeOk            = "ok"
	OutcomeTooSmall      = "too_small"
	OutcomeUnknownLayout = "unknown_layout"
	OutcomeMissing       = "missing"
	OutcomeError         = "error"
)

var (
	refreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dram_refresh_total",
			Help: "Total number of DDR info refresh attempts by outcome",
		},
		[]string{"outcome"},
	)

	frequencyCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dram_frequencies",
			Help: "Number of enabled DDR frequencies in the last decoded blob",
		},
	)

	highestBankBit = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dram_highest_bank_bit",
			Help: "Highest bank bit of the last decoded blob",
		},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dram_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "code"},
	)
)

func observeRefresh(outcome string) {
	refreshTotal.WithLabelValues(outcome).Inc()
}

func observeResult(result *dram.Result) {
	frequencyCount.Set(float64(len(result.Frequencies)))
	highestBankBit.Set(float64(result.HighestBankBit))
}

// statusWriter wraps http.ResponseWriter to capture the status code
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// instrument counts HTTP requests by method, path and status code
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(sw.status)).Inc()
	})
}
