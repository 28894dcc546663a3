package main

import (
	"encoding/json"
	"net/http"

	"github.com/Suhaibinator/SDispatch/pkg/metrics"
	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// newAdminHandler builds the admin API:
//
//	GET /metrics  Prometheus exposition of gatherer
//	GET /routes   JSON list of the dispatcher's route table
func newAdminHandler(gatherer prometheus.Gatherer, paths func() []string, logger *zap.Logger) http.Handler {
	hr := httprouter.New()
	hr.Handler(http.MethodGet, "/metrics", metrics.Handler(gatherer))
	hr.GET("/routes", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]any{"routes": paths()}); err != nil {
			logger.Warn("Failed to write routes", zap.Error(err))
		}
	})
	return hr
}
