package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	exportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "famreport",
			Name:      "exports_total",
			Help:      "Spreadsheet exports by result (exported, failed)",
		},
		[]string{"result"},
	)
	lastExportedVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "famreport",
			Name:      "last_exported_version",
			Help:      "Version of the report most recently written to the spreadsheet",
		},
	)
)
