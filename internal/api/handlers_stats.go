// Agent Monitor - local-first observability hub for AI coding agents
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agentmonitor

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/agentmonitor/internal/aggregation"
	"github.com/tomtom215/agentmonitor/internal/apierr"
)

// costBreakdownTopN bounds the by_project/by_model rankings returned by
// GET /api/stats/cost; the timeline itself is never truncated.
const costBreakdownTopN = 20

func (h *Handlers) filterFromQuery(r *http.Request) (aggregation.Filter, *apierr.Error) {
	q, qerr := parseAggregationQuery(r)
	if qerr != nil {
		return aggregation.Filter{}, qerr
	}
	return aggregation.Filter{AgentKind: q.AgentType, Since: q.Since}, nil
}

// getStats handles GET /api/stats.
func (h *Handlers) getStats(w http.ResponseWriter, r *http.Request) {
	f, qerr := h.filterFromQuery(r)
	if qerr != nil {
		respondError(w, qerr)
		return
	}

	stats, err := h.aggregation.Stats(r.Context(), f)
	if err != nil {
		respondError(w, apierr.New(apierr.Transient, "failed to compute stats"))
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// getToolStats handles GET /api/stats/tools.
func (h *Handlers) getToolStats(w http.ResponseWriter, r *http.Request) {
	f, qerr := h.filterFromQuery(r)
	if qerr != nil {
		respondError(w, qerr)
		return
	}

	tools, err := h.aggregation.ToolAnalytics(r.Context(), f)
	if err != nil {
		respondError(w, apierr.New(apierr.Transient, "failed to compute tool analytics"))
		return
	}
	respondJSON(w, http.StatusOK, toolStatsResponse{Tools: tools})
}

type toolStatsResponse struct {
	Tools []aggregation.ToolStat `json:"tools"`
}

// getCostStats handles GET /api/stats/cost.
func (h *Handlers) getCostStats(w http.ResponseWriter, r *http.Request) {
	f, qerr := h.filterFromQuery(r)
	if qerr != nil {
		respondError(w, qerr)
		return
	}

	breakdown, err := h.aggregation.CostBreakdowns(r.Context(), f, costBreakdownTopN)
	if err != nil {
		respondError(w, apierr.New(apierr.Transient, "failed to compute cost breakdowns"))
		return
	}
	respondJSON(w, http.StatusOK, breakdown)
}

// getUsageMonitor handles GET /api/stats/usage-monitor.
func (h *Handlers) getUsageMonitor(w http.ResponseWriter, r *http.Request) {
	usage, err := h.aggregation.UsageMonitor(r.Context(), h.usageLimits, time.Now().UTC())
	if err != nil {
		respondError(w, apierr.New(apierr.Transient, "failed to compute usage monitor"))
		return
	}
	respondJSON(w, http.StatusOK, usage)
}

// getFilterOptions handles GET /api/filter-options.
func (h *Handlers) getFilterOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := h.aggregation.FilterOptions(r.Context())
	if err != nil {
		respondError(w, apierr.New(apierr.Transient, "failed to compute filter options"))
		return
	}
	respondJSON(w, http.StatusOK, opts)
}
