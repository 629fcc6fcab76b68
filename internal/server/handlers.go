package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// handleStatus handles GET /api
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "AskPay Forex Signals API is running",
		"database": s.db.Driver(),
		"version":  Version,
		"dev_mode": s.cfg.DevMode,
	})
}

// handleHealth handles GET /api/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	cpuPercent, memPercent := s.getSystemStats()
	response := map[string]interface{}{
		"status":    "ok",
		"database":  "connected",
		"timestamp": time.Now().Format(time.RFC3339),
		"system": map[string]float64{
			"cpu_percent": cpuPercent,
			"mem_percent": memPercent,
		},
		"ledger": map[string]interface{}{
			"balance": s.ledger.Balance(),
			"drift":   s.ledger.Drift(),
		},
	}

	status := http.StatusOK
	if err := s.db.HealthCheck(ctx); err != nil {
		s.log.Error().Err(err).Msg("Database health check failed")
		status = http.StatusServiceUnavailable
		response["status"] = "error"
		response["database"] = "disconnected"
		response["error"] = err.Error()
	}

	s.writeJSON(w, status, response)
}

// handleBackup handles POST /api/system/backup
func (s *Server) handleBackup(w http.ResponseWriter, r *http.Request) {
	if s.snapshot == nil {
		http.Error(w, "Snapshot backups are not configured", http.StatusServiceUnavailable)
		return
	}

	key, err := s.snapshot.Backup(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("Manual snapshot backup failed")
		http.Error(w, "Backup failed", http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"key":       key,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// handleNotFound answers unknown routes with a JSON error
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "Route not found",
		"path":  r.URL.Path,
	})
}

// getSystemStats returns CPU and RAM usage percentages, sampling CPU over 100ms
func (s *Server) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}
	return cpuAvg, memStat.UsedPercent
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
