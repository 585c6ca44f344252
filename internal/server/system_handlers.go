package server

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/eigenfolio/eigenfolio/internal/di"
	"github.com/eigenfolio/eigenfolio/internal/scheduler"
	"github.com/eigenfolio/eigenfolio/internal/version"
)

// SystemHandlers serves system monitoring and operations endpoints.
type SystemHandlers struct {
	log       zerolog.Logger
	dataDir   string
	container *di.Container
	sched     *scheduler.Scheduler
	startedAt time.Time
}

// NewSystemHandlers creates the system handlers.
func NewSystemHandlers(log zerolog.Logger, dataDir string, container *di.Container, sched *scheduler.Scheduler) *SystemHandlers {
	return &SystemHandlers{
		log:       log.With().Str("handler", "system").Logger(),
		dataDir:   dataDir,
		container: container,
		sched:     sched,
		startedAt: time.Now(),
	}
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"version":        version.Version,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"goroutines":     runtime.NumGoroutine(),
	}

	if cpuPercent, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(cpuPercent) > 0 {
		status["cpu_percent"] = cpuPercent[0]
	}
	if memStat, err := mem.VirtualMemory(); err == nil {
		status["memory"] = map[string]interface{}{
			"used_percent": memStat.UsedPercent,
			"total_mb":     memStat.Total / 1024 / 1024,
			"available_mb": memStat.Available / 1024 / 1024,
		}
	}
	if diskStat, err := disk.Usage(h.dataDir); err == nil {
		status["disk"] = map[string]interface{}{
			"used_percent": diskStat.UsedPercent,
			"free_mb":      diskStat.Free / 1024 / 1024,
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": status,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleDatabaseStats handles GET /api/system/database/stats
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	stats := make(map[string]interface{})
	for _, db := range h.container.Databases() {
		dbStats, err := db.GetStats()
		if err != nil {
			h.log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to collect database stats")
			stats[db.Name()] = map[string]interface{}{"error": err.Error()}
			continue
		}
		stats[db.Name()] = dbStats
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": stats,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleJobsStatus handles GET /api/system/jobs
func (h *SystemHandlers) HandleJobsStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"jobs": h.sched.Status(),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleTriggerJob handles POST /api/system/jobs/{name}
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if err := h.sched.RunNow(name); err != nil {
		h.log.Error().Err(err).Str("job", name).Msg("Manual job trigger failed")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"triggered": name,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleTriggerBackup handles POST /api/system/backup. It always creates
// local snapshots; when cloud backups are configured the archive is uploaded
// as well.
func (h *SystemHandlers) HandleTriggerBackup(w http.ResponseWriter, r *http.Request) {
	paths, err := h.container.BackupService.BackupAll()
	if err != nil {
		h.log.Error().Err(err).Msg("Local backup failed")
		http.Error(w, "Backup failed", http.StatusInternalServerError)
		return
	}

	uploaded := false
	if h.container.R2BackupService != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
		defer cancel()
		if err := h.container.R2BackupService.CreateAndUploadBackup(ctx); err != nil {
			h.log.Error().Err(err).Msg("Cloud backup failed")
		} else {
			uploaded = true
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"local_snapshots": paths,
			"cloud_uploaded":  uploaded,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleListBackups handles GET /api/system/backups
func (h *SystemHandlers) HandleListBackups(w http.ResponseWriter, r *http.Request) {
	if h.container.R2BackupService == nil {
		http.Error(w, "Cloud backups not configured", http.StatusNotFound)
		return
	}

	backups, err := h.container.R2BackupService.ListBackups(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list backups")
		http.Error(w, "Failed to list backups", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"backups": backups,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleStageRestore handles POST /api/system/restore/{archive}. The restore
// is staged only; it applies on the next startup.
func (h *SystemHandlers) HandleStageRestore(w http.ResponseWriter, r *http.Request) {
	archive := chi.URLParam(r, "archive")

	if err := h.container.RestoreService.StageRestore(r.Context(), archive); err != nil {
		h.log.Error().Err(err).Str("archive", archive).Msg("Failed to stage restore")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"staged":  archive,
			"message": "restore staged, restart to apply",
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
