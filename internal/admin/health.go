// Package admin exposes operational endpoints: process and host health.
package admin

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
)

var StartTime = time.Now()

// HealthChecker reports the status of a backing service.
type HealthChecker interface {
	Health() map[string]string
}

func gb(b uint64) string {
	return fmt.Sprintf("%.2f GB", float64(b)/1024/1024/1024)
}

// SystemStats samples host metrics. Collectors that fail are left out.
func SystemStats() map[string]any {
	stats := map[string]any{
		"uptime":     time.Since(StartTime).Round(time.Second).String(),
		"start_time": StartTime.Format(time.RFC3339),
	}

	if hInfo, err := host.Info(); err == nil {
		stats["host"] = map[string]any{
			"os":       hInfo.OS,
			"platform": hInfo.Platform,
			"arch":     hInfo.KernelArch,
			"hostname": hInfo.Hostname,
			"procs":    hInfo.Procs,
		}
	} else {
		log.Debug().Err(err).Msg("host info unavailable")
	}

	// Non-blocking sample: usage since the previous call.
	if cpuPercent, err := cpu.Percent(0, false); err == nil && len(cpuPercent) > 0 {
		stats["cpu_usage"] = fmt.Sprintf("%.2f%%", cpuPercent[0])
	}

	if v, err := mem.VirtualMemory(); err == nil {
		stats["memory"] = map[string]any{
			"total_gb":     gb(v.Total),
			"used_gb":      gb(v.Used),
			"used_percent": fmt.Sprintf("%.2f%%", v.UsedPercent),
		}
	}

	if d, err := disk.Usage("/"); err == nil {
		stats["disk"] = map[string]any{
			"total_gb":     gb(d.Total),
			"used_gb":      gb(d.Used),
			"used_percent": fmt.Sprintf("%.2f%%", d.UsedPercent),
		}
	}
	return stats
}

// HealthHandler serves GET /health. It answers 503 when the database is down.
func HealthHandler(db HealthChecker) echo.HandlerFunc {
	return func(c echo.Context) error {
		dbStats := db.Health()
		status := http.StatusOK
		overall := "online"
		if dbStats["status"] != "up" {
			status = http.StatusServiceUnavailable
			overall = "degraded"
		}
		return c.JSON(status, map[string]any{
			"status":   overall,
			"database": dbStats,
			"system":   SystemStats(),
		})
	}
}
