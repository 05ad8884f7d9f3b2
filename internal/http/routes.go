// Package http exposes the monitoring API for a running pipeline
// session.
package http

import (
	"runtime"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/seclens/framegate/internal"
)

// Routes registers the monitoring endpoints on the router.
func Routes(r *gin.Engine, pipeline *internal.Pipeline, store *internal.Store) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	r.GET("/stats", func(c *gin.Context) {
		stats := pipeline.Stats().Snapshot()

		savingsPercent := 0.0
		if stats.TotalFrames > 0 {
			skipped := stats.SkippedNoMotion + stats.SkippedDup
			savingsPercent = float64(skipped) / float64(stats.TotalFrames) * 100
		}

		resp := gin.H{
			"session":         stats,
			"api_calls_saved": pipeline.Stats().APICallsSaved(),
			"savings_percent": savingsPercent,
		}

		if store != nil {
			if total, err := store.TotalFrames(); err == nil {
				resp["stored_frames"] = total
			}
			if byLevel, err := store.CountByLevel(); err == nil {
				resp["by_level"] = byLevel
			}
		}

		c.JSON(200, resp)
	})

	r.GET("/events", func(c *gin.Context) {
		if store == nil {
			c.JSON(503, gin.H{"error": "result store disabled"})
			return
		}

		limit := 50
		if raw := c.Query("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
				limit = n
			}
		}

		records, err := store.RecentResults(limit)
		if err != nil {
			c.JSON(500, gin.H{"error": err.Error()})
			return
		}
		c.JSON(200, gin.H{"items": records})
	})

	r.POST("/reset-stream", func(c *gin.Context) {
		pipeline.ResetStream()
		c.JSON(200, gin.H{"status": "reset"})
	})

	r.GET("/system-metrics", func(c *gin.Context) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		metrics := gin.H{
			"program_memory_alloc_mb": float64(m.Alloc) / 1024 / 1024,
			"program_memory_sys_mb":   float64(m.Sys) / 1024 / 1024,
			"program_gc_cycles":       m.NumGC,
			"program_goroutines":      runtime.NumGoroutine(),
			"program_num_cpus":        runtime.NumCPU(),
		}

		if memInfo, err := mem.VirtualMemory(); err == nil {
			metrics["system_memory_total_mb"] = float64(memInfo.Total) / (1024 * 1024)
			metrics["system_memory_used_mb"] = float64(memInfo.Used) / (1024 * 1024)
			metrics["system_memory_percent"] = memInfo.UsedPercent
		} else {
			metrics["system_memory_error"] = err.Error()
		}

		if diskInfo, err := disk.Usage("/"); err == nil {
			metrics["system_disk_total_mb"] = float64(diskInfo.Total) / (1024 * 1024)
			metrics["system_disk_free_mb"] = float64(diskInfo.Free) / (1024 * 1024)
			metrics["system_disk_percent"] = diskInfo.UsedPercent
		} else {
			metrics["system_disk_error"] = err.Error()
		}

		if cpuInfo, err := cpu.Percent(time.Second, false); err == nil && len(cpuInfo) > 0 {
			metrics["system_cpu_percent"] = cpuInfo[0]
		} else if err != nil {
			metrics["system_cpu_error"] = err.Error()
		}

		c.JSON(200, metrics)
	})
}
