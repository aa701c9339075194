package server

import (
	"net/http"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/load"
	"github.com/shirou/gopsutil/mem"

	"github.com/mistermingming/ProcurementManagement/util/log"
)

type hostStatus struct {
	CpuCount   int     `json:"cpu_count"`
	CpuPercent float64 `json:"cpu_percent"`
	Load1      float64 `json:"load1"`
	MemTotal   uint64  `json:"mem_total"`
	MemUsed    uint64  `json:"mem_used"`

	Goroutines int    `json:"goroutines"`
	HeapAlloc  uint64 `json:"heap_alloc"`
	DbBytes    uint64 `json:"db_bytes"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := new(hostStatus)

	if cpus, err := cpu.Counts(false); err == nil {
		status.CpuCount = cpus
	} else {
		log.Warn("collect cpu count failed, err[%v]", err)
	}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		status.CpuPercent = percents[0]
	}
	if avg, err := load.Avg(); err == nil {
		status.Load1 = avg.Load1
	}
	if memory, err := mem.VirtualMemory(); err == nil {
		status.MemTotal = memory.Total
		status.MemUsed = memory.Used
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	status.Goroutines = runtime.NumGoroutine()
	status.HeapAlloc = ms.HeapAlloc
	status.DbBytes = fileUsage(s.conf.DbPath)

	httpSendOk(w, status)
}

func fileUsage(path string) uint64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return uint64(info.Size())
}
