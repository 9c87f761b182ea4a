package soak

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/google/safeopen"
	"github.com/samber/lo"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/benz9527/xavl/lib/infra"
)

const (
	StatusPassed = "passed"
	StatusFailed = "failed"
)

// Result is the outcome of one workload on one worker.
type Result struct {
	Kind      Kind          `json:"kind"`
	Worker    int           `json:"worker"`
	Seed      uint64        `json:"seed"`
	Stream    uint64        `json:"stream"`
	Ops       int64         `json:"ops"`
	MaxHeight int           `json:"maxHeight"`
	Elapsed   time.Duration `json:"elapsed"`
	Error     string        `json:"error,omitempty"`
}

func (res Result) Failed() bool {
	return res.Error != ""
}

type ProcessSnapshot struct {
	Pid        int32   `json:"pid"`
	RSS        uint64  `json:"rss"`
	CPUPercent float64 `json:"cpuPercent"`
	Threads    int32   `json:"threads"`
	Goroutines int     `json:"goroutines"`
	MaxProcs   int     `json:"maxProcs"`
}

type Report struct {
	RunID     string          `json:"runId"`
	StartedAt time.Time       `json:"startedAt"`
	Elapsed   time.Duration   `json:"elapsed"`
	Config    Config          `json:"config"`
	Results   []Result        `json:"results"`
	TotalOps  int64           `json:"totalOps"`
	Failed    int             `json:"failed"`
	Status    string          `json:"status"`
	Process   ProcessSnapshot `json:"process"`
}

func (r *Report) summarize() {
	r.TotalOps = lo.SumBy(r.Results, func(res Result) int64 {
		return res.Ops
	})
	r.Failed = lo.CountBy(r.Results, Result.Failed)
	r.Status = lo.Ternary(r.Failed == 0, StatusPassed, StatusFailed)
}

// snapshotProcess reads the process usage. Fields the platform refuses to
// report stay zero.
func snapshotProcess() ProcessSnapshot {
	snapshot := ProcessSnapshot{
		Pid:        int32(os.Getpid()),
		Goroutines: runtime.NumGoroutine(),
		MaxProcs:   runtime.GOMAXPROCS(0),
	}
	proc, err := process.NewProcess(snapshot.Pid)
	if err != nil {
		return snapshot
	}
	if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
		snapshot.RSS = mem.RSS
	}
	if cpu, err := proc.CPUPercent(); err == nil {
		snapshot.CPUPercent = cpu
	}
	if threads, err := proc.NumThreads(); err == nil {
		snapshot.Threads = threads
	}
	return snapshot
}

func reportFilename(runID string) string {
	return fmt.Sprintf("avlsoak-%s.json", runID)
}

// WriteReport stores the report as JSON beneath dir and returns the file
// name relative to dir.
func WriteReport(dir string, report *Report) (string, error) {
	if report == nil {
		return "", infra.NewErrorStack("[soak] nil report")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", infra.WrapErrorStackWithMessage(err, "[soak] create report dir")
	}
	name := reportFilename(report.RunID)
	f, err := safeopen.OpenFileBeneath(dir, name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return "", infra.WrapErrorStackWithMessage(err, "[soak] open report")
	}
	defer func() {
		_ = f.Close()
	}()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err = enc.Encode(report); err != nil {
		return "", infra.WrapErrorStackWithMessage(err, "[soak] encode report")
	}
	return name, f.Sync()
}
