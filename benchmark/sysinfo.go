package benchmark

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// SystemInfo is the first line of every result file
type SystemInfo struct {
	OS       string `json:"os"`
	Kernel   string `json:"kernel"`
	CPU      string `json:"cpu"`
	Mem      uint64 `json:"mem"`
	Datetime string `json:"datetime"`
	TS       int64  `json:"ts"`
	RunID    string `json:"run_id"`
}

// ProcessSample is one reading of this process' resource usage
type ProcessSample struct {
	CPUPercent     float64 // since the previous sample, 100 = one core
	ResidentBytes  uint64
	DiskReadBytes  uint64 // since process start
	DiskWriteBytes uint64 // since process start
}

// Sampler reads process statistics for the monitor
type Sampler interface {
	Sample() (ProcessSample, error)
}

// CollectSystemInfo describes the host the benchmark runs on
func CollectSystemInfo(start time.Time) SystemInfo {
	info := SystemInfo{
		Datetime: start.UTC().Format(time.RFC3339),
		TS:       start.UnixMilli(),
		RunID:    uuid.NewString(),
	}
	fillHostInfo(&info)
	return info
}

// dirSize sums the size of all regular files below path. Files that vanish
// during the walk (compactions remove them all the time) are skipped.
func dirSize(path string) (uint64, error) {
	var size uint64

	err := filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		size += uint64(info.Size())
		return nil
	})

	return size, err
}
