//go:build !linux

package benchmark

import (
	"fmt"
	"runtime"
)

// NewProcessSampler is only implemented on Linux
func NewProcessSampler() (Sampler, error) {
	return nil, fmt.Errorf("process sampling is only supported on Linux")
}

func fillHostInfo(info *SystemInfo) {
	info.OS = runtime.GOOS
}
