//go:build linux

package benchmark

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/procfs"
	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

// procSampler reads /proc/self through procfs
type procSampler struct {
	proc    procfs.Proc
	lastCPU float64
	lastAt  time.Time
	ioWarn  sync.Once
}

// NewProcessSampler returns a sampler for the current process
func NewProcessSampler() (Sampler, error) {
	proc, err := procfs.Self()
	if err != nil {
		return nil, fmt.Errorf("failed to open /proc/self: %w", err)
	}
	stat, err := proc.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to read process stat: %w", err)
	}
	return &procSampler{
		proc:    proc,
		lastCPU: stat.CPUTime(),
		lastAt:  time.Now(),
	}, nil
}

func (p *procSampler) Sample() (ProcessSample, error) {
	stat, err := p.proc.Stat()
	if err != nil {
		return ProcessSample{}, fmt.Errorf("failed to read process stat: %w", err)
	}

	now := time.Now()
	cpu := stat.CPUTime()
	var pct float64
	if elapsed := now.Sub(p.lastAt).Seconds(); elapsed > 0 {
		pct = (cpu - p.lastCPU) / elapsed * 100
	}
	p.lastCPU, p.lastAt = cpu, now

	sample := ProcessSample{
		CPUPercent:    pct,
		ResidentBytes: uint64(stat.ResidentMemory()),
	}

	// /proc/self/io is missing on some sandboxed kernels
	pio, err := p.proc.IO()
	if err != nil {
		p.ioWarn.Do(func() {
			log.Warn().Err(err).Msg("Process I/O counters unavailable, disk traffic will read as zero")
		})
		return sample, nil
	}
	sample.DiskReadBytes = pio.ReadBytes
	sample.DiskWriteBytes = pio.WriteBytes

	return sample, nil
}

func fillHostInfo(info *SystemInfo) {
	info.OS = osName()

	var uts unix.Utsname
	if err := unix.Uname(&uts); err == nil {
		info.Kernel = unix.ByteSliceToString(uts.Release[:])
	}

	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return
	}
	if meminfo, err := fs.Meminfo(); err == nil && meminfo.MemTotal != nil {
		info.Mem = *meminfo.MemTotal * 1024
	}
	if cpus, err := fs.CPUInfo(); err == nil && len(cpus) > 0 {
		info.CPU = cpus[0].ModelName
	}
}

func osName() string {
	f, err := os.Open("/etc/os-release")
	if err != nil {
		return "Linux"
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if name, ok := strings.CutPrefix(scanner.Text(), "PRETTY_NAME="); ok {
			return strings.Trim(name, `"`)
		}
	}
	return "Linux"
}
