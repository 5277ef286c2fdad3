// SPDX-License-Identifier: MPL-2.0

// Package sysinfo reports the host CPU before a training run is started, so
// that run logs record the hardware a configuration was trained on.
package sysinfo

import (
	"runtime"

	"github.com/klauspost/cpuid/v2"
)

// Report describes the host CPU.
type Report struct {
	OS             string
	Arch           string
	Brand          string
	Vendor         string
	PhysicalCores  int
	LogicalCores   int
	ThreadsPerCore int
	// NumCPU is the number of CPUs usable by this process.
	NumCPU int
	AVX2   bool
	AVX512 bool
}

// Collect reads the CPU information detected at program start.
func Collect() Report {
	return fromCPU(cpuid.CPU)
}

func fromCPU(c cpuid.CPUInfo) Report {
	return Report{
		OS:             runtime.GOOS,
		Arch:           runtime.GOARCH,
		Brand:          c.BrandName,
		Vendor:         c.VendorString,
		PhysicalCores:  c.PhysicalCores,
		LogicalCores:   c.LogicalCores,
		ThreadsPerCore: c.ThreadsPerCore,
		NumCPU:         runtime.NumCPU(),
		AVX2:           c.Supports(cpuid.AVX2),
		AVX512:         c.Supports(cpuid.AVX512F, cpuid.AVX512DQ),
	}
}

// KeyVals returns the report as alternating keys and values for structured
// logging.
func (r Report) KeyVals() []any {
	brand := r.Brand
	if brand == "" {
		brand = "unknown"
	}
	return []any{
		"os", r.OS,
		"arch", r.Arch,
		"cpu", brand,
		"cores", r.PhysicalCores,
		"threads", r.LogicalCores,
		"num_cpu", r.NumCPU,
		"avx2", r.AVX2,
		"avx512", r.AVX512,
	}
}
