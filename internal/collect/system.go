// Package collect implements the default data providers behind the
// diagnostic tools: host resources via gopsutil, containers via the Docker
// API, and fail2ban via its client binary.
package collect

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	gopsnet "github.com/shirou/gopsutil/v4/net"

	"github.com/opshawk/opshawk/internal/ai/tools"
)

// SystemCollector reads host resource state through gopsutil.
type SystemCollector struct{}

// NewSystemCollector creates a system collector.
func NewSystemCollector() *SystemCollector {
	return &SystemCollector{}
}

// SystemResources returns a point-in-time snapshot of CPU, memory and load.
func (c *SystemCollector) SystemResources(ctx context.Context) (tools.SystemResources, error) {
	var res tools.SystemResources

	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return res, fmt.Errorf("host info: %w", err)
	}
	res.Hostname = info.Hostname
	res.UptimeSeconds = info.Uptime

	// Instant reading against the last sampling point, no sleep.
	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		res.CPUPercent = percents[0]
	}

	if avg, err := load.AvgWithContext(ctx); err == nil {
		res.LoadAverage = [3]float64{avg.Load1, avg.Load5, avg.Load15}
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return res, fmt.Errorf("virtual memory: %w", err)
	}
	res.MemoryTotal = vm.Total
	res.MemoryUsed = vm.Used
	res.MemoryPercent = vm.UsedPercent

	if swap, err := mem.SwapMemoryWithContext(ctx); err == nil {
		res.SwapTotal = swap.Total
		res.SwapUsed = swap.Used
	}

	return res, nil
}

// DiskUsage returns usage for every physical partition.
func (c *SystemCollector) DiskUsage(ctx context.Context) ([]tools.DiskUsage, error) {
	partitions, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("disk partitions: %w", err)
	}

	out := make([]tools.DiskUsage, 0, len(partitions))
	for _, p := range partitions {
		usage, err := disk.UsageWithContext(ctx, p.Mountpoint)
		if err != nil {
			// Stale or inaccessible mounts are common; report the rest.
			continue
		}
		out = append(out, tools.DiskUsage{
			Device:      p.Device,
			Mountpoint:  p.Mountpoint,
			Fstype:      p.Fstype,
			Total:       usage.Total,
			Used:        usage.Used,
			Free:        usage.Free,
			UsedPercent: usage.UsedPercent,
		})
	}
	return out, nil
}

// NetworkInterfaces returns interface state with traffic counters merged in.
func (c *SystemCollector) NetworkInterfaces(ctx context.Context) ([]tools.NetworkInterface, error) {
	ifaces, err := gopsnet.InterfacesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("network interfaces: %w", err)
	}

	counters := map[string]gopsnet.IOCountersStat{}
	if stats, err := gopsnet.IOCountersWithContext(ctx, true); err == nil {
		for _, s := range stats {
			counters[s.Name] = s
		}
	}

	out := make([]tools.NetworkInterface, 0, len(ifaces))
	for _, iface := range ifaces {
		ni := tools.NetworkInterface{
			Name: iface.Name,
			MTU:  iface.MTU,
		}
		for _, flag := range iface.Flags {
			if flag == "up" {
				ni.Up = true
			}
		}
		for _, addr := range iface.Addrs {
			ni.Addresses = append(ni.Addresses, addr.Addr)
		}
		if s, ok := counters[iface.Name]; ok {
			ni.BytesSent = s.BytesSent
			ni.BytesRecv = s.BytesRecv
		}
		out = append(out, ni)
	}
	return out, nil
}
