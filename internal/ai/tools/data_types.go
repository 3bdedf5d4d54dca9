package tools

import "time"

// ContainerInfo is the summary view of one container returned by
// get_containers.
type ContainerInfo struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Image   string    `json:"image"`
	State   string    `json:"state"`  // running, exited, paused...
	Status  string    `json:"status"` // human-readable, e.g. "Up 3 hours"
	Ports   []string  `json:"ports,omitempty"`
	Created time.Time `json:"created"`
}

// SystemResources is the snapshot returned by get_system_resources.
type SystemResources struct {
	Hostname      string     `json:"hostname"`
	UptimeSeconds uint64     `json:"uptime_seconds"`
	CPUPercent    float64    `json:"cpu_percent"`
	LoadAverage   [3]float64 `json:"load_average"`
	MemoryTotal   uint64     `json:"memory_total"`
	MemoryUsed    uint64     `json:"memory_used"`
	MemoryPercent float64    `json:"memory_percent"`
	SwapTotal     uint64     `json:"swap_total"`
	SwapUsed      uint64     `json:"swap_used"`
}

// DiskUsage describes one mounted filesystem.
type DiskUsage struct {
	Device      string  `json:"device"`
	Mountpoint  string  `json:"mountpoint"`
	Fstype      string  `json:"fstype"`
	Total       uint64  `json:"total"`
	Used        uint64  `json:"used"`
	Free        uint64  `json:"free"`
	UsedPercent float64 `json:"used_percent"`
}

// NetworkInterface describes one network interface and its counters.
type NetworkInterface struct {
	Name      string   `json:"name"`
	Addresses []string `json:"addresses,omitempty"`
	MTU       int      `json:"mtu"`
	Up        bool     `json:"up"`
	BytesSent uint64   `json:"bytes_sent"`
	BytesRecv uint64   `json:"bytes_recv"`
}

// Fail2banStatus is the parsed output of fail2ban-client status.
type Fail2banStatus struct {
	Running bool         `json:"running"`
	Jails   []JailStatus `json:"jails,omitempty"`
}

// JailStatus describes one fail2ban jail.
type JailStatus struct {
	Name            string   `json:"name"`
	CurrentlyBanned int      `json:"currently_banned"`
	TotalBanned     int      `json:"total_banned"`
	BannedIPs       []string `json:"banned_ips,omitempty"`
}

// CommandResult is what run_command reports back to the model.
type CommandResult struct {
	Command  string `json:"command"`
	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout,omitempty"`
	Stderr   string `json:"stderr,omitempty"`
}
