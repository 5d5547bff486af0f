package monitor

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// HostStats is one sample of host resource usage. Fields left zero when
// a source is unreadable; the monitor renders what it has.
type HostStats struct {
	Load1, Load5, Load15 float64

	MemTotalBytes     uint64
	MemAvailableBytes uint64

	DiskTotalBytes uint64
	DiskFreeBytes  uint64
}

// ReadHostStats samples /proc and the filesystem holding diskPath.
func ReadHostStats(diskPath string) HostStats {
	var s HostStats
	s.Load1, s.Load5, s.Load15 = readLoadavg()
	s.MemTotalBytes, s.MemAvailableBytes = readMeminfo()
	var st syscall.Statfs_t
	if err := syscall.Statfs(diskPath, &st); err == nil {
		s.DiskTotalBytes = st.Blocks * uint64(st.Bsize)
		s.DiskFreeBytes = st.Bavail * uint64(st.Bsize)
	}
	return s
}

func readLoadavg() (l1, l5, l15 float64) {
	b, err := os.ReadFile("/proc/loadavg")
	if err != nil {
		return
	}
	fields := strings.Fields(string(b))
	if len(fields) < 3 {
		return
	}
	l1, _ = strconv.ParseFloat(fields[0], 64)
	l5, _ = strconv.ParseFloat(fields[1], 64)
	l15, _ = strconv.ParseFloat(fields[2], 64)
	return
}

func readMeminfo() (total, available uint64) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 {
			continue
		}
		kb, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			continue
		}
		switch fields[0] {
		case "MemTotal:":
			total = kb * 1024
		case "MemAvailable:":
			available = kb * 1024
		}
	}
	return
}
