package ports

import (
	"fmt"
	"net"
	"sort"
	"sync"
	"time"
)

// Fallback TCP connect scan for hosts when naabu is not installed. The scan
// is concurrent per host but each probe passes the shared admission gate, so
// the global rate limit still holds.

var commonPorts = []int{
	21, 22, 23, 25, 53, 80, 110, 111, 135, 139,
	143, 389, 443, 445, 465, 587, 636, 873, 993, 995,
	1080, 1433, 1521, 2049, 2222, 3000, 3306, 3389, 5000, 5432,
	5900, 5984, 5985, 6379, 8000, 8080, 8081, 8443, 8888, 9090,
	9200, 9300, 9443, 10000, 11211, 18080, 27017,
}

// DefaultScanCount returns the number of ports probed per host.
func DefaultScanCount() int {
	return len(commonPorts)
}

// Open probes the common ports of host and returns the open ones, sorted.
// admit is called before each connect; a nil admit probes unthrottled.
func Open(host string, timeout time.Duration, admit func()) []int {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	open := []int{}

	for _, port := range commonPorts {
		if admit != nil {
			admit()
		}
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, fmt.Sprintf("%d", p)), timeout)
			if err != nil {
				return
			}
			conn.Close()
			mu.Lock()
			open = append(open, p)
			mu.Unlock()
		}(port)
	}
	wg.Wait()

	sort.Ints(open)
	return open
}

// Lines formats scan results as "host:port" entries for canonical merging.
func Lines(host string, open []int) []string {
	lines := make([]string, 0, len(open))
	for _, p := range open {
		lines = append(lines, fmt.Sprintf("%s:%d", host, p))
	}
	return lines
}
