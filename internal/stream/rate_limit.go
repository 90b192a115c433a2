package stream

import (
	"sync"
)

// streamLimiter caps concurrent playback streams per client IP and overall.
type streamLimiter struct {
	mu       sync.Mutex
	active   map[string]int
	total    int
	maxPerIP int
	maxTotal int
}

func newStreamLimiter(maxPerIP, maxTotal int) *streamLimiter {
	if maxTotal < 1 {
		maxTotal = 1000
	}
	return &streamLimiter{
		active:   make(map[string]int),
		maxPerIP: maxPerIP,
		maxTotal: maxTotal,
	}
}

// acquire reserves a stream slot for ip. It reports false when either cap is reached.
func (l *streamLimiter) acquire(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.total >= l.maxTotal || l.active[ip] >= l.maxPerIP {
		return false
	}
	l.active[ip]++
	l.total++
	return true
}

// release returns a slot taken by acquire.
func (l *streamLimiter) release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active[ip] <= 1 {
		delete(l.active, ip)
	} else {
		l.active[ip]--
	}
	if l.total > 0 {
		l.total--
	}
}

func (l *streamLimiter) count(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active[ip]
}

func (l *streamLimiter) totalCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}
