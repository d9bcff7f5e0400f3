package process

import (
	"fmt"
	"net"
	"sync"
)

// PortAllocator hands out ports from a fixed range, one holder per port.
type PortAllocator struct {
	start, end int
	mu         sync.Mutex
	held       map[int]string
	probe      func(port int) bool
}

func NewPortAllocator(start, end int) *PortAllocator {
	return &PortAllocator{start: start, end: end, held: make(map[int]string), probe: portFree}
}

func portFree(port int) bool {
	l, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return false
	}
	l.Close()
	return true
}

// Acquire reserves the first port that is neither held nor bound.
func (a *PortAllocator) Acquire(holder string) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for p := a.start; p <= a.end; p++ {
		if _, taken := a.held[p]; taken {
			continue
		}
		if !a.probe(p) {
			continue
		}
		a.held[p] = holder
		return p, nil
	}
	return 0, fmt.Errorf("%w: range %d-%d exhausted", ErrNoFreePort, a.start, a.end)
}

func (a *PortAllocator) Release(port int) {
	a.mu.Lock()
	delete(a.held, port)
	a.mu.Unlock()
}

func (a *PortAllocator) Held() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.held)
}
