// control/debug.go
// Author: momentics <momentics@gmail.com>
//
// Runtime debug handler and probe reflector for internal inspection.

package control

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
)

// DebugProbes holds registered probe functions.
type DebugProbes struct {
	mu     sync.RWMutex
	probes map[string]func() any
}

// NewDebugProbes creates a probe registry.
func NewDebugProbes() *DebugProbes {
	return &DebugProbes{
		probes: make(map[string]func() any),
	}
}

// RegisterProbe inserts a named debug hook.
func (dp *DebugProbes) RegisterProbe(name string, fn func() any) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.probes[name] = fn
}

// DumpState returns output of all probes.
func (dp *DebugProbes) DumpState() map[string]any {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	out := make(map[string]any)
	for k, fn := range dp.probes {
		out[k] = fn()
	}
	return out
}

// WriteTo prints every probe as "name: value", sorted by name. Multi-line
// values start on the line after their name.
func (dp *DebugProbes) WriteTo(w io.Writer) (int64, error) {
	state := dp.DumpState()
	names := make([]string, 0, len(state))
	for k := range state {
		names = append(names, k)
	}
	slices.Sort(names)

	var total int64
	for _, name := range names {
		var (
			n   int
			err error
		)
		v := fmt.Sprint(state[name])
		if strings.Contains(v, "\n") {
			if !strings.HasSuffix(v, "\n") {
				v += "\n"
			}
			n, err = fmt.Fprintf(w, "%s:\n%s", name, v)
		} else {
			n, err = fmt.Fprintf(w, "%s: %s\n", name, v)
		}
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
