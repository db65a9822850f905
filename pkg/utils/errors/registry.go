package errors

import (
	"fmt"
	"slices"
	"sync"
)

var registry = struct {
	sync.RWMutex
	byCode map[int]*Errno
}{byCode: make(map[int]*Errno)}

// Register records e under its code. Codes must be unique and must not
// use the success category; violations panic at package init.
func Register(e *Errno) *Errno {
	if _, category, _ := ParseCode(e.Code); category == CategorySuccess {
		panic(fmt.Sprintf("errno code %d uses the success category", e.Code))
	}

	registry.Lock()
	defer registry.Unlock()
	if prev, ok := registry.byCode[e.Code]; ok {
		panic(fmt.Sprintf("errno code %d registered twice: %q and %q", e.Code, prev.MessageEN, e.MessageEN))
	}
	registry.byCode[e.Code] = e
	return e
}

// Lookup returns the Errno registered for code.
func Lookup(code int) (*Errno, bool) {
	registry.RLock()
	defer registry.RUnlock()
	e, ok := registry.byCode[code]
	return e, ok
}

// Codes returns every registered code belonging to service, in ascending order.
func Codes(service int) []int {
	registry.RLock()
	defer registry.RUnlock()
	var out []int
	for code := range registry.byCode {
		if s, _, _ := ParseCode(code); s == service {
			out = append(out, code)
		}
	}
	slices.Sort(out)
	return out
}
