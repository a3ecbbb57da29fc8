package objects

import "sync/atomic"

// mutable is implemented by state that speculative branches may modify:
// namespaces and container payloads.
type mutable interface {
	snapshot() any
	restore(state any)
	merge(a, b any) any

	// widen returns state with every key in keys, or for containers the
	// whole contents, made unknown. It reports whether that lost anything.
	widen(state any, keys map[string]bool) (any, bool)

	// serial orders creation: objects made after a speculative pass began
	// have a larger serial than the pass.
	serial() uint64
}

var serials atomic.Uint64

func nextSerial() uint64 { return serials.Add(1) }

type journalLevel struct {
	orig     map[mutable]any
	order    []mutable
	assigned map[*Namespace]map[string]bool
}

func newJournalLevel() *journalLevel {
	return &journalLevel{
		orig:     make(map[mutable]any),
		assigned: make(map[*Namespace]map[string]bool),
	}
}

// journal records the original state of everything mutated while one or more
// speculative branches are active.
type journal struct {
	levels []*journalLevel
}

func (j *journal) touch(obj mutable) {
	for _, lvl := range j.levels {
		if _, ok := lvl.orig[obj]; !ok {
			lvl.orig[obj] = obj.snapshot()
			lvl.order = append(lvl.order, obj)
		}
	}
}

func (j *journal) bind(ns *Namespace, key string) {
	j.touch(ns)
	for _, lvl := range j.levels {
		keys := lvl.assigned[ns]
		if keys == nil {
			keys = make(map[string]bool)
			lvl.assigned[ns] = keys
		}
		keys[key] = true
	}
}

func (j *journal) push() *journalLevel {
	lvl := newJournalLevel()
	j.levels = append(j.levels, lvl)
	return lvl
}

func (j *journal) pop() {
	j.levels = j.levels[:len(j.levels)-1]
}

// Speculating reports whether a speculative branch is running.
func (m *Module) Speculating() bool {
	return len(m.journal.levels) > 0
}

// Speculate runs each branch from the same starting state and leaves the
// merged outcome behind: state all branches agree on is kept, namespace
// bindings that differ become Unknown and containers that differ become
// opaque.
func (m *Module) Speculate(branches ...func()) {
	lvl := m.journal.push()

	results := make([]map[mutable]any, len(branches))
	for i, run := range branches {
		run()
		st := make(map[mutable]any, len(lvl.order))
		for _, obj := range lvl.order {
			st[obj] = obj.snapshot()
			obj.restore(lvl.orig[obj])
		}
		results[i] = st
	}
	m.journal.pop()

	for _, obj := range lvl.order {
		state := func(i int) any {
			if s, ok := results[i][obj]; ok {
				return s
			}
			return lvl.orig[obj]
		}
		if len(results) == 0 {
			continue
		}
		merged := state(0)
		for i := 1; i < len(results); i++ {
			merged = obj.merge(merged, state(i))
		}
		obj.restore(merged)
	}
}

// Widen runs body once from the current state and then rolls it back,
// leaving unknown every binding body assigned or deleted and every container
// it mutated. The result holds for any number of runs of body. Widen reports
// whether state that existed before the call lost information; once it
// returns false, repeating body can reach nothing new.
func (m *Module) Widen(body func()) bool {
	start := serials.Load()
	lvl := m.journal.push()
	body()
	m.journal.pop()

	changed := false
	for _, obj := range lvl.order {
		orig := lvl.orig[obj]
		if obj.serial() > start {
			obj.restore(orig)
			continue
		}
		var keys map[string]bool
		if ns, ok := obj.(*Namespace); ok {
			keys = lvl.assigned[ns]
		}
		wide, lost := obj.widen(orig, keys)
		obj.restore(wide)
		changed = changed || lost
	}
	return changed
}

// Assign binds key in ns, recording the change for branch merging.
func (m *Module) Assign(ns *Namespace, key string, v Value) {
	m.journal.bind(ns, key)
	ns.Set(key, v)
}

// Unbind removes key from ns, recording the change for branch merging.
func (m *Module) Unbind(ns *Namespace, key string) bool {
	if _, ok := ns.Get(key); !ok {
		return false
	}
	m.journal.bind(ns, key)
	return ns.Delete(key)
}

// mutate records obj before a container payload changes.
func (m *Module) mutate(obj mutable) {
	m.journal.touch(obj)
}
