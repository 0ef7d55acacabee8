package olecf

import (
	"fmt"

	"go.uber.org/zap"
)

// directory holds the decoded entry arena and knows how to walk the
// sibling trees. Validation runs once at construction; in lenient mode
// it patches bad links to NO_STREAM instead of failing, so every later
// traversal can trust what it follows.
type directory struct {
	entries []*dirEntry
	mode    Mode
	log     *zap.Logger

	// first name-order violation seen during validation, strict mode only
	orderErr error
}

func newDirectory(entries []*dirEntry, mode Mode, log *zap.Logger) (*directory, error) {
	d := &directory{
		entries: entries,
		mode:    mode,
		log:     log,
	}
	if err := d.validate(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *directory) root() *dirEntry {
	return d.entries[ROOT_STREAM_ID]
}

func (d *directory) validate() error {
	if len(d.entries) == 0 {
		return fmt.Errorf("directory stream is empty: %w", ErrCorruptDirectory)
	}

	if d.root().Type != TypeRoot {
		return fmt.Errorf("entry 0 is %v, want root storage: %w", d.root().Type, ErrCorruptDirectory)
	}
	for i, e := range d.entries[1:] {
		if e.Type == TypeRoot {
			return fmt.Errorf("second root storage at entry %d: %w", i+1, ErrCorruptDirectory)
		}
	}

	if d.root().StreamSize%uint64(MINI_SECTOR_LEN) != 0 {
		if d.mode.IsStrict() {
			return fmt.Errorf("mini stream size %d is not a multiple of %d: %w",
				d.root().StreamSize, MINI_SECTOR_LEN, ErrCorruptDirectory)
		}
		d.log.Warn("mini stream size not a multiple of the mini sector size",
			zap.Uint64("size", d.root().StreamSize))
	}

	visited := make(map[uint32]bool)
	stack := []uint32{ROOT_STREAM_ID}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[id] {
			if d.mode.IsStrict() {
				return fmt.Errorf("entry %d reachable twice: %w", id, ErrCorruptDirectory)
			}
			continue
		}
		visited[id] = true

		e := d.entries[id]

		if ok, err := d.checkLink(id, "left", &e.LeftSibling, visited); err != nil {
			return err
		} else if ok {
			d.checkOrder(e.LeftSibling, id)
			stack = append(stack, e.LeftSibling)
		}
		if ok, err := d.checkLink(id, "right", &e.RightSibling, visited); err != nil {
			return err
		} else if ok {
			d.checkOrder(id, e.RightSibling)
			stack = append(stack, e.RightSibling)
		}

		if e.Type == TypeStream && e.Child != NO_STREAM {
			if d.mode.IsStrict() {
				return fmt.Errorf("stream entry %d carries child %d: %w", id, e.Child, ErrCorruptDirectory)
			}
			d.log.Warn("dropping child link of stream entry", zap.Uint32("entry", id))
			e.Child = NO_STREAM
		}
		if ok, err := d.checkLink(id, "child", &e.Child, visited); err != nil {
			return err
		} else if ok {
			stack = append(stack, e.Child)
		}
	}

	// Name-order violations in reachable sibling trees were reported by
	// checkOrder above; strict failures happen there.
	return d.orderErr
}

// checkLink verifies one sibling/child index. A bad link is fatal in
// strict mode; in lenient mode it is severed so the subtree reads as
// empty and enumeration continues.
func (d *directory) checkLink(from uint32, field string, idx *uint32, visited map[uint32]bool) (bool, error) {
	id := *idx
	if id == NO_STREAM {
		return false, nil
	}

	reason := ""
	switch {
	case id >= uint32(len(d.entries)):
		reason = "out of range"
	case visited[id]:
		reason = "creates a cycle"
	case d.entries[id].Type == TypeUnallocated:
		reason = "targets an unallocated entry"
	}
	if reason == "" {
		return true, nil
	}

	if d.mode.IsStrict() {
		return false, fmt.Errorf("entry %d %s link %d %s: %w", from, field, id, reason, ErrCorruptDirectory)
	}
	d.log.Warn("dropping directory link",
		zap.Uint32("entry", from),
		zap.String("field", field),
		zap.Uint32("target", id),
		zap.String("reason", reason))
	*idx = NO_STREAM
	return false, nil
}

// checkOrder records a name-order violation between a left and right
// neighbor. Misordered trees are fatal in strict mode; lenient lookups
// fall back to a scan, so there they only get logged.
func (d *directory) checkOrder(left, right uint32) {
	if compareNames(d.entries[left].Name, d.entries[right].Name) != orderLess {
		if d.mode.IsStrict() && d.orderErr == nil {
			d.orderErr = fmt.Errorf("entries %d and %d out of name order: %w", left, right, ErrCorruptDirectory)
		}
		if !d.mode.IsStrict() {
			d.log.Warn("sibling tree out of name order",
				zap.String("left", d.entries[left].Name),
				zap.String("right", d.entries[right].Name))
		}
	}
}

// children returns the immediate children of entry id in name order,
// the in-order walk of its sibling tree. Links were validated or
// severed at construction; the seen set is a final guard so even a
// pathological tree terminates.
func (d *directory) children(id uint32) []uint32 {
	var out []uint32
	var stack []uint32
	seen := make(map[uint32]bool)

	cur := d.entries[id].Child
	for {
		for cur != NO_STREAM {
			if seen[cur] {
				cur = NO_STREAM
				break
			}
			seen[cur] = true
			stack = append(stack, cur)
			cur = d.entries[cur].LeftSibling
		}
		if len(stack) == 0 {
			break
		}
		cur = stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, cur)
		cur = d.entries[cur].RightSibling
	}
	return out
}

// lookup descends the storage hierarchy one name at a time and returns
// the arena index of the addressed entry.
func (d *directory) lookup(names []string) (uint32, error) {
	id := ROOT_STREAM_ID
	for _, name := range names {
		if utf16Len(name) > MAX_NAME_LEN {
			return 0, fmt.Errorf("%q: %w", name, ErrNameTooLong)
		}
		var err error
		id, err = d.childByName(id, name)
		if err != nil {
			return 0, err
		}
	}
	return id, nil
}

func (d *directory) childByName(parent uint32, name string) (uint32, error) {
	id := d.entries[parent].Child
	for steps := 0; id != NO_STREAM && steps <= len(d.entries); steps++ {
		e := d.entries[id]
		switch compareNames(name, e.Name) {
		case orderEqual:
			return id, nil
		case orderLess:
			id = e.LeftSibling
		default:
			id = e.RightSibling
		}
	}

	if !d.mode.IsStrict() {
		// A misordered sibling tree defeats the BST descent but still
		// enumerates; scan it before giving up.
		for _, cid := range d.children(parent) {
			if compareNames(name, d.entries[cid].Name) == orderEqual {
				return cid, nil
			}
		}
	}
	return 0, fmt.Errorf("%q: %w", name, ErrStreamNotFound)
}
