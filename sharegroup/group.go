// Package sharegroup tracks the lifetime of graphics objects that are visible
// to more than one context.
//
// Contexts that share an object namespace join the same Group. Every tracked
// object has a reference count; when the last reference goes away the object
// is moved to a pending-delete queue, and whichever thread next holds a
// current context for the group pops it and performs the native delete.
// Deciding to delete and executing the delete are deliberately separate:
// contexts close in any order, on any thread, and only a thread with a live
// context may call into the graphics API.
package sharegroup

import (
	"log"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/emirpasic/gods/queues/linkedlistqueue"
	"github.com/olekukonko/tablewriter"
)

var (
	debug   atomic.Bool
	groupID atomic.Uint64
)

// SetDebug enables verbose logging of suspicious but tolerated calls.
func SetDebug(on bool) {
	debug.Store(on)
}

func debugf(format string, args ...any) {
	if debug.Load() {
		log.Printf("sharegroup: "+format, args...)
	}
}

// Deleter performs the native delete of one object. It is only ever called
// on a thread whose current context belongs to the group being flushed.
type Deleter interface {
	DeleteObject(kind Kind, id uint32)
}

// Pending is one popped delete record.
type Pending struct {
	Key
	Payload any
}

// Group is the bookkeeping shared by every context in one namespace.
type Group struct {
	id uint64

	mu          sync.Mutex
	refs        map[Key]int
	pending     *linkedlistqueue.Queue
	queued      mapset.Set[Key]
	payload     map[Key]any
	attachments map[uint32]Attachment
	members     int
	destroyed   bool
}

func newGroup() *Group {
	return &Group{
		id:          groupID.Add(1),
		refs:        make(map[Key]int),
		pending:     linkedlistqueue.New(),
		queued:      mapset.NewThreadUnsafeSet[Key](),
		payload:     make(map[Key]any),
		attachments: make(map[uint32]Attachment),
	}
}

// ID is a process-unique number for log output.
func (g *Group) ID() uint64 {
	return g.id
}

func (g *Group) join() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.destroyed {
		return false
	}
	g.members++
	return true
}

// leave drops one membership and destroys the group when it was the last.
func (g *Group) leave() bool {
	g.mu.Lock()
	g.members--
	if g.members > 0 {
		g.mu.Unlock()
		return false
	}
	g.destroyed = true
	live, pending := len(g.refs), g.queued.Cardinality()
	var dump string
	if live > 0 || pending > 0 {
		dump = g.dumpLocked()
	}
	g.mu.Unlock()

	switch {
	case live > 0:
		log.Printf("sharegroup: group %d destroyed with %d live objects and %d undelivered deletes\n%s", g.id, live, pending, dump)
	case pending > 0:
		debugf("group %d destroyed with %d undelivered deletes\n%s", g.id, pending, dump)
	}
	return true
}

// Destroyed reports whether the last member has left.
func (g *Group) Destroyed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.destroyed
}

// Members returns the number of contexts bound to the group.
func (g *Group) Members() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.members
}

// revive takes k back out of the pending queue. The FIFO entry is left in
// place and skipped when popped.
func (g *Group) reviveLocked(k Key) bool {
	if !g.queued.Contains(k) {
		return false
	}
	g.queued.Remove(k)
	log.Printf("sharegroup: group %d: %v referenced again while pending delete", g.id, k)
	return true
}

func (g *Group) enqueueLocked(k Key) {
	if !g.queued.Add(k) {
		return
	}
	g.pending.Enqueue(k)
	if k.Kind == Framebuffer {
		delete(g.attachments, k.ID)
	}
}

func (g *Group) registerLocked(k Key) {
	g.reviveLocked(k)
	if n, ok := g.refs[k]; ok {
		debugf("group %d: %v registered again with %d refs", g.id, k, n)
	}
	g.refs[k] = 1
}

func (g *Group) retainLocked(k Key) {
	if n, ok := g.refs[k]; ok {
		g.refs[k] = n + 1
		return
	}
	if !g.reviveLocked(k) {
		// Objects created outside Register have an implicit first owner.
		debugf("group %d: retain of untracked %v, assuming an implicit owner", g.id, k)
	}
	g.refs[k] = 2
}

func (g *Group) releaseLocked(k Key) {
	n, ok := g.refs[k]
	if ok && n > 1 {
		g.refs[k] = n - 1
		return
	}
	if ok {
		delete(g.refs, k)
	} else if !g.queued.Contains(k) {
		debugf("group %d: release of untracked %v, deleting", g.id, k)
	}
	g.enqueueLocked(k)
}

// Register starts tracking a freshly created object with one reference.
func (g *Group) Register(kind Kind, id uint32) {
	g.mu.Lock()
	g.registerLocked(Key{kind, id})
	g.mu.Unlock()
}

// Retain adds a reference. An object that was never registered is assumed to
// have an implicit owner and starts at two.
func (g *Group) Retain(kind Kind, id uint32) {
	g.mu.Lock()
	g.retainLocked(Key{kind, id})
	g.mu.Unlock()
}

// Release drops a reference. Dropping the last one removes the object and
// queues exactly one delete for it. Releasing an object that is not tracked
// queues its delete straight away.
func (g *Group) Release(kind Kind, id uint32) {
	g.mu.Lock()
	g.releaseLocked(Key{kind, id})
	g.mu.Unlock()
}

// RegisterFramebufferDepth records the depth/stencil attachment of fbo so
// that tree retains and releases cascade to it.
func (g *Group) RegisterFramebufferDepth(fbo uint32, kind Kind, id uint32) {
	g.mu.Lock()
	g.attachments[fbo] = Attachment{Kind: kind, ID: id}
	g.mu.Unlock()
}

// RetainFramebufferTree retains fbo and its recorded attachment.
func (g *Group) RetainFramebufferTree(fbo uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.retainLocked(Key{Framebuffer, fbo})
	if a, ok := g.attachments[fbo]; ok {
		g.retainLocked(Key{a.Kind, a.ID})
	}
}

// ReleaseFramebufferTree releases fbo and its recorded attachment.
func (g *Group) ReleaseFramebufferTree(fbo uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	a, ok := g.attachments[fbo]
	g.releaseLocked(Key{Framebuffer, fbo})
	if ok {
		g.releaseLocked(Key{a.Kind, a.ID})
	}
}

// Attachment returns the recorded depth/stencil attachment of fbo.
func (g *Group) Attachment(fbo uint32) (Attachment, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	a, ok := g.attachments[fbo]
	return a, ok
}

// SetPayload stores auxiliary data for an object, such as a program's
// uniform locations. It is handed back when the object's delete is popped.
func (g *Group) SetPayload(kind Kind, id uint32, v any) {
	g.mu.Lock()
	g.payload[Key{kind, id}] = v
	g.mu.Unlock()
}

// Payload returns the auxiliary data stored for an object.
func (g *Group) Payload(kind Kind, id uint32) (any, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	v, ok := g.payload[Key{kind, id}]
	return v, ok
}

// Refs returns the live reference count of an object, zero if untracked.
func (g *Group) Refs(kind Kind, id uint32) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.refs[Key{kind, id}]
}

// IsPendingDelete reports whether an object is queued for deletion.
func (g *Group) IsPendingDelete(kind Kind, id uint32) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.queued.Contains(Key{kind, id})
}

// PopPendingDelete removes the oldest queued delete. The caller must hold a
// current context of this group and performs the native delete itself.
func (g *Group) PopPendingDelete() (Pending, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for {
		v, ok := g.pending.Dequeue()
		if !ok {
			return Pending{}, false
		}
		k := v.(Key)
		if !g.queued.Contains(k) {
			continue
		}
		g.queued.Remove(k)
		p := Pending{Key: k}
		if pl, ok := g.payload[k]; ok {
			p.Payload = pl
			delete(g.payload, k)
		}
		return p, true
	}
}

// Flush pops every queued delete and hands it to d. It returns the number
// of objects deleted.
func (g *Group) Flush(d Deleter) int {
	n := 0
	for {
		p, ok := g.PopPendingDelete()
		if !ok {
			return n
		}
		d.DeleteObject(p.Kind, p.ID)
		n++
	}
}

// Counts are the per-kind numbers reported by Stats.
type Counts struct {
	Live    int // tracked objects
	Refs    int // sum of their reference counts
	Pending int // queued deletes
}

// Stats is a point-in-time summary of a group.
type Stats struct {
	Members   int
	Destroyed bool
	Kinds     map[Kind]Counts
	Live      int
	Pending   int
}

func (g *Group) statsLocked() Stats {
	s := Stats{
		Members:   g.members,
		Destroyed: g.destroyed,
		Kinds:     make(map[Kind]Counts, numKinds),
	}
	for k, n := range g.refs {
		c := s.Kinds[k.Kind]
		c.Live++
		c.Refs += n
		s.Kinds[k.Kind] = c
	}
	g.queued.Each(func(k Key) bool {
		c := s.Kinds[k.Kind]
		c.Pending++
		s.Kinds[k.Kind] = c
		return false
	})
	s.Live = len(g.refs)
	s.Pending = g.queued.Cardinality()
	return s
}

// Stats returns live and pending counts by kind. It does not mutate the
// group.
func (g *Group) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.statsLocked()
}

// Dump renders Stats as a text table for logs.
func (g *Group) Dump() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.dumpLocked()
}

func (g *Group) dumpLocked() string {
	s := g.statsLocked()

	var b strings.Builder
	b.WriteString("share group " + strconv.FormatUint(g.id, 10) +
		": members=" + strconv.Itoa(s.Members))
	if s.Destroyed {
		b.WriteString(" (destroyed)")
	}
	b.WriteByte('\n')

	table := tablewriter.NewWriter(&b)
	table.SetHeader([]string{"Kind", "Live", "Refs", "Pending"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	refs := 0
	for _, k := range Kinds {
		c := s.Kinds[k]
		refs += c.Refs
		table.Append([]string{k.String(), strconv.Itoa(c.Live), strconv.Itoa(c.Refs), strconv.Itoa(c.Pending)})
	}
	table.SetFooter([]string{"total", strconv.Itoa(s.Live), strconv.Itoa(refs), strconv.Itoa(s.Pending)})
	table.Render()
	return b.String()
}
