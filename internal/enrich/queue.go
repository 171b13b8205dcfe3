package enrich

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/sst/chatbody/internal/body"
)

type jobKey struct {
	tree string
	node body.NodeID
}

type job struct {
	key jobKey
	fn  func()
}

// WorkQueue holds deferred jobs keyed by tree and node. Jobs run only when
// the host calls Drain, after the synchronous pass that queued them.
type WorkQueue struct {
	mu   sync.Mutex
	jobs []job
}

func NewWorkQueue() *WorkQueue {
	return &WorkQueue{}
}

// Submit queues fn for node in tree. It reports false when a job for the
// same node is already pending.
func (q *WorkQueue) Submit(treeID string, node body.NodeID, fn func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	key := jobKey{tree: treeID, node: node}
	if slices.ContainsFunc(q.jobs, func(j job) bool { return j.key == key }) {
		return false
	}
	q.jobs = append(q.jobs, job{key: key, fn: fn})
	return true
}

// CancelTree drops every pending job of treeID and returns how many were
// dropped.
func (q *WorkQueue) CancelTree(treeID string) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	before := len(q.jobs)
	q.jobs = slices.DeleteFunc(q.jobs, func(j job) bool { return j.key.tree == treeID })
	return before - len(q.jobs)
}

// Drain runs pending jobs in submission order, including jobs submitted
// while draining, and returns how many ran. A panicking job is logged and
// does not stop the others.
func (q *WorkQueue) Drain() int {
	ran := 0
	for {
		j, ok := q.pop()
		if !ok {
			return ran
		}
		q.run(j)
		ran++
	}
}

func (q *WorkQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

func (q *WorkQueue) pop() (job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		return job{}, false
	}
	j := q.jobs[0]
	q.jobs = q.jobs[1:]
	return j, true
}

func (q *WorkQueue) run(j job) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("deferred job panicked", "tree", j.key.tree, "node", j.key.node, "panic", r)
		}
	}()
	j.fn()
}
