package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
)

// Snapshot is the room state handed to a participant when it joins.
type Snapshot struct {
	File Artifact `json:"file"`
	Wait []string `json:"wait"`
}

// Summary is the read-only view used by the admin API and the Redis mirror.
type Summary struct {
	ID             string    `json:"id"`
	Members        int       `json:"members"`
	Waiting        []string  `json:"waiting"`
	ArtifactLength int64     `json:"artifact_length"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type room struct {
	mu          sync.Mutex
	id          string
	artifact    Artifact
	artifactSet bool
	members     map[string]struct{}
	waiting     []string // insertion order, no duplicates
	updatedAt   time.Time
	dead        bool // set by Sweep once the room left the map
}

func newRoom(id string) *room {
	return &room{
		id:        id,
		artifact:  EmptyArtifact(),
		members:   make(map[string]struct{}),
		waiting:   []string{},
		updatedAt: time.Now().UTC(),
	}
}

func (r *room) waitSnapshot() []string {
	return append(make([]string, 0, len(r.waiting)), r.waiting...)
}

func (r *room) touch() { r.updatedAt = time.Now().UTC() }

func (r *room) summary() Summary {
	return Summary{
		ID:             r.id,
		Members:        len(r.members),
		Waiting:        r.waitSnapshot(),
		ArtifactLength: r.artifact.Length(),
		UpdatedAt:      r.updatedAt,
	}
}

// Registry maps room ids to rooms. Every mutation of a room happens under
// that room's lock, so readers never see a waiting set torn between two
// writers and a participant never stays in a waiting set after leaving.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*room
}

func New() *Registry {
	return &Registry{rooms: make(map[string]*room)}
}

// acquire returns the room locked, or nil when it does not exist and
// create is false. The caller must unlock it.
func (reg *Registry) acquire(id string, create bool) *room {
	for {
		reg.mu.Lock()
		r, ok := reg.rooms[id]
		if !ok {
			if !create {
				reg.mu.Unlock()
				return nil
			}
			r = newRoom(id)
			reg.rooms[id] = r
		}
		reg.mu.Unlock()

		r.mu.Lock()
		if !r.dead {
			return r
		}
		// Swept between lookup and lock; look it up again.
		r.mu.Unlock()
	}
}

// EnsureRoom returns the state of the room, creating it when unseen.
func (reg *Registry) EnsureRoom(id string) Snapshot {
	r := reg.acquire(id, true)
	defer r.mu.Unlock()
	return Snapshot{File: r.artifact, Wait: r.waitSnapshot()}
}

// Join records pid as a member and returns the post-join room state.
func (reg *Registry) Join(id, pid string) Snapshot {
	r := reg.acquire(id, true)
	defer r.mu.Unlock()

	r.members[pid] = struct{}{}
	r.touch()
	return Snapshot{File: r.artifact, Wait: r.waitSnapshot()}
}

// Leave drops pid from the waiting set and the member set in one step.
// changed reports whether the waiting set was altered; waiting is the
// post-mutation waiting set.
func (reg *Registry) Leave(id, pid string) (changed bool, waiting []string) {
	r := reg.acquire(id, false)
	if r == nil {
		return false, []string{}
	}
	defer r.mu.Unlock()

	changed = r.clearNotReady(pid)
	delete(r.members, pid)
	r.touch()
	return changed, r.waitSnapshot()
}

// SetArtifact replaces the artifact unconditionally; the last write wins.
func (reg *Registry) SetArtifact(id string, a Artifact) {
	r := reg.acquire(id, true)
	defer r.mu.Unlock()

	r.artifact = a
	r.artifactSet = true
	r.touch()
}

// ArtifactMatches is false for unknown rooms and for rooms whose artifact
// was never set.
func (reg *Registry) ArtifactMatches(id string, candidate Artifact) bool {
	r := reg.acquire(id, false)
	if r == nil {
		return false
	}
	defer r.mu.Unlock()
	return r.artifactSet && r.artifact.Equal(candidate)
}

// MarkNotReady adds pid to the waiting set. It is a no-op when pid is
// already waiting or is not a member of the room.
func (reg *Registry) MarkNotReady(id, pid string) (changed bool, waiting []string) {
	r := reg.acquire(id, false)
	if r == nil {
		return false, []string{}
	}
	defer r.mu.Unlock()

	if _, member := r.members[pid]; member && !lo.Contains(r.waiting, pid) {
		r.waiting = append(r.waiting, pid)
		r.touch()
		changed = true
	}
	return changed, r.waitSnapshot()
}

// ClearNotReady removes pid from the waiting set if present.
func (reg *Registry) ClearNotReady(id, pid string) (changed bool, waiting []string) {
	r := reg.acquire(id, false)
	if r == nil {
		return false, []string{}
	}
	defer r.mu.Unlock()

	if changed = r.clearNotReady(pid); changed {
		r.touch()
	}
	return changed, r.waitSnapshot()
}

func (r *room) clearNotReady(pid string) bool {
	if !lo.Contains(r.waiting, pid) {
		return false
	}
	r.waiting = lo.Without(r.waiting, pid)
	return true
}

func (reg *Registry) Summary(id string) (Summary, bool) {
	r := reg.acquire(id, false)
	if r == nil {
		return Summary{}, false
	}
	defer r.mu.Unlock()
	return r.summary(), true
}

// Summaries returns every room ordered by id.
func (reg *Registry) Summaries() []Summary {
	reg.mu.Lock()
	rooms := make([]*room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		rooms = append(rooms, r)
	}
	reg.mu.Unlock()

	out := make([]Summary, 0, len(rooms))
	for _, r := range rooms {
		r.mu.Lock()
		if !r.dead {
			out = append(out, r.summary())
		}
		r.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Sweep removes rooms that have neither members nor waiting entries and
// returns how many were collected.
func (reg *Registry) Sweep() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	n := 0
	for id, r := range reg.rooms {
		r.mu.Lock()
		if len(r.members) == 0 && len(r.waiting) == 0 {
			r.dead = true
			delete(reg.rooms, id)
			n++
		}
		r.mu.Unlock()
	}
	return n
}

func (reg *Registry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.rooms)
}
