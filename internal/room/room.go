// Package room is the room manager: the single process-wide, mutex-guarded
// registry of room_code -> peers. It is the only piece of state in the
// rendezvous service touched by more than one connection, so every
// invariant in SPEC_FULL.md §3 is enforced here and nowhere else.
//
// A room is created lazily on first peer entry and deleted in the same
// critical section that removes its last peer — there is never an empty
// room sitting in the registry. Peers hold only their room_code and
// peer_code; nothing here hands back a pointer a peer could use to mutate
// another peer's state directly (see SPEC_FULL.md §9, "rooms without a
// cyclic graph").
package room

import (
	"sync"

	"github.com/fennwright/rtc-rendezvous/internal/hub"
	"github.com/fennwright/rtc-rendezvous/internal/protocol"
)

// Metadata is a peer's opaque, client-supplied identity.
type Metadata struct {
	PeerCode   string
	DeviceName string
	DeviceType string
}

func (m Metadata) toPeerInfo() protocol.PeerInfo {
	return protocol.PeerInfo{PeerCode: m.PeerCode, DeviceName: m.DeviceName, DeviceType: m.DeviceType}
}

type peer struct {
	meta Metadata
	out  *hub.Queue
}

type roomEntry struct {
	peers map[string]*peer
}

// Manager is the process-wide room registry. The zero value is not usable;
// construct with New.
type Manager struct {
	mu    sync.RWMutex
	rooms map[string]*roomEntry

	// onChange, if set, is called with the current room/peer totals after
	// every mutating operation, outside the lock. Metrics wiring hangs off
	// this instead of the room package importing internal/metrics directly.
	onChange func(rooms, peers int)
}

// New returns an empty Manager.
func New() *Manager {
	return &Manager{rooms: make(map[string]*roomEntry)}
}

// OnChange registers a callback invoked after every add/remove with the
// current total room and peer counts. Replaces any previously set callback.
func (m *Manager) OnChange(fn func(rooms, peers int)) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// AddResult is the outcome of AddPeer.
type AddResult struct {
	// Inserted is false only when Err is ErrDuplicatePeer.
	Inserted bool
	// ExistingPeers is the snapshot of peers already present at the moment
	// of insertion — the room as the new peer should see it.
	ExistingPeers []protocol.PeerInfo
	Err           error
}

// ErrDuplicatePeer is returned by AddPeer when peerCode already exists in
// roomCode.
var ErrDuplicatePeer = dupErr{}

type dupErr struct{}

func (dupErr) Error() string { return "room: duplicate peer_code in room" }

// AddPeer inserts peerCode into roomCode, creating the room if it does not
// yet exist. On success it enqueues a peer_joined frame to every peer
// already present, in the same critical section as the insert — so a peer
// either sees the joiner in its own snapshot or gets a subsequent
// peer_joined for it, never both, never neither (spec §4.D ordering rule).
func (m *Manager) AddPeer(roomCode, peerCode string, meta Metadata, out *hub.Queue) AddResult {
	m.mu.Lock()

	r := m.rooms[roomCode]
	if r == nil {
		r = &roomEntry{peers: make(map[string]*peer)}
		m.rooms[roomCode] = r
	}
	if _, exists := r.peers[peerCode]; exists {
		m.mu.Unlock()
		return AddResult{Err: ErrDuplicatePeer}
	}

	existing := make([]protocol.PeerInfo, 0, len(r.peers))
	for _, p := range r.peers {
		existing = append(existing, p.meta.toPeerInfo())
	}

	r.peers[peerCode] = &peer{meta: meta, out: out}

	// The new peer's own snapshot is pushed to its queue here, in the same
	// critical section as every peer_joined fan-out below, so its snapshot
	// is always enqueued before any peer_joined that a later AddPeer in the
	// same room sends to it.
	out.Push(protocol.NewPeersSnapshot(existing))

	joined := protocol.NewPeerJoined(meta.toPeerInfo())
	for code, p := range r.peers {
		if code == peerCode {
			continue
		}
		p.out.Push(joined)
	}

	rooms, peers := m.countsLocked()
	m.mu.Unlock()
	m.notify(rooms, peers)

	return AddResult{Inserted: true, ExistingPeers: existing}
}

// RemoveResult is the outcome of RemovePeer.
type RemoveResult struct {
	// Removed is false when the room or peer was already absent (a no-op).
	Removed bool
}

// RemovePeer removes peerCode from roomCode. If the peer was present, it
// enqueues a peer_left to everyone who remains, and deletes the room entry
// in the same critical section if that leaves the room empty. Removing an
// absent peer, or a peer from an absent room, is a no-op — never an error.
func (m *Manager) RemovePeer(roomCode, peerCode string) RemoveResult {
	m.mu.Lock()

	r := m.rooms[roomCode]
	if r == nil {
		m.mu.Unlock()
		return RemoveResult{}
	}
	if _, exists := r.peers[peerCode]; !exists {
		m.mu.Unlock()
		return RemoveResult{}
	}

	delete(r.peers, peerCode)

	left := protocol.NewPeerLeft(peerCode)
	for _, p := range r.peers {
		p.out.Push(left)
	}

	if len(r.peers) == 0 {
		delete(m.rooms, roomCode)
	}

	rooms, peers := m.countsLocked()
	m.mu.Unlock()
	m.notify(rooms, peers)

	return RemoveResult{Removed: true}
}

// FindPeer returns the outbound queue for peerCode in roomCode, for routing
// a signal. ok is false if the room or peer is absent — the caller silently
// drops the signal; the rendezvous gives no delivery guarantees.
func (m *Manager) FindPeer(roomCode, peerCode string) (out *hub.Queue, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r := m.rooms[roomCode]
	if r == nil {
		return nil, false
	}
	p, exists := r.peers[peerCode]
	if !exists {
		return nil, false
	}
	return p.out, true
}

// GetRoomPeers returns a snapshot of roomCode's peers. A non-existent room
// returns an empty (non-nil) slice.
func (m *Manager) GetRoomPeers(roomCode string) []protocol.PeerInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r := m.rooms[roomCode]
	if r == nil {
		return []protocol.PeerInfo{}
	}
	out := make([]protocol.PeerInfo, 0, len(r.peers))
	for _, p := range r.peers {
		out = append(out, p.meta.toPeerInfo())
	}
	return out
}

// RoomCount returns the number of non-empty rooms currently tracked.
func (m *Manager) RoomCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

// PeerCount returns the total number of peers across all rooms.
func (m *Manager) PeerCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, peers := m.countsLocked()
	return peers
}

func (m *Manager) countsLocked() (rooms, peers int) {
	rooms = len(m.rooms)
	for _, r := range m.rooms {
		peers += len(r.peers)
	}
	return rooms, peers
}

func (m *Manager) notify(rooms, peers int) {
	m.mu.RLock()
	fn := m.onChange
	m.mu.RUnlock()
	if fn != nil {
		fn(rooms, peers)
	}
}
