// Package collective implements group messaging patterns (broadcast,
// scatter, gather, all-gather, all-to-all, fan-in, fan-out) on top of a set
// of unicast, message-oriented point-to-point connections.
//
// # Architecture
//
// The package assumes connection establishment, address resolution, and
// thread scheduling are handled by an external collaborator that exposes an
// ordered list of Handle values plus a team rank. collective never dials,
// listens, or frees a Handle; see the Handle doc comment for the exact
// contract it requires.
//
// Each pattern is implemented by its own strategy type (Broadcast, Scatter,
// Gather, AllGather, AllToAll, FanIn, FanOut), all satisfying the Collective
// interface. Operations not native to a pattern return ErrInvalidOperation;
// only SendRecv is valid for the data-parallel collectives, and only
// Probe/Send/Receive are valid for the two streaming collectives (FanIn,
// FanOut).
//
// # Concurrency
//
// A single Collective value is not safe for concurrent use from multiple
// goroutines; it is single-threaded per instance, matching the contract of
// the Handles it drives. Distinct Collective values with disjoint Handles
// may be used concurrently.
package collective
