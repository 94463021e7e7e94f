// Package redis_keys names every Redis key and channel one server instance
// touches. All of them live under "roomsync:<instance>:" so that processes
// with different instance ids never read or delete each other's data.
package redis_keys

type Namespace string

func New(instanceID string) Namespace { return Namespace("roomsync:" + instanceID) }

// Owner holds the lease of the process currently serving the namespace.
func (ns Namespace) Owner() string { return string(ns) + ":owner" }

// ActiveRooms is the set of room hash keys written by the mirror.
func (ns Namespace) ActiveRooms() string { return string(ns) + ":rooms:active" }

func (ns Namespace) Room(roomID string) string { return string(ns) + ":room:" + roomID }

// RoomEvents is the pub/sub channel carrying one room's broadcasts.
func (ns Namespace) RoomEvents(roomID string) string { return ns.Room(roomID) + ":events" }
