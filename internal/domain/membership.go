package domain

import (
	"encoding/json"
	"sort"
)

// MembershipSet is the set of unique member addresses for a circle.
// It always contains the admin and only ever grows; no removal event
// type exists on the read side. A fresh set replaces the old one on
// every fetch.
type MembershipSet struct {
	members map[string]struct{}
}

// NewMembershipSet creates a set seeded with the admin address.
func NewMembershipSet(admin string) *MembershipSet {
	s := &MembershipSet{members: make(map[string]struct{})}
	if admin != "" {
		s.members[admin] = struct{}{}
	}
	return s
}

// Add inserts an address. Duplicate inserts are no-ops, which makes
// aggregation idempotent against replayed join events.
func (s *MembershipSet) Add(address string) {
	if address == "" {
		return
	}
	s.members[address] = struct{}{}
}

// Contains reports whether address is a member.
func (s *MembershipSet) Contains(address string) bool {
	_, ok := s.members[address]
	return ok
}

// Len returns the number of unique members.
func (s *MembershipSet) Len() int {
	return len(s.members)
}

// Addresses returns all member addresses sorted ASC for deterministic output.
func (s *MembershipSet) Addresses() []string {
	out := make([]string, 0, len(s.members))
	for addr := range s.members {
		out = append(out, addr)
	}
	sort.Strings(out)
	return out
}

// MarshalJSON encodes the set as a sorted address array.
func (s *MembershipSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Addresses())
}

// UnmarshalJSON decodes an address array.
func (s *MembershipSet) UnmarshalJSON(data []byte) error {
	var addrs []string
	if err := json.Unmarshal(data, &addrs); err != nil {
		return err
	}
	s.members = make(map[string]struct{}, len(addrs))
	for _, a := range addrs {
		s.members[a] = struct{}{}
	}
	return nil
}
