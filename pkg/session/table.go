package session

import (
	"strings"

	"github.com/bradfitz/slice"
	"github.com/pkg/errors"
)

// ErrSessionExists is returned when creating a second session for a live address
var ErrSessionExists = errors.New("session already exists for address")

// Table indexes sessions by peripheral address; at most one session per address
type Table struct {
	sessions map[string]*PeripheralSession
}

func NewTable() *Table {
	return &Table{sessions: map[string]*PeripheralSession{}}
}

func key(address string) string { return strings.ToUpper(address) }

// Create registers s, refusing a second session for the same address
func (t *Table) Create(s *PeripheralSession) error {
	if _, ok := t.sessions[key(s.Address)]; ok {
		return errors.Wrap(ErrSessionExists, s.Address)
	}
	t.sessions[key(s.Address)] = s
	return nil
}

func (t *Table) Get(address string) (*PeripheralSession, bool) {
	s, ok := t.sessions[key(address)]
	return s, ok
}

// Destroy removes the session of address; false if there was none
func (t *Table) Destroy(address string) bool {
	if _, ok := t.sessions[key(address)]; !ok {
		return false
	}
	delete(t.sessions, key(address))
	return true
}

func (t *Table) Len() int { return len(t.sessions) }

// Addresses lists the addresses of all live sessions, oldest session first
func (t *Table) Addresses() []string {
	sessions := make([]*PeripheralSession, 0, len(t.sessions))
	for _, s := range t.sessions {
		sessions = append(sessions, s)
	}
	slice.Sort(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
	ret := make([]string, 0, len(sessions))
	for _, s := range sessions {
		ret = append(ret, s.Address)
	}
	return ret
}
