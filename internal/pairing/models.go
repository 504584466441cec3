package pairing

import (
	"fmt"
	"strconv"
)

// PairedServer is one paired game server. Identity is the composite
// "<ip>:<port>" key; re-pairing the same key overwrites the whole record.
type PairedServer struct {
	Name        string `json:"name"`
	IP          string `json:"ip"`
	Port        int    `json:"port"`
	PlayerID    string `json:"playerId"`
	PlayerToken string `json:"playerToken"`
	PairedAt    int64  `json:"pairedAt"` // epoch milliseconds, stamped at capture
}

// Key returns the composite identity used in the store.
func (s *PairedServer) Key() string { return fmt.Sprintf("%s:%d", s.IP, s.Port) }

// PairedEntity is one paired smart device. ServerID is a weak back-reference
// to a PairedServer key, kept for display/grouping only; deleting a server
// does not cascade here.
type PairedEntity struct {
	EntityID   int64  `json:"entityId"`
	EntityType string `json:"entityType"`
	EntityName string `json:"entityName"`
	ServerID   string `json:"serverId"`
	ServerName string `json:"serverName"`
	PairedAt   int64  `json:"pairedAt"`
}

// Key returns the stringified entity id used in the store.
func (e *PairedEntity) Key() string { return strconv.FormatInt(e.EntityID, 10) }
