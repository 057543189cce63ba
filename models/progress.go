// models/progress.go
package models

import (
	"time"

	"gorm.io/datatypes"
)

// ProgressSchemaVersion is stamped on every record so future migrations can
// tell document generations apart.
const ProgressSchemaVersion = 1

// Progress is the per-user achievement document. It is replaced wholesale on
// every save rather than field-patched, so the JSON columns below are the
// unit of persistence. Records are created on first login and never deleted.
type Progress struct {
	ID       uint   `gorm:"primaryKey" json:"-"`
	Username string `gorm:"uniqueIndex;not null" json:"username"`

	// UnlockedIDs keeps insertion order for the recent-activity display.
	UnlockedIDs       datatypes.JSONSlice[string] `json:"unlocked_ids"`
	UnlockedTrophyIDs datatypes.JSONSlice[string] `json:"unlocked_trophy_ids"`
	TotalXP           int                         `gorm:"default:0" json:"total_xp"`

	Proofs       datatypes.JSONType[map[string]Proof]    `json:"proofs"`
	CoopPartners datatypes.JSONType[map[string]string]   `json:"coop_partners"`
	ScannedCodes datatypes.JSONType[map[string][]string] `json:"scanned_codes"`

	SchemaVersion int `gorm:"default:1" json:"schema_version"`

	// Unsaved marks a record whose last gateway write failed. The in-memory
	// mutation stays applied; the flag tells the client to retry.
	Unsaved bool `gorm:"-" json:"unsaved,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Progress) TableName() string {
	return "progress_records"
}

// NewProgress returns the default document for a fresh user: the catalog
// root pre-unlocked, everything else empty.
func NewProgress(username, rootID string) *Progress {
	return &Progress{
		Username:      username,
		UnlockedIDs:   datatypes.JSONSlice[string]{rootID},
		SchemaVersion: ProgressSchemaVersion,
	}
}

func (p *Progress) HasUnlocked(achievementID string) bool {
	for _, id := range p.UnlockedIDs {
		if id == achievementID {
			return true
		}
	}
	return false
}

func (p *Progress) HasTrophy(trophyID string) bool {
	for _, id := range p.UnlockedTrophyIDs {
		if id == trophyID {
			return true
		}
	}
	return false
}

// AppendUnlock records a new unlock and its xp reward. Callers must check
// HasUnlocked first; xp is maintained incrementally, never recomputed.
func (p *Progress) AppendUnlock(achievementID string, xp int) {
	p.UnlockedIDs = append(p.UnlockedIDs, achievementID)
	p.TotalXP += xp
}

// AddTrophies merges newly earned trophy ids. Membership only ever grows.
func (p *Progress) AddTrophies(ids []string) {
	for _, id := range ids {
		if !p.HasTrophy(id) {
			p.UnlockedTrophyIDs = append(p.UnlockedTrophyIDs, id)
		}
	}
}

// Recent returns up to n most recently unlocked achievement ids, newest first.
func (p *Progress) Recent(n int) []string {
	if n > len(p.UnlockedIDs) {
		n = len(p.UnlockedIDs)
	}
	out := make([]string, 0, n)
	for i := len(p.UnlockedIDs) - 1; i >= len(p.UnlockedIDs)-n; i-- {
		out = append(out, p.UnlockedIDs[i])
	}
	return out
}

func (p *Progress) ProofFor(achievementID string) (Proof, bool) {
	proof, ok := p.Proofs.Data()[achievementID]
	return proof, ok
}

func (p *Progress) SetProof(achievementID string, proof Proof) {
	m := p.Proofs.Data()
	if m == nil {
		m = make(map[string]Proof)
	}
	m[achievementID] = proof
	p.Proofs = datatypes.NewJSONType(m)
}

func (p *Progress) PartnerFor(achievementID string) (string, bool) {
	partner, ok := p.CoopPartners.Data()[achievementID]
	return partner, ok
}

func (p *Progress) SetPartner(achievementID, partner string) {
	m := p.CoopPartners.Data()
	if m == nil {
		m = make(map[string]string)
	}
	m[achievementID] = partner
	p.CoopPartners = datatypes.NewJSONType(m)
}

// AddScan records a collected code, ignoring duplicates. Reports whether the
// set changed.
func (p *Progress) AddScan(achievementID, codeID string) bool {
	m := p.ScannedCodes.Data()
	if m == nil {
		m = make(map[string][]string)
	}
	for _, existing := range m[achievementID] {
		if existing == codeID {
			return false
		}
	}
	m[achievementID] = append(m[achievementID], codeID)
	p.ScannedCodes = datatypes.NewJSONType(m)
	return true
}

func (p *Progress) ScanCount(achievementID string) int {
	return len(p.ScannedCodes.Data()[achievementID])
}

// Clone deep-copies the document so cached records are never shared between
// request goroutines.
func (p *Progress) Clone() *Progress {
	cp := *p

	cp.UnlockedIDs = append(datatypes.JSONSlice[string]{}, p.UnlockedIDs...)
	cp.UnlockedTrophyIDs = append(datatypes.JSONSlice[string]{}, p.UnlockedTrophyIDs...)

	if src := p.Proofs.Data(); src != nil {
		proofs := make(map[string]Proof, len(src))
		for k, v := range src {
			proofs[k] = v
		}
		cp.Proofs = datatypes.NewJSONType(proofs)
	}
	if src := p.CoopPartners.Data(); src != nil {
		partners := make(map[string]string, len(src))
		for k, v := range src {
			partners[k] = v
		}
		cp.CoopPartners = datatypes.NewJSONType(partners)
	}
	if src := p.ScannedCodes.Data(); src != nil {
		codes := make(map[string][]string, len(src))
		for k, v := range src {
			codes[k] = append([]string{}, v...)
		}
		cp.ScannedCodes = datatypes.NewJSONType(codes)
	}
	return &cp
}
