// models/proof.go
package models

import (
	"time"

	"unimap/apperr"
)

const (
	MaxProofTextLen = 140
	MaxProofURILen  = 2048
)

type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// ProofMedia is a single attached media item with a declared kind. Payload
// is carried as a URI (data: or https:) so the record stays a plain document.
type ProofMedia struct {
	Kind MediaKind `json:"kind"`
	URI  string    `json:"uri"`
}

// Proof is optional evidence a user attaches to an unlocked achievement.
// At most one proof per achievement per user; overwritable.
type Proof struct {
	Text       string      `json:"text,omitempty"`
	Media      *ProofMedia `json:"media,omitempty"`
	CapturedAt time.Time   `json:"captured_at"`
}

// Validate checks the proof at construction time so read sites never have
// to re-check the variant shape.
func (p *Proof) Validate() error {
	if p == nil {
		return nil
	}
	if len(p.Text) > MaxProofTextLen {
		return apperr.Validation("proof text exceeds %d characters", MaxProofTextLen)
	}
	if p.Media != nil {
		if p.Media.Kind != MediaImage && p.Media.Kind != MediaVideo {
			return apperr.Validation("unknown proof media kind %q", p.Media.Kind)
		}
		if p.Media.URI == "" {
			return apperr.Validation("proof media is missing its payload")
		}
		if len(p.Media.URI) > MaxProofURILen {
			return apperr.Validation("proof media payload exceeds %d bytes", MaxProofURILen)
		}
	}
	if p.Text == "" && p.Media == nil {
		return apperr.Validation("proof must carry text or media")
	}
	if p.CapturedAt.IsZero() {
		p.CapturedAt = time.Now().UTC()
	}
	return nil
}
