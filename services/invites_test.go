package services

import (
	"strings"
	"testing"
	"time"

	"unimap/apperr"
	"unimap/models"
)

func TestSendInviteGuards(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice")
	env.createUser(t, "bob")

	tests := []struct {
		name          string
		from, to, ach string
		wantKind      apperr.Kind
	}{
		{"unknown achievement", "alice", "bob", "ghost", apperr.KindNotFound},
		{"not coop", "alice", "bob", "first_lecture", apperr.KindValidation},
		{"self invite", "alice", "alice", "study_buddy", apperr.KindValidation},
		{"unknown recipient", "alice", "charlie", "study_buddy", apperr.KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.coordinator.Send(tt.from, tt.to, tt.ach, nil)
			if apperr.KindOf(err) != tt.wantKind {
				t.Errorf("err = %v, want kind %v", err, tt.wantKind)
			}
		})
	}
}

func TestSendInviteSingleFlight(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice")
	env.createUser(t, "bob")
	env.createUser(t, "carol")

	invite, err := env.coordinator.Send("alice", "bob", "study_buddy", nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if invite.Status != models.InvitePending {
		t.Errorf("status = %s, want pending", invite.Status)
	}

	// A second simultaneous invite for the same achievement is blocked, even
	// to a different partner.
	if _, err := env.coordinator.Send("alice", "bob", "study_buddy", nil); apperr.KindOf(err) != apperr.KindInvalidState {
		t.Errorf("duplicate send err = %v, want invalid state", err)
	}
	if _, err := env.coordinator.Send("alice", "carol", "study_buddy", nil); apperr.KindOf(err) != apperr.KindInvalidState {
		t.Errorf("duplicate send to other partner err = %v, want invalid state", err)
	}

	// The duplicate-prevention query finds it.
	existing, err := env.coordinator.PendingFromSender("alice", "study_buddy")
	if err != nil {
		t.Fatal(err)
	}
	if existing == nil || existing.ID != invite.ID {
		t.Errorf("pending from sender = %+v, want invite %s", existing, invite.ID)
	}
}

func TestSendInviteRejectedWhenAlreadyUnlocked(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice")
	env.createUser(t, "bob")

	if _, err := env.engine.Unlock("alice", "study_buddy", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := env.coordinator.Send("alice", "bob", "study_buddy", nil); apperr.KindOf(err) != apperr.KindInvalidState {
		t.Errorf("err = %v, want invalid state", err)
	}
}

func TestAcceptCreditsBothParties(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice")
	env.createUser(t, "bob")

	proof := &models.Proof{Text: "library, level 4", CapturedAt: time.Now()}
	invite, err := env.coordinator.Send("alice", "bob", "study_buddy", proof)
	if err != nil {
		t.Fatal(err)
	}

	result, err := env.coordinator.Accept(invite.ID, "bob")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if result.Invite.Status != models.InviteAccepted {
		t.Errorf("status = %s, want accepted", result.Invite.Status)
	}
	if !result.AcceptorSaved || !result.SenderSaved {
		t.Errorf("saved flags = %v/%v, want true/true", result.AcceptorSaved, result.SenderSaved)
	}

	alice, err := env.store.Get("alice")
	if err != nil {
		t.Fatal(err)
	}
	bob, err := env.store.Get("bob")
	if err != nil {
		t.Fatal(err)
	}

	for _, p := range []*models.Progress{alice, bob} {
		if !p.HasUnlocked("study_buddy") {
			t.Errorf("%s did not unlock study_buddy", p.Username)
		}
		if p.TotalXP != 30 {
			t.Errorf("%s total xp = %d, want 30", p.Username, p.TotalXP)
		}
	}

	if partner, _ := alice.PartnerFor("study_buddy"); partner != "bob" {
		t.Errorf("alice partner = %q, want bob", partner)
	}
	if partner, _ := bob.PartnerFor("study_buddy"); partner != "alice" {
		t.Errorf("bob partner = %q, want alice", partner)
	}

	// The sender's proof travels to the accepting user.
	if stored, ok := bob.ProofFor("study_buddy"); !ok || stored.Text != "library, level 4" {
		t.Errorf("bob proof = %+v, ok=%v", stored, ok)
	}
}

func TestAcceptReportsPartialPersistenceFailure(t *testing.T) {
	tests := []struct {
		name     string
		failUser string // whose progress row refuses writes
		wantSide string // how the error must name the failed side
	}{
		{"sender save fails", "alice", "alice (sender) was not persisted"},
		{"acceptor save fails", "bob", "bob (acceptor) was not persisted"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.createUser(t, "alice")
			env.createUser(t, "bob")

			invite, err := env.coordinator.Send("alice", "bob", "study_buddy", nil)
			if err != nil {
				t.Fatal(err)
			}
			env.failSavesFor(t, tt.failUser)

			result, err := env.coordinator.Accept(invite.ID, "bob")
			if apperr.KindOf(err) != apperr.KindPersistence {
				t.Fatalf("err = %v, want persistence", err)
			}
			if !strings.Contains(err.Error(), tt.wantSide) {
				t.Errorf("error %q does not say %q", err, tt.wantSide)
			}
			if result == nil {
				t.Fatal("no result alongside the persistence error")
			}
			if result.Invite.Status != models.InviteAccepted {
				t.Errorf("invite status = %s, want accepted", result.Invite.Status)
			}

			wantAcceptorSaved := tt.failUser != "bob"
			wantSenderSaved := tt.failUser != "alice"
			if result.AcceptorSaved != wantAcceptorSaved || result.SenderSaved != wantSenderSaved {
				t.Errorf("saved flags = %v/%v, want %v/%v",
					result.AcceptorSaved, result.SenderSaved, wantAcceptorSaved, wantSenderSaved)
			}

			// The failed side keeps the unlock in memory, flagged unsaved,
			// while its stored row stays untouched.
			failed, err := env.store.Get(tt.failUser)
			if err != nil {
				t.Fatal(err)
			}
			if !failed.HasUnlocked("study_buddy") || !failed.Unsaved {
				t.Errorf("failed side state = unlocked %v, unsaved %v",
					failed.HasUnlocked("study_buddy"), failed.Unsaved)
			}
			var failedRow models.Progress
			if err := env.db.Where("username = ?", tt.failUser).First(&failedRow).Error; err != nil {
				t.Fatal(err)
			}
			if failedRow.HasUnlocked("study_buddy") {
				t.Error("failed side's row was written despite the failing backend")
			}

			// The other side was fully persisted.
			other := "alice"
			if tt.failUser == "alice" {
				other = "bob"
			}
			var otherRow models.Progress
			if err := env.db.Where("username = ?", other).First(&otherRow).Error; err != nil {
				t.Fatal(err)
			}
			if !otherRow.HasUnlocked("study_buddy") {
				t.Errorf("%s's row missing the unlock", other)
			}
		})
	}
}

func TestAcceptCreditsPartnerAfterSoloUnlock(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice")
	env.createUser(t, "bob")

	invite, err := env.coordinator.Send("alice", "bob", "study_buddy", nil)
	if err != nil {
		t.Fatal(err)
	}

	// Bob unlocks solo while the invite is still pending.
	if _, err := env.engine.Unlock("bob", "study_buddy", nil); err != nil {
		t.Fatal(err)
	}

	result, err := env.coordinator.Accept(invite.ID, "bob")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if !result.AcceptorSaved || !result.SenderSaved {
		t.Errorf("saved flags = %v/%v", result.AcceptorSaved, result.SenderSaved)
	}

	bob, err := env.store.Get("bob")
	if err != nil {
		t.Fatal(err)
	}
	// No double xp, but the partner annotation still lands.
	if bob.TotalXP != 30 {
		t.Errorf("bob xp = %d, want 30", bob.TotalXP)
	}
	if partner, _ := bob.PartnerFor("study_buddy"); partner != "alice" {
		t.Errorf("bob partner = %q, want alice", partner)
	}

	alice, err := env.store.Get("alice")
	if err != nil {
		t.Fatal(err)
	}
	if !alice.HasUnlocked("study_buddy") {
		t.Error("alice not unlocked")
	}
	if partner, _ := alice.PartnerFor("study_buddy"); partner != "bob" {
		t.Errorf("alice partner = %q, want bob", partner)
	}
}

func TestAcceptGuards(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice")
	env.createUser(t, "bob")

	invite, err := env.coordinator.Send("alice", "bob", "study_buddy", nil)
	if err != nil {
		t.Fatal(err)
	}

	// Only the invited user may accept; not the sender, not a third party.
	if _, err := env.coordinator.Accept(invite.ID, "alice"); apperr.KindOf(err) != apperr.KindPermission {
		t.Errorf("sender accept err = %v, want permission", err)
	}
	if _, err := env.coordinator.Accept(invite.ID, "mallory"); apperr.KindOf(err) != apperr.KindPermission {
		t.Errorf("third party accept err = %v, want permission", err)
	}
	if _, err := env.coordinator.Accept("no-such-id", "bob"); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("unknown invite err = %v, want not found", err)
	}

	if _, err := env.coordinator.Accept(invite.ID, "bob"); err != nil {
		t.Fatal(err)
	}

	// Terminal invites are immutable.
	if _, err := env.coordinator.Accept(invite.ID, "bob"); apperr.KindOf(err) != apperr.KindInvalidState {
		t.Errorf("double accept err = %v, want invalid state", err)
	}
	if _, err := env.coordinator.Reject(invite.ID, "bob"); apperr.KindOf(err) != apperr.KindInvalidState {
		t.Errorf("reject after accept err = %v, want invalid state", err)
	}
	if _, err := env.coordinator.Cancel(invite.ID, "alice"); apperr.KindOf(err) != apperr.KindInvalidState {
		t.Errorf("cancel after accept err = %v, want invalid state", err)
	}
}

func TestRejectLeavesBothLockedAndAllowsResend(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice")
	env.createUser(t, "bob")

	invite, err := env.coordinator.Send("alice", "bob", "study_buddy", nil)
	if err != nil {
		t.Fatal(err)
	}

	// Only the recipient may reject.
	if _, err := env.coordinator.Reject(invite.ID, "alice"); apperr.KindOf(err) != apperr.KindPermission {
		t.Errorf("sender reject err = %v, want permission", err)
	}

	rejected, err := env.coordinator.Reject(invite.ID, "bob")
	if err != nil {
		t.Fatal(err)
	}
	if rejected.Status != models.InviteRejected {
		t.Errorf("status = %s, want rejected", rejected.Status)
	}

	for _, username := range []string{"alice", "bob"} {
		p, err := env.store.Get(username)
		if err != nil {
			t.Fatal(err)
		}
		if p.HasUnlocked("study_buddy") {
			t.Errorf("%s unlocked study_buddy after reject", username)
		}
		if p.TotalXP != 0 {
			t.Errorf("%s xp = %d after reject, want 0", username, p.TotalXP)
		}
	}

	// A new invite for the same pair and achievement is permitted again.
	if _, err := env.coordinator.Send("alice", "bob", "study_buddy", nil); err != nil {
		t.Errorf("resend after reject: %v", err)
	}
}

func TestCancelInvite(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice")
	env.createUser(t, "bob")

	invite, err := env.coordinator.Send("alice", "bob", "study_buddy", nil)
	if err != nil {
		t.Fatal(err)
	}

	// Only the sender may cancel.
	if _, err := env.coordinator.Cancel(invite.ID, "bob"); apperr.KindOf(err) != apperr.KindPermission {
		t.Errorf("recipient cancel err = %v, want permission", err)
	}

	cancelled, err := env.coordinator.Cancel(invite.ID, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if cancelled.Status != models.InviteCancelled {
		t.Errorf("status = %s, want cancelled", cancelled.Status)
	}
	if cancelled.ResolvedAt == nil {
		t.Error("resolved_at not set")
	}

	// Cancelling frees the sender to invite again.
	if _, err := env.coordinator.Send("alice", "bob", "study_buddy", nil); err != nil {
		t.Errorf("resend after cancel: %v", err)
	}
}

func TestPendingQueries(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice")
	env.createUser(t, "bob")
	env.createUser(t, "carol")

	if _, err := env.coordinator.Send("alice", "bob", "study_buddy", nil); err != nil {
		t.Fatal(err)
	}
	carolInvite, err := env.coordinator.Send("carol", "bob", "study_buddy", nil)
	if err != nil {
		t.Fatal(err)
	}

	pending, err := env.coordinator.PendingFor("bob")
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending = %d, want 2", len(pending))
	}

	count, err := env.coordinator.PendingCount("bob")
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}

	// Resolved invites drop out of pending queries.
	if _, err := env.coordinator.Reject(carolInvite.ID, "bob"); err != nil {
		t.Fatal(err)
	}
	count, err = env.coordinator.PendingCount("bob")
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("count after reject = %d, want 1", count)
	}

	if count, err := env.coordinator.PendingCount("alice"); err != nil || count != 0 {
		t.Errorf("alice count = %d (%v), want 0", count, err)
	}
}
