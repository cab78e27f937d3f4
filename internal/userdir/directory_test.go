package userdir_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"cupidbot/internal/model"
	"cupidbot/internal/store"
	"cupidbot/internal/userdir"
)

type fakeStore struct {
	byID map[string]*model.User
}

func newFakeStore() *fakeStore {
	return &fakeStore{byID: make(map[string]*model.User)}
}

func (f *fakeStore) UpsertUser(_ context.Context, u *model.User) error {
	for _, existing := range f.byID {
		if existing.ChatID == u.ChatID {
			existing.Username = u.Username
			existing.FirstName = u.FirstName
			existing.LastName = u.LastName
			*u = *existing
			return nil
		}
	}
	clone := *u
	f.byID[u.ID] = &clone
	return nil
}

func (f *fakeStore) UserByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) UserByChatID(_ context.Context, chatID int64) (*model.User, error) {
	for _, u := range f.byID {
		if u.ChatID == chatID {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) UserByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range f.byID {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) SetPartners(_ context.Context, aID, bID string) error {
	f.byID[aID].PartnerID = &bID
	f.byID[bID].PartnerID = &aID
	return nil
}

func (f *fakeStore) ClearPartners(_ context.Context, aID, bID string) error {
	f.byID[aID].PartnerID = nil
	f.byID[bID].PartnerID = nil
	return nil
}

func setup(t *testing.T) (*userdir.Directory, *fakeStore) {
	t.Helper()
	st := newFakeStore()
	return userdir.New(st, zerolog.Nop()), st
}

func TestRegisterKeepsIdentity(t *testing.T) {
	d, _ := setup(t)
	ctx := context.Background()

	first, err := d.Register(ctx, 100, "@alice", "Alice", "A")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if first.Username != "alice" {
		t.Errorf("username not normalized: %q", first.Username)
	}

	again, err := d.Register(ctx, 100, "alice_new", "Alice", "A")
	if err != nil {
		t.Fatalf("re-register: %v", err)
	}
	if again.ID != first.ID {
		t.Errorf("id changed on re-register: %s != %s", again.ID, first.ID)
	}
	if again.Username != "alice_new" {
		t.Errorf("profile not refreshed: %q", again.Username)
	}
}

func TestPair(t *testing.T) {
	d, st := setup(t)
	ctx := context.Background()

	alice, _ := d.Register(ctx, 100, "alice", "Alice", "")
	bob, _ := d.Register(ctx, 200, "bob", "Bob", "")

	res, err := d.Pair(ctx, 100, "@bob")
	if err != nil {
		t.Fatalf("pair: %v", err)
	}
	if !res.OK {
		t.Fatalf("pair failed: %s %s", res.Reason, res.Message)
	}

	// symmetric
	if got := st.byID[alice.ID].PartnerID; got == nil || *got != bob.ID {
		t.Errorf("alice partner = %v, want %s", got, bob.ID)
	}
	if got := st.byID[bob.ID].PartnerID; got == nil || *got != alice.ID {
		t.Errorf("bob partner = %v, want %s", got, alice.ID)
	}

	partner, err := d.PairedUser(ctx, 100)
	if err != nil || partner.ID != bob.ID {
		t.Errorf("paired user: err=%v id=%v", err, partner)
	}
}

func TestPairPreconditions(t *testing.T) {
	d, _ := setup(t)
	ctx := context.Background()

	d.Register(ctx, 100, "alice", "Alice", "")
	d.Register(ctx, 200, "bob", "Bob", "")
	d.Register(ctx, 300, "carol", "Carol", "")
	d.Register(ctx, 400, "dave", "Dave", "")
	if res, _ := d.Pair(ctx, 300, "dave"); !res.OK {
		t.Fatalf("setup pair: %+v", res)
	}

	tests := []struct {
		name     string
		chatID   int64
		username string
		reason   userdir.Reason
	}{
		{"actor unregistered", 999, "bob", userdir.ReasonUnregistered},
		{"partner unregistered", 100, "nobody", userdir.ReasonPartnerNotFound},
		{"self pair", 100, "alice", userdir.ReasonSelfPair},
		{"partner taken", 100, "carol", userdir.ReasonPartnerPaired},
		{"actor already paired", 300, "bob", userdir.ReasonAlreadyPaired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := d.Pair(ctx, tt.chatID, tt.username)
			if err != nil {
				t.Fatalf("pair: %v", err)
			}
			if res.OK || res.Reason != tt.reason {
				t.Errorf("reason = %s, want %s", res.Reason, tt.reason)
			}
		})
	}
}

func TestUnpair(t *testing.T) {
	d, st := setup(t)
	ctx := context.Background()

	alice, _ := d.Register(ctx, 100, "alice", "Alice", "")
	bob, _ := d.Register(ctx, 200, "bob", "Bob", "")
	if res, _ := d.Pair(ctx, 100, "bob"); !res.OK {
		t.Fatalf("pair: %+v", res)
	}

	res, err := d.Unpair(ctx, 200)
	if err != nil || !res.OK {
		t.Fatalf("unpair: err=%v res=%+v", err, res)
	}
	if st.byID[alice.ID].PartnerID != nil || st.byID[bob.ID].PartnerID != nil {
		t.Error("pairing not cleared on both sides")
	}

	again, err := d.Unpair(ctx, 200)
	if err != nil {
		t.Fatalf("unpair again: %v", err)
	}
	if again.OK || again.Reason != userdir.ReasonNotPaired {
		t.Errorf("expected not_paired, got %+v", again)
	}

	paired, err := d.IsPaired(ctx, 100)
	if err != nil || paired {
		t.Errorf("is paired after unpair: %v %v", paired, err)
	}
}
