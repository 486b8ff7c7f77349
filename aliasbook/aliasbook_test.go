package aliasbook

import (
	"testing"

	"github.com/cvsouth/enseal/keystore"
)

func mustName(t *testing.T, s string) keystore.IdentityName {
	t.Helper()
	n, err := keystore.ValidateIdentityName(s)
	if err != nil {
		t.Fatalf("ValidateIdentityName(%q): %v", s, err)
	}
	return n
}

func TestAliasesSetResolveRemove(t *testing.T) {
	dir := t.TempDir()
	s := keystore.New(dir)

	a, err := LoadAliases(s)
	if err != nil {
		t.Fatalf("LoadAliases: %v", err)
	}
	alice := mustName(t, "alice")
	if err := a.Set("al", alice); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// Reload from disk to confirm persistence.
	reloaded, err := LoadAliases(s)
	if err != nil {
		t.Fatalf("LoadAliases (reload): %v", err)
	}
	got, ok := reloaded.Resolve("al")
	if !ok || got != alice {
		t.Fatalf("Resolve(al) = %v, %v; want %v, true", got, ok, alice)
	}

	if err := reloaded.Remove("al"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok := reloaded.Resolve("al"); ok {
		t.Fatal("alias still resolves after Remove")
	}
}

func TestAliasesRejectsBadShortName(t *testing.T) {
	dir := t.TempDir()
	s := keystore.New(dir)
	a, err := LoadAliases(s)
	if err != nil {
		t.Fatalf("LoadAliases: %v", err)
	}
	if err := a.Set("has space", mustName(t, "alice")); err == nil {
		t.Fatal("expected error for invalid short name")
	}
}

func TestGroupsAddSuppressesDuplicates(t *testing.T) {
	dir := t.TempDir()
	s := keystore.New(dir)
	g, err := LoadGroups(s)
	if err != nil {
		t.Fatalf("LoadGroups: %v", err)
	}
	alice := mustName(t, "alice")
	bob := mustName(t, "bob")

	for _, m := range []keystore.IdentityName{alice, bob, alice} {
		if err := g.Add("team", m); err != nil {
			t.Fatalf("Add(%v): %v", m, err)
		}
	}
	members, ok := g.Members("team")
	if !ok {
		t.Fatal("Members: group not found")
	}
	if len(members) != 2 {
		t.Fatalf("members = %v, want 2 entries", members)
	}
}

func TestGroupsRemoveAndDelete(t *testing.T) {
	dir := t.TempDir()
	s := keystore.New(dir)
	g, err := LoadGroups(s)
	if err != nil {
		t.Fatalf("LoadGroups: %v", err)
	}
	alice := mustName(t, "alice")
	bob := mustName(t, "bob")
	_ = g.Add("team", alice)
	_ = g.Add("team", bob)

	if err := g.Remove("team", alice); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	members, _ := g.Members("team")
	if len(members) != 1 || members[0] != bob {
		t.Fatalf("members after Remove = %v, want [bob]", members)
	}

	if err := g.DeleteGroup("team"); err != nil {
		t.Fatalf("DeleteGroup: %v", err)
	}
	if _, ok := g.Members("team"); ok {
		t.Fatal("group still present after DeleteGroup")
	}
}

func TestGroupsMissingGroupNotFound(t *testing.T) {
	dir := t.TempDir()
	s := keystore.New(dir)
	g, err := LoadGroups(s)
	if err != nil {
		t.Fatalf("LoadGroups: %v", err)
	}
	members, ok := g.Members("ghost")
	if ok || len(members) != 0 {
		t.Fatalf("Members(ghost) = %v, %v; want nil, false", members, ok)
	}
}
