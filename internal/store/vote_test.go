package store

import (
	"errors"
	"testing"

	"github.com/offtimeapp/offtime/internal/database"
)

func setupVoteTestDB(t *testing.T) (*VoteStore, *GroupStore, *UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewVoteStore(db), NewGroupStore(db), NewUserStore(db)
}

func TestVoteCreate(t *testing.T) {
	vs, gs, us := setupVoteTestDB(t)

	g, _ := gs.Create("Test Group", "")
	voter, _ := us.Create("alice", "hash")
	target, _ := us.Create("bob", "hash")
	gs.AddMember(g.ID, voter.ID)
	gs.AddMember(g.ID, target.ID)

	v, err := vs.Create(g.ID, voter.ID, target.ID, "2025-02-01")
	if err != nil {
		t.Fatalf("create vote: %v", err)
	}
	if v.TargetID != target.ID {
		t.Errorf("target_id = %d, want %d", v.TargetID, target.ID)
	}
	if v.VoteDate != "2025-02-01" {
		t.Errorf("vote_date = %q, want %q", v.VoteDate, "2025-02-01")
	}
}

func TestVoteCreateDuplicate(t *testing.T) {
	vs, gs, us := setupVoteTestDB(t)

	g, _ := gs.Create("Test Group", "")
	voter, _ := us.Create("alice", "hash")
	t1, _ := us.Create("bob", "hash")
	t2, _ := us.Create("carol", "hash")

	if _, err := vs.Create(g.ID, voter.ID, t1.ID, "2025-02-01"); err != nil {
		t.Fatalf("create vote: %v", err)
	}
	// One vote per voter per group per day, regardless of target.
	_, err := vs.Create(g.ID, voter.ID, t2.ID, "2025-02-01")
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for second vote, got %v", err)
	}

	// The next day is a fresh vote.
	if _, err := vs.Create(g.ID, voter.ID, t2.ID, "2025-02-02"); err != nil {
		t.Fatalf("create vote next day: %v", err)
	}
}

func TestVoteHasVoted(t *testing.T) {
	vs, gs, us := setupVoteTestDB(t)

	g, _ := gs.Create("Test Group", "")
	voter, _ := us.Create("alice", "hash")
	target, _ := us.Create("bob", "hash")

	voted, err := vs.HasVoted(g.ID, voter.ID, "2025-02-01")
	if err != nil {
		t.Fatalf("has voted: %v", err)
	}
	if voted {
		t.Error("expected no vote yet")
	}

	vs.Create(g.ID, voter.ID, target.ID, "2025-02-01")

	voted, err = vs.HasVoted(g.ID, voter.ID, "2025-02-01")
	if err != nil {
		t.Fatalf("has voted: %v", err)
	}
	if !voted {
		t.Error("expected vote to be recorded")
	}
}

func TestVoteCountByTarget(t *testing.T) {
	vs, gs, us := setupVoteTestDB(t)

	g, _ := gs.Create("Test Group", "")
	a, _ := us.Create("alice", "hash")
	b, _ := us.Create("bob", "hash")
	c, _ := us.Create("carol", "hash")

	vs.Create(g.ID, a.ID, c.ID, "2025-02-01")
	vs.Create(g.ID, b.ID, c.ID, "2025-02-01")
	vs.Create(g.ID, c.ID, a.ID, "2025-02-01")
	// Yesterday's vote is out of scope.
	vs.Create(g.ID, a.ID, b.ID, "2025-01-31")

	counts, err := vs.CountByTarget(g.ID, "2025-02-01")
	if err != nil {
		t.Fatalf("count by target: %v", err)
	}
	if counts[c.ID] != 2 {
		t.Errorf("carol count = %d, want 2", counts[c.ID])
	}
	if counts[a.ID] != 1 {
		t.Errorf("alice count = %d, want 1", counts[a.ID])
	}
	if _, ok := counts[b.ID]; ok {
		t.Error("expected bob absent from today's counts")
	}
}

func TestVoteListByVoter(t *testing.T) {
	vs, gs, us := setupVoteTestDB(t)

	g, _ := gs.Create("Test Group", "")
	voter, _ := us.Create("alice", "hash")
	target, _ := us.Create("bob", "hash")

	vs.Create(g.ID, voter.ID, target.ID, "2025-02-01")
	vs.Create(g.ID, voter.ID, target.ID, "2025-02-02")
	// Another voter's ballots never show up.
	vs.Create(g.ID, target.ID, voter.ID, "2025-02-01")

	entries, err := vs.ListByVoter(g.ID, voter.ID, "")
	if err != nil {
		t.Fatalf("list by voter: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].VoteDate != "2025-02-02" {
		t.Errorf("first vote_date = %q, want %q", entries[0].VoteDate, "2025-02-02")
	}
	if entries[0].GroupName != "Test Group" {
		t.Errorf("group_name = %q, want %q", entries[0].GroupName, "Test Group")
	}
	if entries[0].VotedFor.Username != "bob" {
		t.Errorf("voted_for = %q, want %q", entries[0].VotedFor.Username, "bob")
	}
}

func TestVoteListByVoterDateFilter(t *testing.T) {
	vs, gs, us := setupVoteTestDB(t)

	g, _ := gs.Create("Test Group", "")
	voter, _ := us.Create("alice", "hash")
	target, _ := us.Create("bob", "hash")

	vs.Create(g.ID, voter.ID, target.ID, "2025-02-01")
	vs.Create(g.ID, voter.ID, target.ID, "2025-02-02")

	entries, err := vs.ListByVoter(g.ID, voter.ID, "2025-02-01")
	if err != nil {
		t.Fatalf("list by voter: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].VoteDate != "2025-02-01" {
		t.Errorf("vote_date = %q, want %q", entries[0].VoteDate, "2025-02-01")
	}
}
