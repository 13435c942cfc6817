package store

import (
	"testing"
	"time"
)

func TestUtteranceRepository_RecordRecent(t *testing.T) {
	s := newTestStore(t)
	if err := s.Commands().Create(&Command{ID: "asia", Name: "Asia"}); err != nil {
		t.Fatalf("create command: %v", err)
	}
	repo := s.Utterances()

	base := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	records := []*Utterance{
		{Text: "go to asia", CommandID: "asia", CommandName: "Asia", Matched: true, ReceivedAt: base},
		{Text: "hello", ReceivedAt: base.Add(time.Second), Source: SourceHTTP},
		{Text: "asia again", CommandID: "asia", CommandName: "Asia", Matched: true, ReceivedAt: base.Add(2 * time.Second)},
	}
	for _, u := range records {
		if err := repo.Record(u); err != nil {
			t.Fatalf("record %q: %v", u.Text, err)
		}
		if u.ID == 0 {
			t.Errorf("record %q: ID not set", u.Text)
		}
	}

	recent, err := repo.Recent(2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("got %d, want 2", len(recent))
	}
	if recent[0].Text != "asia again" || recent[1].Text != "hello" {
		t.Errorf("order = %q, %q", recent[0].Text, recent[1].Text)
	}
	if recent[1].Matched || recent[1].CommandID != "" || recent[1].Source != SourceHTTP {
		t.Errorf("unmatched row = %+v", recent[1])
	}
	if !recent[0].Matched || recent[0].CommandID != "asia" || recent[0].Source != SourceSpeech {
		t.Errorf("matched row = %+v", recent[0])
	}
}

func TestUtteranceRepository_CommandDeleteKeepsHistory(t *testing.T) {
	s := newTestStore(t)
	if err := s.Commands().Create(&Command{ID: "eu", Name: "Europe"}); err != nil {
		t.Fatalf("create command: %v", err)
	}
	repo := s.Utterances()
	if err := repo.Record(&Utterance{Text: "europe", CommandID: "eu", CommandName: "Europe", Matched: true}); err != nil {
		t.Fatalf("record: %v", err)
	}

	if err := s.Commands().Delete("eu"); err != nil {
		t.Fatalf("delete command: %v", err)
	}

	recent, err := repo.Recent(10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("got %d, want 1", len(recent))
	}
	if recent[0].CommandID != "" || recent[0].CommandName != "Europe" {
		t.Errorf("row after delete = %+v", recent[0])
	}
}

func TestUtteranceRepository_Prune(t *testing.T) {
	s := newTestStore(t)
	repo := s.Utterances()

	base := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		if err := repo.Record(&Utterance{Text: "u", ReceivedAt: base.Add(time.Duration(i) * time.Second)}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	removed, err := repo.Prune(2)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 3 {
		t.Errorf("removed %d, want 3", removed)
	}

	recent, err := repo.Recent(10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 {
		t.Errorf("kept %d, want 2", len(recent))
	}
}
