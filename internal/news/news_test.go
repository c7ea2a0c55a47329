package news

import (
	"context"
	"testing"
)

type staticSource struct {
	name     string
	articles []Article
}

func (s staticSource) Name() string                       { return s.name }
func (s staticSource) Fetch(ctx context.Context) []Article { return s.articles }

func TestAggregateOrdersOldestFirst(t *testing.T) {
	a := staticSource{name: "a", articles: []Article{{URL: "u3", Timestamp: 3}, {URL: "u1", Timestamp: 1}}}
	b := staticSource{name: "b", articles: []Article{{URL: "u2", Timestamp: 2}}}

	got := Aggregate(context.Background(), a, b)

	want := []string{"u1", "u2", "u3"}
	if len(got) != len(want) {
		t.Fatalf("got %d articles, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].URL != w {
			t.Errorf("position %d: got %s, want %s", i, got[i].URL, w)
		}
	}
}

func TestAggregateStableOnTies(t *testing.T) {
	a := staticSource{articles: []Article{{URL: "first", Timestamp: 5}, {URL: "second", Timestamp: 5}}}
	b := staticSource{articles: []Article{{URL: "third", Timestamp: 5}, {URL: "early", Timestamp: 1}}}

	got := Aggregate(context.Background(), a, b)

	want := []string{"early", "first", "second", "third"}
	for i, w := range want {
		if got[i].URL != w {
			t.Errorf("position %d: got %s, want %s", i, got[i].URL, w)
		}
	}
}

func TestAggregateEmptySources(t *testing.T) {
	got := Aggregate(context.Background(), staticSource{}, staticSource{})
	if len(got) != 0 {
		t.Errorf("expected no articles, got %d", len(got))
	}
}

func TestUnseen(t *testing.T) {
	seen := map[string]bool{"b": true}
	in := []Article{{URL: "a"}, {URL: "b"}, {URL: "c"}}

	got := Unseen(in, func(u string) bool { return seen[u] })

	if len(got) != 2 || got[0].URL != "a" || got[1].URL != "c" {
		t.Errorf("unexpected result: %+v", got)
	}
}
