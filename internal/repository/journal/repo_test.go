package journal

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/searchplane/internal/domain"
)

type mockListStore struct {
	lists  map[string][]string
	maxLen int64
	err    error
}

func (m *mockListStore) PushCapped(_ context.Context, key string, maxLen int64, values ...string) error {
	if m.err != nil {
		return m.err
	}
	m.maxLen = maxLen
	for _, v := range values {
		m.lists[key] = append([]string{v}, m.lists[key]...)
	}
	if int64(len(m.lists[key])) > maxLen {
		m.lists[key] = m.lists[key][:maxLen]
	}
	return nil
}

func (m *mockListStore) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	l := m.lists[key]
	if stop >= int64(len(l)) {
		stop = int64(len(l)) - 1
	}
	if start > stop {
		return nil, nil
	}
	return l[start : stop+1], nil
}

func TestEvents_SaveAndRecent(t *testing.T) {
	s := &mockListStore{lists: map[string][]string{}}
	r := NewEvents(s, "sp:", 2)
	ref := domain.NewReference("app1", "idx1")
	ctx := context.Background()

	events := []domain.DomainEvent{
		{Type: "a", OccurredOn: 1},
		{Type: "b", OccurredOn: 2},
		{Type: "c", OccurredOn: 3},
	}
	if err := r.Save(ctx, ref, events); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.lists["sp:events:app1:idx1"]; !ok {
		t.Fatalf("unexpected keys %v", s.lists)
	}
	if s.maxLen != 2 {
		t.Errorf("expected cap 2, got %d", s.maxLen)
	}

	got, err := r.Recent(ctx, ref, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Type != "c" || got[1].Type != "b" {
		t.Errorf("expected newest two, got %+v", got)
	}
}

func TestLogs_DefaultCap(t *testing.T) {
	s := &mockListStore{lists: map[string][]string{}}
	r := NewLogs(s, "", 0)
	err := r.Save(context.Background(), domain.NewReference("a", ""), []domain.LogEntry{{ID: "1", Type: domain.LogFatal}})
	if err != nil {
		t.Fatal(err)
	}
	if s.maxLen != DefaultMaxLen {
		t.Errorf("expected default cap, got %d", s.maxLen)
	}
}

func TestSave_StoreError(t *testing.T) {
	s := &mockListStore{lists: map[string][]string{}, err: errors.New("down")}
	r := NewLogs(s, "", 10)
	err := r.Save(context.Background(), domain.NewReference("a", "i"), []domain.LogEntry{{ID: "1"}})
	if !errors.Is(err, domain.ErrResourceNotAvailable) {
		t.Errorf("expected ErrResourceNotAvailable, got %v", err)
	}
}

func TestSave_EmptyIsNoop(t *testing.T) {
	s := &mockListStore{lists: map[string][]string{}, err: errors.New("must not be called")}
	r := NewEvents(s, "", 10)
	if err := r.Save(context.Background(), domain.NewReference("a", "i"), nil); err != nil {
		t.Errorf("unexpected error %v", err)
	}
}
