package cycle

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/focuscycle/internal/cache"
	"github.com/focuscycle/internal/db"
)

func TestLoadPrefersRemote(t *testing.T) {
	weekStart := WeekStart(wednesday)
	remote := newFakeMirror()
	remote.cycles = []cache.RemoteCycle{
		{ID: "r1", Name: "Remote One", StudyDays: []string{"mon"}, CreatedAt: weekStart, WeekStartDate: weekStart},
		{
			ID:            "r2",
			Name:          "Remote Two",
			StudyDays:     []string{"TUE", "thu"},
			CreatedAt:     weekStart,
			WeekStartDate: weekStart,
			IsActive:      true,
			Subjects: []cache.RemoteSubject{
				{ID: "s1", Name: "Chemistry", WeeklyHours: 2, CurrentWeekMinutes: 30, TotalMinutes: 120, TotalSessions: 4},
			},
		},
	}

	store := newMemoryStore()
	store.Save(cache.KeyStudyCycle, Bundle{ActiveCycleID: "local", Cycles: []Cycle{{ID: "local", Name: "Local only"}}})

	repo := Open(context.Background(), store, remote, WithClock(func() time.Time { return wednesday }))
	t.Cleanup(repo.Close)

	if repo.ActiveCycleID() != "r2" {
		t.Fatalf("expected remote active cycle r2, got %s", repo.ActiveCycleID())
	}
	active, _ := repo.ActiveCycle()
	if len(active.StudyDays) != 2 || active.StudyDays[0] != Tuesday {
		t.Fatalf("remote study days not normalised: %v", active.StudyDays)
	}
	s := active.Subjects[0]
	if s.Color != DefaultColor || s.Priority != DefaultPriority || s.CurrentWeekMinutes != 30 {
		t.Fatalf("remote subject not normalised: %#v", s)
	}

	bundle := cache.Load(store, cache.KeyStudyCycle, Bundle{})
	if len(bundle.Cycles) != 2 || bundle.ActiveCycleID != "r2" {
		t.Fatalf("local mirror should be overwritten by remote data: %#v", bundle)
	}
}

func TestLoadRemoteWithoutActiveFlag(t *testing.T) {
	remote := newFakeMirror()
	remote.cycles = []cache.RemoteCycle{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}}

	repo := Open(context.Background(), newMemoryStore(), remote, WithClock(func() time.Time { return wednesday }))
	t.Cleanup(repo.Close)

	if repo.ActiveCycleID() != "a" {
		t.Fatalf("expected first remote cycle to become active, got %s", repo.ActiveCycleID())
	}
}

func TestRemoteFailureKeepsLocalState(t *testing.T) {
	remote := newFakeMirror()
	remote.fail = true
	repo, store, _ := setupRepository(t, remote)

	subject := mustAddSubject(t, repo, SubjectSpec{Name: "Economics"})
	if err := repo.RecordSession(subject.ID, 25); err != nil {
		t.Fatalf("RecordSession returned error: %v", err)
	}
	other := mustAddSubject(t, repo, SubjectSpec{Name: "Law"})
	if err := repo.RemoveSubject(other.ID, ""); err != nil {
		t.Fatalf("RemoveSubject returned error: %v", err)
	}
	repo.Flush()

	if remote.count("delete subject "+other.ID) != 1 {
		t.Fatalf("expected one remote delete attempt, calls: %v", remote.calls)
	}
	if remote.count("create session "+subject.ID) != 1 {
		t.Fatalf("expected one session upload attempt, calls: %v", remote.calls)
	}

	got, ok := repo.Subject(subject.ID, "")
	if !ok || got.CurrentWeekMinutes != 25 {
		t.Fatalf("local state must survive remote failure: %#v", got)
	}
	bundle := cache.Load(store, cache.KeyStudyCycle, Bundle{})
	if len(bundle.Cycles) != 1 || len(bundle.Cycles[0].Subjects) != 1 || bundle.Cycles[0].Subjects[0].CurrentWeekMinutes != 25 {
		t.Fatalf("local cache not updated: %#v", bundle)
	}
}

func TestMirrorCarriesLatestState(t *testing.T) {
	remote := newFakeMirror()
	repo, _, clock := setupRepository(t, remote)

	subject := mustAddSubject(t, repo, SubjectSpec{Name: "Statistics", WeeklyHours: 1})
	for i := 0; i < 3; i++ {
		if err := repo.RecordSession(subject.ID, 20); err != nil {
			t.Fatalf("RecordSession returned error: %v", err)
		}
	}
	repo.Flush()

	remote.mu.Lock()
	mirrored := remote.subjects[subject.ID]
	sessions := append([]cache.SessionRecord(nil), remote.sessions...)
	remote.mu.Unlock()

	if mirrored.CurrentWeekMinutes != 60 || mirrored.TotalSessions != 3 || mirrored.CycleID != repo.ActiveCycleID() {
		t.Fatalf("mirror should carry the latest subject state: %#v", mirrored)
	}
	if len(sessions) != 3 {
		t.Fatalf("expected 3 uploaded sessions, got %d", len(sessions))
	}
	last := sessions[2]
	if last.Minutes != 20 || !last.CompletedAt.Equal(clock.Now()) || !last.StartedAt.Equal(clock.Now().Add(-20*time.Minute)) {
		t.Fatalf("unexpected session record: %#v", last)
	}
}

func TestWeekResetNotifiesRemote(t *testing.T) {
	remote := newFakeMirror()
	repo, _, clock := setupRepository(t, remote)
	id := repo.ActiveCycleID()

	clock.Advance(8 * 24 * time.Hour)
	if !repo.CheckWeekReset() {
		t.Fatal("expected reset")
	}
	repo.Flush()

	if remote.count(fmt.Sprintf("reset week %s", id)) != 1 {
		t.Fatalf("expected a remote reset-week call, calls: %v", remote.calls)
	}
}

func TestSetActiveCycleActivatesRemotely(t *testing.T) {
	remote := newFakeMirror()
	repo, _, _ := setupRepository(t, remote)

	other, err := repo.CreateCycle("Other", nil)
	if err != nil {
		t.Fatalf("CreateCycle returned error: %v", err)
	}
	if err := repo.SetActiveCycle(other.ID); err != nil {
		t.Fatalf("SetActiveCycle returned error: %v", err)
	}
	repo.Flush()

	if remote.count("activate cycle "+other.ID) != 1 {
		t.Fatalf("expected remote activation, calls: %v", remote.calls)
	}
}

func TestSQLiteCacheReload(t *testing.T) {
	gdb, err := db.OpenCache(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	if err != nil {
		t.Fatalf("OpenCache returned error: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	local := cache.NewLocal(gdb, nil)
	clock := newTestClock(wednesday)

	first := Open(context.Background(), local, nil, WithClock(clock.Now))
	subject := mustAddSubject(t, first, SubjectSpec{Name: "Philosophy", WeeklyHours: 2})
	if err := first.RecordSession(subject.ID, 40); err != nil {
		t.Fatalf("RecordSession returned error: %v", err)
	}
	first.Close()

	second := Open(context.Background(), local, nil, WithClock(clock.Now))
	t.Cleanup(second.Close)

	got, ok := second.Subject(subject.ID, "")
	if !ok {
		t.Fatal("subject not restored from sqlite cache")
	}
	if got.CurrentWeekMinutes != 40 || got.TotalSessions != 1 || got.LastStudied == nil {
		t.Fatalf("unexpected restored subject: %#v", got)
	}
	if second.ActiveCycleID() != first.ActiveCycleID() {
		t.Fatal("active cycle not restored")
	}
}
