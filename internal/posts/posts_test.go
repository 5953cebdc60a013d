package posts

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"personalpage/internal/persistence/kv"
)

type flakyStore struct {
	*kv.Memory
	getErr error
	setErr error
}

func (s *flakyStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s.getErr != nil {
		return nil, false, s.getErr
	}
	return s.Memory.Get(ctx, key)
}

func (s *flakyStore) Set(ctx context.Context, key string, value []byte) error {
	if s.setErr != nil {
		return s.setErr
	}
	return s.Memory.Set(ctx, key, value)
}

func fixedClock(ms ...int64) func() time.Time {
	i := 0
	return func() time.Time {
		v := ms[len(ms)-1]
		if i < len(ms) {
			v = ms[i]
		}
		i++
		return time.UnixMilli(v)
	}
}

func TestCreateThenList(t *testing.T) {
	ctx := context.Background()
	r := NewRepository(kv.NewMemory(), Options{})

	p, err := r.Create(ctx, "Hello", "World")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.ID == "" || p.CreatedAt == 0 {
		t.Fatalf("post not stamped: %+v", p)
	}
	got := r.List(ctx)
	if diff := cmp.Diff([]Post{p}, got); diff != "" {
		t.Fatalf("list mismatch (-want +got):\n%s", diff)
	}
}

func TestCreate_UniqueIDsAndPrepends(t *testing.T) {
	ctx := context.Background()
	r := NewRepository(kv.NewMemory(), Options{})

	seen := map[string]bool{}
	var last Post
	for i := 0; i < 50; i++ {
		p, err := r.Create(ctx, fmt.Sprintf("t%d", i), "c")
		if err != nil {
			t.Fatalf("Create %d: %v", i, err)
		}
		if seen[p.ID] {
			t.Fatalf("duplicate id %s", p.ID)
		}
		seen[p.ID] = true
		last = p
	}
	list := r.List(ctx)
	if len(list) != 50 {
		t.Fatalf("len=%d want 50", len(list))
	}
	if list[0].ID != last.ID {
		t.Fatalf("newest post should be first in storage order")
	}
}

func TestCreate_RejectsBlank(t *testing.T) {
	r := NewRepository(kv.NewMemory(), Options{})
	if _, err := r.Create(context.Background(), "   ", "c"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("err=%v want ErrInvalid", err)
	}
	if n := len(r.List(context.Background())); n != 0 {
		t.Fatalf("blank post was stored")
	}
}

func TestDeleteByID(t *testing.T) {
	ctx := context.Background()
	r := NewRepository(kv.NewMemory(), Options{})
	a, _ := r.Create(ctx, "a", "a")
	b, _ := r.Create(ctx, "b", "b")

	removed, err := r.DeleteByID(ctx, a.ID)
	if err != nil || !removed {
		t.Fatalf("DeleteByID: removed=%v err=%v", removed, err)
	}
	for _, p := range r.List(ctx) {
		if p.ID == a.ID {
			t.Fatalf("deleted id still listed")
		}
	}

	before := r.List(ctx)
	removed, err = r.DeleteByID(ctx, "no-such-id")
	if err != nil || removed {
		t.Fatalf("DeleteByID missing: removed=%v err=%v", removed, err)
	}
	if diff := cmp.Diff(before, r.List(ctx)); diff != "" {
		t.Fatalf("deleting a missing id changed the list:\n%s", diff)
	}
	if got := r.List(ctx); len(got) != 1 || got[0].ID != b.ID {
		t.Fatalf("unexpected remainder: %+v", got)
	}
}

func TestList_DegradesToEmpty(t *testing.T) {
	cases := map[string]string{
		"not json":     `{{{`,
		"not an array": `{"id":"x"}`,
		"bad entry":    `[{"id":"x","title":"t"}]`,
		"string ts":    `[{"id":"x","title":"t","content":"c","createdAt":"yesterday"}]`,
		"json null":    `null`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			m := kv.NewMemory()
			_ = m.Set(context.Background(), DefaultKey, []byte(doc))
			got := NewRepository(m, Options{}).List(context.Background())
			if got == nil || len(got) != 0 {
				t.Fatalf("got %+v want empty non-nil list", got)
			}
		})
	}
}

func TestList_StoreReadErrorIsSwallowed(t *testing.T) {
	s := &flakyStore{Memory: kv.NewMemory(), getErr: errors.New("disk gone")}
	if got := NewRepository(s, Options{}).List(context.Background()); len(got) != 0 {
		t.Fatalf("got %+v want empty", got)
	}
}

func TestCreate_OverwritesCorruptData(t *testing.T) {
	m := kv.NewMemory()
	_ = m.Set(context.Background(), DefaultKey, []byte(`"garbage"`))
	r := NewRepository(m, Options{})
	if _, err := r.Create(context.Background(), "t", "c"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if n := len(r.List(context.Background())); n != 1 {
		t.Fatalf("len=%d want 1", n)
	}
}

func TestWriteFailureSurfacesErrPersist(t *testing.T) {
	s := &flakyStore{Memory: kv.NewMemory(), setErr: errors.New("quota exceeded")}
	_ = s.Memory.Set(context.Background(), DefaultKey, []byte(`[{"id":"x","title":"t","content":"c","createdAt":1}]`))
	r := NewRepository(s, Options{})
	if _, err := r.Create(context.Background(), "t", "c"); !errors.Is(err, ErrPersist) {
		t.Fatalf("Create err=%v want ErrPersist", err)
	}
	if _, err := r.DeleteByID(context.Background(), "x"); !errors.Is(err, ErrPersist) {
		t.Fatalf("DeleteByID err=%v want ErrPersist", err)
	}

	s.setErr = nil
	s.getErr = errors.New("timeout")
	if _, err := r.Create(context.Background(), "t", "c"); !errors.Is(err, ErrPersist) {
		t.Fatalf("Create with unreadable store err=%v want ErrPersist", err)
	}
}

func TestSortNewestFirst(t *testing.T) {
	in := []Post{{ID: "a", CreatedAt: 10}, {ID: "b", CreatedAt: 30}, {ID: "c", CreatedAt: 20}}
	got := SortNewestFirst(in)
	var order []int64
	for _, p := range got {
		order = append(order, p.CreatedAt)
	}
	if diff := cmp.Diff([]int64{30, 20, 10}, order); diff != "" {
		t.Fatalf("order mismatch:\n%s", diff)
	}
	if in[0].CreatedAt != 10 {
		t.Fatalf("input slice was reordered")
	}
}

func TestCreate_UsesInjectedClockAndIDs(t *testing.T) {
	n := 0
	r := NewRepository(kv.NewMemory(), Options{
		Key: "custom",
		Now: fixedClock(1700000000000),
		NewID: func() (string, error) {
			n++
			return fmt.Sprintf("id-%d", n), nil
		},
	})
	p, err := r.Create(context.Background(), "t", "c")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	want := Post{ID: "id-1", Title: "t", Content: "c", CreatedAt: 1700000000000}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Fatalf("post mismatch:\n%s", diff)
	}
	if r.Key() != "custom" {
		t.Fatalf("key=%q", r.Key())
	}
}

func TestJSONShapeRoundTrips(t *testing.T) {
	m := kv.NewMemory()
	old := `{"id":"lq2x9k1a","title":"T","content":"C","createdAt":1700000000000}`
	_ = m.Set(context.Background(), DefaultKey, []byte("["+old+"]"))
	r := NewRepository(m, Options{
		Now:   fixedClock(1700000000001),
		NewID: func() (string, error) { return "n1", nil },
	})
	if _, err := r.Create(context.Background(), "N", "M"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, _, _ := m.Get(context.Background(), DefaultKey)
	want := `[{"id":"n1","title":"N","content":"M","createdAt":1700000000001},` + old + `]`
	if string(got) != want {
		t.Fatalf("stored=%s want %s", got, want)
	}
}

const mixedDoc = `[{"id":"a","title":"A","content":"a","createdAt":2},` +
	`{"id":"b","title":"B","content":"b","createdAt":1},` +
	`{"id":"c","title":"C","content":"c"}]`

func TestList_SkipsOnlyUnreadableEntries(t *testing.T) {
	m := kv.NewMemory()
	_ = m.Set(context.Background(), DefaultKey, []byte(mixedDoc))
	got := NewRepository(m, Options{}).List(context.Background())
	want := []Post{
		{ID: "a", Title: "A", Content: "a", CreatedAt: 2},
		{ID: "b", Title: "B", Content: "b", CreatedAt: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("list mismatch (-want +got):\n%s", diff)
	}
}

func TestCreate_KeepsMixedStoredEntries(t *testing.T) {
	ctx := context.Background()
	m := kv.NewMemory()
	_ = m.Set(ctx, DefaultKey, []byte(mixedDoc))
	r := NewRepository(m, Options{
		Now:   fixedClock(3),
		NewID: func() (string, error) { return "new", nil },
	})
	if _, err := r.Create(ctx, "new", "post"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	var ids []string
	for _, p := range r.List(ctx) {
		ids = append(ids, p.ID)
	}
	if diff := cmp.Diff([]string{"new", "a", "b"}, ids); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
	got, _, _ := m.Get(ctx, DefaultKey)
	want := `[{"id":"new","title":"new","content":"post","createdAt":3},` + mixedDoc[1:]
	if string(got) != want {
		t.Fatalf("stored=%s\nwant  %s", got, want)
	}

	if removed, err := r.DeleteByID(ctx, "a"); err != nil || !removed {
		t.Fatalf("DeleteByID: removed=%v err=%v", removed, err)
	}
	got, _, _ = m.Get(ctx, DefaultKey)
	want = `[{"id":"new","title":"new","content":"post","createdAt":3},` +
		`{"id":"b","title":"B","content":"b","createdAt":1},{"id":"c","title":"C","content":"c"}]`
	if string(got) != want {
		t.Fatalf("after delete stored=%s\nwant  %s", got, want)
	}
}

func TestDeleteByID_MissingLeavesDocumentUntouched(t *testing.T) {
	ctx := context.Background()
	s := &flakyStore{Memory: kv.NewMemory()}
	_ = s.Memory.Set(ctx, DefaultKey, []byte(mixedDoc))
	s.setErr = errors.New("no writes expected")
	removed, err := NewRepository(s, Options{}).DeleteByID(ctx, "zzz")
	if err != nil || removed {
		t.Fatalf("removed=%v err=%v", removed, err)
	}
	got, _, _ := s.Memory.Get(ctx, DefaultKey)
	if string(got) != mixedDoc {
		t.Fatalf("stored=%s", got)
	}
}
