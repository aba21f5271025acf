package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(":memory:")
	require.NoError(t, err)

	t.Cleanup(func() { s.Close() })

	return s
}

func numbersOf(t *testing.T, s *Store) []int {
	t.Helper()

	rows, err := s.SelectAll(context.Background())
	require.NoError(t, err)

	out := make([]int, len(rows))
	for i, r := range rows {
		out[i] = r.Number
	}

	return out
}

func TestSaveAssignsNextNumber(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := &PresetRow{Name: "A", Blob: []byte("{}")}
	require.NoError(t, s.Save(ctx, a))
	assert.Equal(t, 1, a.Number)

	b := &PresetRow{Name: "B", Blob: []byte("{}")}
	require.NoError(t, s.Save(ctx, b))
	assert.Equal(t, 2, b.Number)
}

// TestS2Reorder is the S2 seed scenario from spec.md §8: presets
// [1:A, 2:B, 3:C], reorder([3,1,2]) yields numbers {1:C, 2:A, 3:B}.
func TestS2Reorder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := &PresetRow{Name: "A", Blob: []byte("{}")}
	b := &PresetRow{Name: "B", Blob: []byte("{}")}
	c := &PresetRow{Name: "C", Blob: []byte("{}")}
	require.NoError(t, s.Save(ctx, a))
	require.NoError(t, s.Save(ctx, b))
	require.NoError(t, s.Save(ctx, c))

	require.NoError(t, s.Reorder(ctx, []int64{c.ID, a.ID, b.ID}))

	rows, err := s.SelectAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, c.ID, rows[0].ID)
	assert.Equal(t, 1, rows[0].Number)
	assert.Equal(t, a.ID, rows[1].ID)
	assert.Equal(t, 2, rows[1].Number)
	assert.Equal(t, b.ID, rows[2].ID)
	assert.Equal(t, 3, rows[2].Number)
}

func TestReorderRejectsWrongCount(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := &PresetRow{Name: "A", Blob: []byte("{}")}
	require.NoError(t, s.Save(ctx, a))

	err := s.Reorder(ctx, []int64{a.ID, 999})
	assert.Error(t, err)
}

func TestDeleteThenReorderCompactsNumbers(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var rows []*PresetRow

	for _, name := range []string{"A", "B", "C", "D"} {
		r := &PresetRow{Name: name, Blob: []byte("{}")}
		require.NoError(t, s.Save(ctx, r))
		rows = append(rows, r)
	}

	require.NoError(t, s.Delete(ctx, rows[1].ID)) // delete B

	assert.Equal(t, []int{1, 2, 3}, numbersOf(t, s))
}

func TestDeleteUnknownIsNotFound(t *testing.T) {
	s := openTestStore(t)
	err := s.Delete(context.Background(), 12345)
	assert.Error(t, err)
}

// TestPresetNumberingInvariant is spec.md §8 invariant 1: after any
// sequence of save/delete/reorder followed by select_all, the set of
// numbers is exactly {1..N}.
func TestPresetNumberingInvariant(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := openTestStore(t)
		ctx := context.Background()

		var ids []int64

		ops := rapid.SliceOfN(rapid.IntRange(0, 2), 1, 12).Draw(rt, "ops")

		for _, op := range ops {
			switch {
			case op == 0 || len(ids) == 0:
				r := &PresetRow{Name: "p", Blob: []byte("{}")}
				if err := s.Save(ctx, r); err != nil {
					rt.Fatal(err)
				}

				ids = append(ids, r.ID)
			case op == 1:
				idx := rapid.IntRange(0, len(ids)-1).Draw(rt, "delIdx")
				id := ids[idx]

				if err := s.Delete(ctx, id); err != nil {
					rt.Fatal(err)
				}

				ids = append(ids[:idx], ids[idx+1:]...)
			default:
				// shuffle: reverse the current id order
				reversed := make([]int64, len(ids))
				for i, id := range ids {
					reversed[len(ids)-1-i] = id
				}

				if err := s.Reorder(ctx, reversed); err != nil {
					rt.Fatal(err)
				}
			}
		}

		numbers := numbersOf(t, s)

		want := make([]int, len(numbers))
		for i := range want {
			want[i] = i + 1
		}

		assert.ElementsMatch(t, want, numbers)
	})
}

func TestKVRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	type misc struct {
		Brightness int `json:"brightness"`
	}

	require.NoError(t, s.PutJSON(ctx, "misc", misc{Brightness: 42}))

	var got misc
	require.NoError(t, s.GetJSON(ctx, "misc", &got))
	assert.Equal(t, 42, got.Brightness)

	_, err := s.GetKV(ctx, "nonexistent")
	assert.Error(t, err)
}

func TestDeleteKVRemovesValue(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutKV(ctx, "mapping:pitch", []byte(`[]`)))
	require.NoError(t, s.DeleteKV(ctx, "mapping:pitch"))

	_, err := s.GetKV(ctx, "mapping:pitch")
	assert.Error(t, err)
}

func TestDeleteKVUnknownIsNotFound(t *testing.T) {
	s := openTestStore(t)
	assert.Error(t, s.DeleteKV(context.Background(), "nonexistent"))
}
