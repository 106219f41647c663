package context

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGuti(tmsi uint32) GUTI {
	return GUTI{
		Gummei: Gummei{MCC: "001", MNC: "01", MMEGroupID: 1, MMECode: 1},
		MTmsi:  tmsi,
	}
}

func TestStoreInsertAndLookup(t *testing.T) {
	s := NewStore()
	ctx := NewEMMContext(7)
	g := testGuti(1234)
	ctx.Guti = &g
	s.Insert(ctx)

	got, ok := s.GetByUeID(7)
	require.True(t, ok)
	assert.Same(t, ctx, got)

	got, ok = s.GetByGuti(g)
	require.True(t, ok)
	assert.Same(t, ctx, got)
}

func TestStoreInsertDuplicateUeIDIsNoop(t *testing.T) {
	s := NewStore()
	first := NewEMMContext(7)
	first.Imsi = "first"
	s.Insert(first)

	second := NewEMMContext(7)
	second.Imsi = "second"
	s.Insert(second)

	got, ok := s.GetByUeID(7)
	require.True(t, ok)
	assert.Equal(t, "first", got.Imsi)
}

func TestStoreGutiIndexOnlyWhenPresent(t *testing.T) {
	s := NewStore()
	ctx := NewEMMContext(7)
	s.Insert(ctx)

	g := testGuti(42)
	_, ok := s.GetByGuti(g)
	assert.False(t, ok)

	s.IndexGuti(ctx, nil, &g)
	ctx.Guti = &g
	got, ok := s.GetByGuti(g)
	require.True(t, ok)
	assert.Same(t, ctx, got)
}

func TestStoreRebindUeIDNotifiesObserverAndPreservesState(t *testing.T) {
	s := NewStore()
	ctx := NewEMMContext(7)
	ctx.Imsi = "001010000000001"
	s.Insert(ctx)

	var notified [2]int64
	s.OnUeIDChange(func(old, new int64) {
		notified[0] = old
		notified[1] = new
	})

	s.RebindUeID(ctx, 12)

	assert.Equal(t, int64(7), notified[0])
	assert.Equal(t, int64(12), notified[1])
	assert.Equal(t, int64(12), ctx.UeID)
	assert.Equal(t, "001010000000001", ctx.Imsi)

	_, ok := s.GetByUeID(7)
	assert.False(t, ok)
	got, ok := s.GetByUeID(12)
	require.True(t, ok)
	assert.Same(t, ctx, got)
}

func TestStoreRemoveDropsBothIndices(t *testing.T) {
	s := NewStore()
	ctx := NewEMMContext(7)
	g := testGuti(5)
	ctx.Guti = &g
	s.Insert(ctx)

	s.Remove(ctx)

	_, ok := s.GetByUeID(7)
	assert.False(t, ok)
	_, ok = s.GetByGuti(g)
	assert.False(t, ok)
}
