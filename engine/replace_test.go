package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestReplaceAllAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	inserted, err := s.ReplaceAll(ctx, "base", []RowValues{
		{"name": "Steel", "price": 120.5},
		{"name": "Concrete", "price": 80},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	rows, err := s.List(ctx, "base")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	// sorted by name, Concrete first
	assert.Equal(t, "Concrete", rows[0]["name"])
	assert.Equal(t, 80.0, rows[0]["price"])
	assert.Equal(t, "Steel", rows[1]["name"])
	assert.Equal(t, 120.5, rows[1]["price"])
	assert.NotEqual(t, rows[0]["id"], rows[1]["id"])
}

func TestReplaceAllReplacesWholeTable(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.ReplaceAll(ctx, "color", []RowValues{
		{"name": "Red", "price": 1},
		{"name": "Blue", "price": 2},
	})
	require.NoError(t, err)

	inserted, err := s.ReplaceAll(ctx, "color", []RowValues{
		{"name": "Green", "price": 3},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	rows, err := s.List(ctx, "color")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Green", rows[0]["name"])
}

func TestReplaceAllInvalidRowKeepsTable(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.ReplaceAll(ctx, "base", []RowValues{
		{"name": "Steel", "price": 120.5},
	})
	require.NoError(t, err)

	_, err = s.ReplaceAll(ctx, "base", []RowValues{
		{"name": "Concrete", "price": 80},
		{"name": "", "price": 10},
	})
	require.Error(t, err)
	assert.Equal(t, "invalid_name", Code(err))

	rows, err := s.List(ctx, "base")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Steel", rows[0]["name"])
}

func TestReplaceAllEmptyEmptiesTable(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.ReplaceAll(ctx, "radiator", []RowValues{
		{"name": "R1", "price": 5},
	})
	require.NoError(t, err)

	inserted, err := s.ReplaceAll(ctx, "radiator", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)

	rows, err := s.List(ctx, "radiator")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReplaceAllReadOnlyTable(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.ReplaceAll(ctx, "frequency", []RowValues{
		{"value": "50hz"},
	})
	require.Error(t, err)
	assert.Equal(t, "readonly", Code(err))

	rows, err := s.List(ctx, "frequency")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestReplaceAllUnknownTable(t *testing.T) {
	s := newTestStore(t)

	_, err := s.ReplaceAll(context.Background(), "nosuchtable", nil)
	require.Error(t, err)
	assert.Equal(t, "table_not_found", Code(err))
}

func TestReplaceAllNilRow(t *testing.T) {
	s := newTestStore(t)

	_, err := s.ReplaceAll(context.Background(), "base", []RowValues{nil})
	require.Error(t, err)
	assert.Equal(t, "invalid_rows", Code(err))
}

func TestReplaceAllRefByValue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	inserted, err := s.ReplaceAll(ctx, "accessory", []RowValues{
		{"name": "Heater", "frequency": " 50hz ", "price": 30},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	_, err = s.ReplaceAll(ctx, "accessory", []RowValues{
		{"name": "Heater", "frequency": "40hz", "price": 30},
	})
	require.Error(t, err)
	assert.Equal(t, "invalid_frequency", Code(err))

	// the failed replace must not have touched the table
	rows, err := s.List(ctx, "accessory")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "50hz", rows[0]["frequency"])
}

func TestReplaceAllRefByID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.ReplaceAll(ctx, "generator", []RowValues{
		{"category": "open", "power": "100kva", "price": 5000},
	})
	require.NoError(t, err)
	gens, err := s.List(ctx, "generator")
	require.NoError(t, err)
	require.Len(t, gens, 1)
	genID := gens[0]["id"].(int64)

	inserted, err := s.ReplaceAll(ctx, "genaccessory", []RowValues{
		{"generator_id": float64(genID), "name": "Fuel tank", "price": 250},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	_, err = s.ReplaceAll(ctx, "genaccessory", []RowValues{
		{"generator_id": float64(genID + 1000), "name": "Fuel tank", "price": 250},
	})
	require.Error(t, err)
	assert.Equal(t, "invalid_generator_id", Code(err))
}

func TestReplaceAllParentClearsChildren(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.ReplaceAll(ctx, "generator", []RowValues{
		{"category": "open", "power": "100kva", "price": 5000},
	})
	require.NoError(t, err)
	gens, err := s.List(ctx, "generator")
	require.NoError(t, err)
	require.Len(t, gens, 1)

	_, err = s.ReplaceAll(ctx, "genaccessory", []RowValues{
		{"generator_id": float64(gens[0]["id"].(int64)), "name": "Fuel tank", "price": 250},
	})
	require.NoError(t, err)

	// replacing the parent must succeed and leave exactly the new rows
	inserted, err := s.ReplaceAll(ctx, "generator", []RowValues{
		{"category": "soundproof", "power": "200kva", "price": 9000},
		{"category": "soundproof", "power": "60kva", "price": 4000},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	gens, err = s.List(ctx, "generator")
	require.NoError(t, err)
	require.Len(t, gens, 2)
	assert.Equal(t, "200kva", gens[0]["power"])

	// dependent accessories referenced rows that no longer exist
	accs, err := s.List(ctx, "genaccessory")
	require.NoError(t, err)
	assert.Empty(t, accs)
}

func TestDeleteRow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.ReplaceAll(ctx, "control", []RowValues{
		{"name": "Panel A", "price": 12},
		{"name": "Panel B", "price": 15},
	})
	require.NoError(t, err)
	rows, err := s.List(ctx, "control")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	id := rows[0]["id"].(int64)

	found, err := s.DeleteRow(ctx, "control", id)
	require.NoError(t, err)
	assert.True(t, found)

	found, err = s.DeleteRow(ctx, "control", id)
	require.NoError(t, err)
	assert.False(t, found)

	rows, err = s.List(ctx, "control")
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	_, err = s.DeleteRow(ctx, "frequency", 1)
	require.Error(t, err)
	assert.Equal(t, "readonly", Code(err))

	_, err = s.DeleteRow(ctx, "nosuchtable", 1)
	require.Error(t, err)
	assert.Equal(t, "table_not_found", Code(err))
}

func TestConcurrentReplaceStaysConsistent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sets := [][]RowValues{
		{
			{"name": "Steel", "price": 120.5},
			{"name": "Concrete", "price": 80},
		},
		{
			{"name": "Alloy", "price": 200},
			{"name": "Wood", "price": 10},
			{"name": "Brick", "price": 40},
		},
	}

	var g errgroup.Group
	for i := 0; i < 10; i++ {
		set := sets[i%len(sets)]
		g.Go(func() error {
			n, err := s.ReplaceAll(ctx, "base", set)
			if err != nil {
				return err
			}
			if n != len(set) {
				return fmt.Errorf("inserted %d, want %d", n, len(set))
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	// readers must see exactly one of the two committed sets, never a mix
	rows, err := s.List(ctx, "base")
	require.NoError(t, err)
	names := make(map[string]bool, len(rows))
	for _, r := range rows {
		names[r["name"].(string)] = true
	}
	switch len(rows) {
	case 2:
		assert.True(t, names["Steel"] && names["Concrete"], "rows: %v", rows)
	case 3:
		assert.True(t, names["Alloy"] && names["Wood"] && names["Brick"], "rows: %v", rows)
	default:
		t.Fatalf("unexpected row count %d: %v", len(rows), rows)
	}
}

func TestConcurrentReplaceRefTable(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// accessory validates its frequency reference with reads before the
	// first write, so writers must still queue instead of failing
	sets := [][]RowValues{
		{
			{"name": "Heater", "frequency": "50hz", "price": 30},
			{"name": "Cooler", "frequency": "60hz", "price": 45},
		},
		{
			{"name": "Fan", "frequency": "50hz", "price": 12},
			{"name": "Pump", "frequency": "60hz", "price": 80},
			{"name": "Filter", "frequency": "50hz", "price": 8},
		},
	}

	var g errgroup.Group
	for i := 0; i < 8; i++ {
		set := sets[i%len(sets)]
		g.Go(func() error {
			for j := 0; j < 25; j++ {
				n, err := s.ReplaceAll(ctx, "accessory", set)
				if err != nil {
					return err
				}
				if n != len(set) {
					return fmt.Errorf("inserted %d, want %d", n, len(set))
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	rows, err := s.List(ctx, "accessory")
	require.NoError(t, err)
	names := make(map[string]bool, len(rows))
	for _, r := range rows {
		names[r["name"].(string)] = true
	}
	switch len(rows) {
	case 2:
		assert.True(t, names["Heater"] && names["Cooler"], "rows: %v", rows)
	case 3:
		assert.True(t, names["Fan"] && names["Pump"] && names["Filter"], "rows: %v", rows)
	default:
		t.Fatalf("unexpected row count %d: %v", len(rows), rows)
	}
}
