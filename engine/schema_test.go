package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLookup(t *testing.T) {
	reg := DefaultRegistry()

	schema, ok := reg.Lookup("base")
	require.True(t, ok)
	assert.Equal(t, "base_options", schema.SQLName)
	assert.False(t, schema.ReadOnly)

	schema, ok = reg.Lookup("frequency")
	require.True(t, ok)
	assert.True(t, schema.ReadOnly)
	assert.Len(t, schema.Seed, 2)

	_, ok = reg.Lookup("nosuchtable")
	assert.False(t, ok)
}

func TestRegistryAllOrdered(t *testing.T) {
	all := DefaultRegistry().All()
	require.NotEmpty(t, all)
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].Name, all[i].Name)
	}
}

func TestDefaultRegistryRefsResolve(t *testing.T) {
	reg := DefaultRegistry()
	for _, schema := range reg.All() {
		for _, c := range schema.Columns {
			if c.Kind != ColRefValue && c.Kind != ColRefID {
				continue
			}
			ref, ok := reg.Lookup(c.RefTable)
			require.True(t, ok, "table %s column %s", schema.Name, c.Name)
			if c.Kind == ColRefValue {
				require.NotNil(t, ref.FindColumn(c.RefColumn))
			}
		}
	}
}
