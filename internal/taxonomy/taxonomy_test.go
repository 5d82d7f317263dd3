package taxonomy

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gastos/internal/core"
)

func TestDefaultOrder(t *testing.T) {
	tx := Default()
	top := tx.ListTopLevel()
	require.Len(t, top, 10)
	assert.Equal(t, "Casa", top[0])
	assert.Equal(t, "Salidas", top[9])
	assert.Equal(t, []string{"Seguro", "Patente", "Mantenimiento"}, tx.ListSubcategories("Autos"))
	assert.Empty(t, tx.ListSubcategories("Supermercado"))
	assert.Empty(t, tx.ListSubcategories("Nope"))
}

func TestListSubcategoriesReturnsCopy(t *testing.T) {
	tx := Default()
	subs := tx.ListSubcategories("Casa")
	subs[0] = "mutated"
	assert.Equal(t, "Alquiler", tx.ListSubcategories("Casa")[0])
}

func TestRegisterCustom(t *testing.T) {
	tx := Default()

	require.NoError(t, tx.RegisterCustom("  Vacaciones "))
	top := tx.ListTopLevel()
	assert.Equal(t, "Vacaciones", top[len(top)-1])
	assert.Empty(t, tx.ListSubcategories("Vacaciones"))

	require.NoError(t, tx.RegisterCustom("Vacaciones"))
	require.NoError(t, tx.RegisterCustom("Casa"))
	assert.Len(t, tx.ListTopLevel(), 11, "registering existing names is idempotent")

	err := tx.RegisterCustom("   ")
	assert.ErrorIs(t, err, ErrInvalidName)
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestValidate(t *testing.T) {
	tx := Default()
	require.NoError(t, tx.RegisterCustom("Vacaciones"))

	cases := []struct {
		cat, sub string
		ok       bool
	}{
		{"Casa", "Alquiler", true},
		{"Casa", "", true},
		{"Juana", "  ", true},
		{"Casa", "Luz", false},
		{"Supermercado", "", true},
		{"Supermercado", "Carne", false},
		{"Vacaciones", "", true},
		{"Unknown", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		err := tx.Validate(tc.cat, tc.sub)
		if tc.ok {
			assert.NoError(t, err, "%s/%s", tc.cat, tc.sub)
		} else {
			assert.ErrorIs(t, err, core.ErrValidation, "%s/%s", tc.cat, tc.sub)
		}
	}
}

func TestCheckName(t *testing.T) {
	name, err := CheckName("  Viajes ")
	require.NoError(t, err)
	assert.Equal(t, "Viajes", name)

	_, err = CheckName(" ")
	assert.ErrorIs(t, err, ErrInvalidName)
	_, err = CheckName("Playa - Sombrilla")
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestCloneIsIndependent(t *testing.T) {
	tx := Default()
	require.NoError(t, tx.RegisterCustom("Vacaciones"))

	c := tx.Clone()
	require.NoError(t, c.RegisterCustom("Viajes"))
	assert.True(t, c.Has("Vacaciones"))
	assert.True(t, c.Snapshot()[10].Custom)
	assert.False(t, tx.Has("Viajes"))
	assert.Equal(t, []string{"Alquiler", "Expensas", "Servicio Limpieza", "Otros"}, c.ListSubcategories("Casa"))
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	tx := Default()
	snap := tx.Snapshot()
	snap[0].Subcategories[0] = "mutated"
	snap[0].Name = "mutated"
	assert.Equal(t, "Casa", tx.Snapshot()[0].Name)
	assert.Equal(t, "Alquiler", tx.Snapshot()[0].Subcategories[0])
}

func TestConcurrentRegister(t *testing.T) {
	tx := Default()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = tx.RegisterCustom("Viajes")
			_ = tx.ListTopLevel()
		}()
	}
	wg.Wait()
	assert.Len(t, tx.ListTopLevel(), 11)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taxonomy.yaml")
	doc := "categories:\n  - name: Casa\n    subcategories: [Alquiler, Luz]\n  - name: Comida\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	tx, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Casa", "Comida"}, tx.ListTopLevel())
	assert.Equal(t, []string{"Alquiler", "Luz"}, tx.ListSubcategories("Casa"))

	tx, err = LoadFile("")
	require.NoError(t, err)
	assert.Len(t, tx.ListTopLevel(), 10)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestMarshalSeedRoundTrip(t *testing.T) {
	data, err := MarshalSeed(DefaultSeed())
	require.NoError(t, err)
	seed, err := ParseSeed(data)
	require.NoError(t, err)
	assert.Equal(t, Default().ListTopLevel(), New(seed).ListTopLevel())
}
