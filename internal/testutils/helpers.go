package testutils

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/aretw0/merits"
	"github.com/aretw0/merits/pkg/family"
	"github.com/stretchr/testify/require"
)

// TestdataDir returns the absolute path of the repository testdata directory.
func TestdataDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "testdata")
}

// Path returns the absolute path of a testdata file.
func Path(name string) string {
	return filepath.Join(TestdataDir(), name)
}

// Sample reads a testdata file. It fails the test immediately on error.
func Sample(t testing.TB, name string) string {
	t.Helper()
	data, err := os.ReadFile(Path(name))
	require.NoError(t, err, "Failed to read testdata %s", name)
	return string(data)
}

// Builtin returns a fresh registry of the built-in families.
func Builtin(t testing.TB) *family.Registry {
	t.Helper()
	reg, err := family.Builtin()
	require.NoError(t, err, "Failed to load built-in families")
	return reg
}

// Converter builds a converter for a built-in family.
func Converter(t testing.TB, name string, opts ...merits.Option) *merits.Converter {
	t.Helper()
	f, err := Builtin(t).Get(name)
	require.NoError(t, err)
	c, err := merits.New(f, opts...)
	require.NoError(t, err)
	return c
}
