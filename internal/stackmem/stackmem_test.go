//go:build linux || darwin

package stackmem

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func uintptrOf(b *byte) uintptr {
	return uintptr(unsafe.Pointer(b))
}

func TestNewRejectsNonPowerOfTwo(t *testing.T) {
	_, err := New(3000)
	require.ErrorIs(t, err, ErrNotPowerOfTwo)
}

func TestNewAlignsAndSizes(t *testing.T) {
	const size = 1 << 16

	r, err := New(size)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, r.Close()) })

	require.Equal(t, uintptr(0), r.Base()%size, "region base must be size-aligned")
	require.Less(t, len(r.Data()), size, "usable data excludes the guard page")
}

func TestMaskRecoversBase(t *testing.T) {
	const size = 1 << 16

	r, err := New(size)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, r.Close()) })

	data := r.Data()
	require.NotEmpty(t, data)

	mid := &data[len(data)/2]
	addr := uintptrOf(mid)
	require.Equal(t, r.Base(), r.OwnerBase(addr))
}
