package ports

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryMirrorGetAfterSet(t *testing.T) {
	m := NewMemoryMirror()

	_, ok := m.GetSync("missing")
	require.False(t, ok)

	m.SetSync("k", []byte("v"))
	got, ok := m.GetSync("k")
	require.True(t, ok)
	require.Equal(t, []byte("v"), got)

	m.Delete("k")
	_, ok = m.GetSync("k")
	require.False(t, ok)
}

func TestMemoryMirrorTTLExpiry(t *testing.T) {
	m := NewMemoryMirror()
	base := time.Now()
	m.now = func() time.Time { return base }

	m.SetWithTTL("k", []byte("v"), time.Minute)
	_, ok := m.GetSync("k")
	require.True(t, ok)

	m.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, ok = m.GetSync("k")
	require.False(t, ok)
	require.Equal(t, 0, m.Len())
}

func TestMemoryMirrorNoTTLNeverExpires(t *testing.T) {
	m := NewMemoryMirror()
	base := time.Now()
	m.now = func() time.Time { return base }

	m.SetSync("k", []byte("v"))
	m.now = func() time.Time { return base.Add(24 * time.Hour) }
	_, ok := m.GetSync("k")
	require.True(t, ok)
}

func TestErrorKindsMatchWithErrorsAs(t *testing.T) {
	cases := []struct {
		err    error
		target any
	}{
		{NewValidationError("severity", "unknown value"), new(*ValidationError)},
		{NewNotFoundError("function", "pkg.f"), new(*NotFoundError)},
		{NewResourceError("span pool", 100_000), new(*ResourceError)},
		{NewTimeoutError("lsp hover"), new(*TimeoutError)},
		{NewExternalError("redis", errors.New("conn refused")), new(*ExternalError)},
		{NewSchemaError("source_id"), new(*SchemaError)},
	}
	for _, tc := range cases {
		wrapped := fmt.Errorf("outer: %w", tc.err)
		switch target := tc.target.(type) {
		case **ValidationError:
			require.True(t, errors.As(wrapped, target))
		case **NotFoundError:
			require.True(t, errors.As(wrapped, target))
		case **ResourceError:
			require.True(t, errors.As(wrapped, target))
		case **TimeoutError:
			require.True(t, errors.As(wrapped, target))
		case **ExternalError:
			require.True(t, errors.As(wrapped, target))
		case **SchemaError:
			require.True(t, errors.As(wrapped, target))
		}
		require.NotEmpty(t, tc.err.Error())
	}
}

func TestExternalErrorUnwraps(t *testing.T) {
	root := errors.New("conn refused")
	err := NewExternalError("redis", root)
	require.ErrorIs(t, err, root)
}
