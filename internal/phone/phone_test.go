package phone

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizer_CanonicalForms(t *testing.T) {
	n := NewNormalizer("92", "3")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"ten digit national", "3001112222", "+923001112222"},
		{"eleven digit with leading zero", "03001112222", "+923001112222"},
		{"full length with country code", "923001112222", "+923001112222"},
		{"plus and spaces", "+92 300 111 2222", "+923001112222"},
		{"dashes", "0300-1112222", "+923001112222"},
		{"parens and dots", "(0300) 111.2222", "+923001112222"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := n.Normalize(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizer_Rejects(t *testing.T) {
	n := NewNormalizer("92", "3")

	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"letters only", "call me"},
		{"too short", "300111"},
		{"too long", "9230011122223333"},
		{"ten digits wrong prefix", "4001112222"},
		{"eleven digits wrong pattern", "13001112222"},
		{"full length wrong country code", "913001112222"},
		{"nine digits", "300111222"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := n.Normalize(tt.in)
			assert.ErrorIs(t, err, ErrInvalidNumber)
		})
	}
}

// Every valid 10-digit national number must normalize to the same
// canonical value with and without the leading zero, and noise around
// the digits must not change the result.
func TestNormalizer_EquivalenceProperty(t *testing.T) {
	n := NewNormalizer("92", "3")
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		national := fmt.Sprintf("3%09d", rng.Intn(1_000_000_000))

		plain, err := n.Normalize(national)
		require.NoError(t, err)

		zeroed, err := n.Normalize("0" + national)
		require.NoError(t, err)

		full, err := n.Normalize("92" + national)
		require.NoError(t, err)

		noisy, err := n.Normalize(" +92-" + national[:3] + " " + national[3:] + " ")
		require.NoError(t, err)

		want := "+92" + national
		assert.Equal(t, want, plain)
		assert.Equal(t, want, zeroed)
		assert.Equal(t, want, full)
		assert.Equal(t, want, noisy)
	}
}

func TestNormalizer_LengthProperty(t *testing.T) {
	n := NewNormalizer("92", "3")

	// Digit-only lengths other than 10, 11 and 12 never normalize.
	for l := 0; l < 20; l++ {
		if l == 10 || l == 11 || l == 12 {
			continue
		}
		in := ""
		for i := 0; i < l; i++ {
			in += "3"
		}
		_, err := n.Normalize(in)
		assert.ErrorIs(t, err, ErrInvalidNumber, "len=%d", l)
	}
}

func TestNormalizer_ConfiguredCountry(t *testing.T) {
	n := NewNormalizer("1", "5")

	got, err := n.Normalize("5551234567")
	require.NoError(t, err)
	assert.Equal(t, "+15551234567", got)

	got, err = n.Normalize("05551234567")
	require.NoError(t, err)
	assert.Equal(t, "+15551234567", got)

	got, err = n.Normalize("15551234567")
	require.NoError(t, err)
	assert.Equal(t, "+15551234567", got)
}
