package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"+54 9 11 1234-5678", "5491112345678", false},
		{"(011) 4444-5555", "01144445555", false},
		{"12345", "12345", false},
		{"123", "", true},
		{"+1 (2) 3", "", true},
		{"", "", true},
		{"54 11 abcd 5678", "", true},
		{"11.1234.5678", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := NormalizePhone(tc.in)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPhone)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestWhatsAppLink_EncodesText(t *testing.T) {
	link, err := WhatsAppLink("+54 9 11 1234-5678", "Hola Ana & co\nEstado actual: Comprado")
	require.NoError(t, err)
	assert.Equal(t,
		"https://wa.me/5491112345678?text=Hola%20Ana%20%26%20co%0AEstado%20actual%3A%20Comprado",
		link)
}

func TestWhatsAppLink_InvalidPhone(t *testing.T) {
	_, err := WhatsAppLink("123", "x")
	assert.ErrorIs(t, err, ErrInvalidPhone)
}
