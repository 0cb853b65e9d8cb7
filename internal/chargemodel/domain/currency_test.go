package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveCurrency(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		overrides map[string]int32
		want      Currency
		wantErr   bool
	}{
		{name: "default", code: "", want: Currency{Code: "USD", Exponent: 2}},
		{name: "lower case", code: "eur", want: Currency{Code: "EUR", Exponent: 2}},
		{name: "zero decimal", code: "JPY", want: Currency{Code: "JPY", Exponent: 0}},
		{name: "three decimal", code: "KWD", want: Currency{Code: "KWD", Exponent: 3}},
		{name: "unlisted", code: "XYZ", want: Currency{Code: "XYZ", Exponent: 2}},
		{name: "override", code: "IDR", overrides: map[string]int32{"IDR": 0}, want: Currency{Code: "IDR", Exponent: 0}},
		{name: "override out of range", code: "IDR", overrides: map[string]int32{"IDR": 9}, wantErr: true},
		{name: "malformed", code: "DOLLAR", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveCurrency(tt.code, tt.overrides)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidCurrency)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
