package twilio

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conversn-io/seniorsimple-sub006/internal/entity"
)

func TestLookupPhone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "AC123", user)
		assert.Equal(t, "tok", pass)
		assert.Equal(t, "/PhoneNumbers/+15550102030", r.URL.Path)
		assert.Equal(t, "line_type_intelligence", r.URL.Query().Get("Fields"))
		_, _ = w.Write([]byte(`{
			"phone_number": "+15550102030",
			"national_format": "(555) 010-2030",
			"valid": true,
			"line_type_intelligence": {"type": "mobile", "carrier_name": "Verizon Wireless"}
		}`))
	}))
	defer srv.Close()

	c := NewClient("AC123", "tok", srv.URL+"/", time.Second)
	lookup, err := c.LookupPhone(context.Background(), "+15550102030")

	require.NoError(t, err)
	assert.True(t, lookup.Valid)
	assert.Equal(t, "mobile", lookup.LineType)
	assert.Equal(t, "Verizon Wireless", lookup.Carrier)
	assert.Equal(t, "(555) 010-2030", lookup.NationalFormat)
}

func TestLookupPhoneInvalidNumber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"phone_number":"+15550000000","valid":false,"line_type_intelligence":null}`))
	}))
	defer srv.Close()

	lookup, err := NewClient("AC123", "tok", srv.URL, time.Second).LookupPhone(context.Background(), "+15550000000")
	require.NoError(t, err)
	assert.False(t, lookup.Valid)
	assert.Empty(t, lookup.LineType)
}

func TestLookupPhoneErrors(t *testing.T) {
	cases := []struct {
		status    int
		configErr bool
		valid     bool
		wantErr   bool
	}{
		{http.StatusNotFound, false, false, false},
		{http.StatusUnauthorized, true, false, true},
		{http.StatusServiceUnavailable, false, false, true},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			lookup, err := NewClient("AC123", "tok", srv.URL, time.Second).LookupPhone(context.Background(), "+15550102030")
			if !tc.wantErr {
				require.NoError(t, err)
				assert.Equal(t, tc.valid, lookup.Valid)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tc.configErr, errors.Is(err, entity.ErrNotConfigured))
		})
	}
}

func TestLookupPhoneNotConfigured(t *testing.T) {
	_, err := NewClient("", "", "https://lookups.twilio.com/v2", time.Second).LookupPhone(context.Background(), "+15550102030")
	assert.ErrorIs(t, err, entity.ErrNotConfigured)
}
