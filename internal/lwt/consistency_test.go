package lwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConsistency(t *testing.T) {
	tests := []struct {
		in   string
		want Consistency
	}{
		{"QUORUM", Quorum},
		{"quorum", Quorum},
		{"  local_quorum ", LocalQuorum},
		{"ALL", All},
		{"one", One},
		{"EACH_QUORUM", EachQuorum},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseConsistency(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseConsistency_Invalid(t *testing.T) {
	for _, in := range []string{"", "SERIAL", "MAJORITY", "QUORUM2"} {
		_, err := ParseConsistency(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestConsistency_UnmarshalText(t *testing.T) {
	var c Consistency
	require.NoError(t, c.UnmarshalText([]byte("local_one")))
	assert.Equal(t, LocalOne, c)

	assert.Error(t, c.UnmarshalText([]byte("bogus")))
	assert.Equal(t, LocalOne, c, "failed parse leaves the value untouched")
}
