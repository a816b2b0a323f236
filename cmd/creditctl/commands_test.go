package main

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseID(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{"42", 42, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseID(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCommandsRejectBadInputBeforeConnecting(t *testing.T) {
	t.Run("charge requires a tenant", func(t *testing.T) {
		cmd := chargeCmd()
		cmd.SetArgs([]string{"--purchase", "10000", "--credits", "1100"})
		cmd.SetOut(io.Discard)
		cmd.SetErr(io.Discard)

		assert.ErrorContains(t, cmd.Execute(), "tenant")
	})

	t.Run("charge rejects a malformed amount", func(t *testing.T) {
		cmd := chargeCmd()
		cmd.SetArgs([]string{"--tenant", "t1", "--purchase", "ten", "--credits", "1100"})
		cmd.SetOut(io.Discard)
		cmd.SetErr(io.Discard)

		assert.ErrorContains(t, cmd.Execute(), "--purchase")
	})

	t.Run("capacity rejects an unknown channel", func(t *testing.T) {
		cmd := capacityCmd()
		cmd.SetArgs([]string{"--tenant", "t1", "--channel", "fax"})
		cmd.SetOut(io.Discard)
		cmd.SetErr(io.Discard)

		assert.ErrorContains(t, cmd.Execute(), "unknown channel")
	})

	t.Run("settle needs exactly one id", func(t *testing.T) {
		cmd := settleCmd()
		cmd.SetArgs([]string{})
		cmd.SetOut(io.Discard)
		cmd.SetErr(io.Discard)

		assert.Error(t, cmd.Execute())
	})
}
