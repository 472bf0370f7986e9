package discovery

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validReply = "EGO-N,MAC=00:1E:C0:11:22:33,PORT=80,IPADDR=192.168.1.20,MASK=255.255.255.0,GATEWAY=192.168.1.1,DNS1=192.168.1.1,VERSION=1.07"

func TestParseReply_Valid(t *testing.T) {
	desc, err := ParseReply(validReply)
	require.NoError(t, err)

	assert.Equal(t, "00:1E:C0:11:22:33", desc.MAC)
	assert.Equal(t, "80", desc.Port)
	assert.Equal(t, "192.168.1.20", desc.IPAddr)
	assert.Equal(t, "255.255.255.0", desc.Mask)
	assert.Equal(t, "192.168.1.1", desc.Gateway)
	assert.Equal(t, "192.168.1.1", desc.DNS1)
	assert.Equal(t, "1.07", desc.Version)
	assert.True(t, desc.IP.IsValid())
}

func TestParseReply_TrailingGarbageTrimmed(t *testing.T) {
	desc, err := ParseReply(validReply + "\r\n\x00")
	require.NoError(t, err)
	assert.Equal(t, "1.07", desc.Version)
}

func TestParseReply_ExtraKeysAccepted(t *testing.T) {
	desc, err := ParseReply(validReply + ",DNS2=8.8.8.8")
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.20", desc.IPAddr)
}

func TestParseReply_Malformed(t *testing.T) {
	tests := []struct {
		name string
		msg  string
	}{
		{"echoed probe", ProbeMessage},
		{"empty", ""},
		{"wrong prefix", "EGO-X,MAC=1,PORT=80,IPADDR=10.0.0.1,MASK=a,GATEWAY=b,DNS1=c,VERSION=d"},
		{"too few pairs", "EGO-N,MAC=00:1E:C0:11:22:33,PORT=80,IPADDR=192.168.1.20"},
		{"missing VERSION", "EGO-N,MAC=00:1E:C0:11:22:33,PORT=80,IPADDR=192.168.1.20,MASK=255.255.255.0,GATEWAY=192.168.1.1,DNS1=192.168.1.1,DNS2=8.8.8.8"},
		{"invalid IPADDR", "EGO-N,MAC=00:1E:C0:11:22:33,PORT=80,IPADDR=not-an-ip,MASK=255.255.255.0,GATEWAY=192.168.1.1,DNS1=192.168.1.1,VERSION=1.07"},
		{"pairs without values", "EGO-N,MAC,PORT,IPADDR,MASK,GATEWAY,DNS1,VERSION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc, err := ParseReply(tt.msg)
			assert.Nil(t, desc)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedReply), "error should wrap ErrMalformedReply: %v", err)
		})
	}
}

func TestNewDescriptor(t *testing.T) {
	desc, err := NewDescriptor(" 10.0.0.5 ")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", desc.IPAddr)
	assert.Equal(t, "Egon module at 10.0.0.5", desc.String())

	_, err = NewDescriptor("module.local")
	assert.Error(t, err)
}
