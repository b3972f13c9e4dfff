package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRankIPv4(t *testing.T) {
	got := rankIPv4([]string{"127.0.0.1", "172.17.0.1", "100.64.1.2", "10.0.0.4", "192.168.1.9"})
	assert.Equal(t, []string{"10.0.0.4", "192.168.1.9", "100.64.1.2"}, got)
	assert.Empty(t, rankIPv4([]string{"127.0.0.1"}))
}

func TestIsLoopback(t *testing.T) {
	assert.True(t, IsLoopback("127.0.0.1"))
	assert.True(t, IsLoopback("127.0.0.1:5050"))
	assert.True(t, IsLoopback("::1"))
	assert.True(t, IsLoopback("[::1]:80"))
	assert.False(t, IsLoopback("192.168.1.9"))
	assert.False(t, IsLoopback("not-an-ip"))
}

func TestPrimaryIPIsNeverEmpty(t *testing.T) {
	assert.NotEmpty(t, PrimaryIP())
}
