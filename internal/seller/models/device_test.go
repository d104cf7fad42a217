package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescribeDevice(t *testing.T) {
	assert.Equal(t, "Unknown Device", DescribeDevice(""))
	assert.Equal(t, "Unknown Device", DescribeDevice("   "))

	chrome := DescribeDevice("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	assert.Contains(t, chrome, "Chrome")
	assert.Contains(t, chrome, " on ")

	iphone := DescribeDevice("Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1")
	assert.Contains(t, iphone, "iPhone")

	odd := DescribeDevice("Unknown/1.0")
	assert.NotEmpty(t, odd)
	assert.Equal(t, odd, strings.TrimSpace(odd))
}
