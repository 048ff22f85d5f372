package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestSession(t *testing.T) {
	m := Session{Platform: "android"}
	assert.Equal(t, "android", m.Platform)
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
