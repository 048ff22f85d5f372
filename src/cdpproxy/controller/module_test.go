package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/fx"
)

func TestModule(t *testing.T) {
	assert.NotPanics(t, func() { fx.Options(Module) })
}
