package helper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type widget struct{}

func (w *widget) name() string { return GetFuncName() }

func TestGetFuncName(t *testing.T) {
	assert.Equal(t, "TestGetFuncName", GetFuncName())
	assert.Equal(t, "(*widget).name", (&widget{}).name())
}
