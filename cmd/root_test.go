package cmd

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestNewUIHonorsNoColor(t *testing.T) {
	t.Cleanup(viper.Reset)

	viper.Set("no_color", false)
	assert.True(t, newUI().Colors())

	viper.Set("no_color", true)
	assert.False(t, newUI().Colors())
}
