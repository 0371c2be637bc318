package util

import (
	"github.com/spf13/viper"
	"testing"
)

func TestGetClientConfigMaxFrame(t *testing.T) {
	t.Cleanup(viper.Reset)

	for _, invalid := range []int{0, -1} {
		viper.Set("transport-max-frame", invalid)
		if _, err := GetClientConfig(); err == nil {
			t.Errorf("Expected an error for transport-max-frame %d", invalid)
		}
	}

	viper.Set("transport-max-frame", 2)
	config, err := GetClientConfig()
	if err != nil {
		t.Fatalf("GetClientConfig failed: %v", err)
	}
	if config.Transport.MaxFrameBytes != 2048 {
		t.Errorf("Expected 2048 max frame bytes, got %d", config.Transport.MaxFrameBytes)
	}
}
