package transfer

import (
	"testing"

	"github.com/fjmerc/filesender-client/internal/config"
)

func TestLegacyURL(t *testing.T) {
	ref := FileRef{ID: "42", UID: "a b"}

	tests := []struct {
		name     string
		endpoint string
		security string
		want     string
	}{
		{
			"plain endpoint",
			"/rest.php/file/{file_id}/whole",
			config.ChunkUploadSecurityKey,
			"/rest.php/file/42/whole?iframe_callback=transfer_1_42",
		},
		{
			"key embedded",
			"/rest.php/file/{file_id}/whole?key={key}",
			config.ChunkUploadSecurityKey,
			"/rest.php/file/42/whole?key=a+b&iframe_callback=transfer_1_42",
		},
		{
			"key left alone without key security",
			"/rest.php/file/{file_id}/whole?key={key}",
			config.ChunkUploadSecurityNone,
			"/rest.php/file/42/whole?key={key}&iframe_callback=transfer_1_42",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.LegacyUploadEndpoint = tt.endpoint
			cfg.ChunkUploadSecurity = tt.security

			if got := legacyURL(cfg, ref, CallbackKey("1", "42")); got != tt.want {
				t.Errorf("legacyURL() = %q, want %q", got, tt.want)
			}
		})
	}
}
