package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
)

func TestInitModes(t *testing.T) {
	tests := []struct {
		debug, human bool
		wantLevel    zerolog.Level
	}{
		{false, false, zerolog.InfoLevel},
		{true, false, zerolog.DebugLevel},
		{false, true, zerolog.InfoLevel},
		{true, true, zerolog.DebugLevel},
	}

	for _, tt := range tests {
		Init(tt.debug, tt.human)
		if got := zerolog.GlobalLevel(); got != tt.wantLevel {
			t.Errorf("Init(%v, %v): level = %v, want %v", tt.debug, tt.human, got, tt.wantLevel)
		}
		if IsPrettyMode() != tt.human {
			t.Errorf("Init(%v, %v): pretty = %v", tt.debug, tt.human, IsPrettyMode())
		}
		L().Debug().Msg("init mode check")
	}

	Init(false, false)
}

func TestWithPhase(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))
	defer Init(false, false)

	log := WithPhase("ingest")
	log.Info().Msg("test message")

	if !bytes.Contains(buf.Bytes(), []byte(`"phase":"ingest"`)) {
		t.Errorf("expected phase field in output, got: %s", buf.String())
	}
}

func TestSetLogger(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf).With().Str("custom", "field").Logger())
	defer Init(false, false)

	L().Info().Msg("test")

	if !bytes.Contains(buf.Bytes(), []byte(`"custom":"field"`)) {
		t.Errorf("expected custom field in output, got: %s", buf.String())
	}
}
