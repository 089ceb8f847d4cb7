package datalogger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/frame-datalogger/pkg/config"
)

func TestFilename(t *testing.T) {
	tests := []struct {
		name string
		mask string
		seq  uint64
		ts   int64
		want string
	}{
		{"first", "frame_", 0, 1000, "frame_000000"},
		{"padded", "frame_", 42, 1000, "frame_000042"},
		{"wider than padding", "frame_", 1234567, 0, "frame_1234567"},
		{"empty mask", "", 7, 0, "000007"},
		{"timestamp", config.TimestampMask, 42, 1700000000123, "1700000000123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Filename(tt.mask, tt.seq, tt.ts))
			assert.Equal(t, Filename(tt.mask, tt.seq, tt.ts), Filename(tt.mask, tt.seq, tt.ts))
		})
	}
}

func TestResumeSequence(t *testing.T) {
	tests := []struct {
		name  string
		mask  string
		names []string
		want  uint64
	}{
		{"empty", "frame_", nil, 0},
		{"continues after highest", "frame_", []string{"frame_000000", "frame_000007", "frame_000003"}, 8},
		{"ignores other masks", "frame_", []string{"cam_000100", "frame_000001"}, 2},
		{"ignores non digits", "frame_", []string{"frame_latest", "frame_00001x"}, 0},
		{"ignores short suffix", "frame_", []string{"frame_12"}, 0},
		{"timestamp mask", config.TimestampMask, []string{"1000", "2000"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResumeSequence(tt.mask, tt.names))
		})
	}
}
