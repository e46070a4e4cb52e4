package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableNames(t *testing.T) {
	tests := []struct {
		name     string
		model    interface{ TableName() string }
		expected string
	}{
		{"LabelshotInfo", &LabelshotInfo{}, "labelshot_infos"},
		{"CaptureSession", &CaptureSession{}, "capture_sessions"},
		{"Capture", &Capture{}, "captures"},
		{"CapturedObject", &CapturedObject{}, "captured_objects"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.model.TableName())
		})
	}
}

func TestDatabaseModels(t *testing.T) {
	assert.Len(t, DatabaseModels, 4)
}
