// Copyright 2025 Arcade Team
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestDefaultConf(t *testing.T) {
	conf := SetDefaults()

	if conf.Output != "stdout" {
		t.Errorf("expected output to be stdout, got %s", conf.Output)
	}
	if conf.Level != "INFO" {
		t.Errorf("expected level to be INFO, got %s", conf.Level)
	}
	if conf.KeepHours != 7 {
		t.Errorf("expected KeepHours to be 7, got %d", conf.KeepHours)
	}
}

func TestConf_Validate(t *testing.T) {
	tests := []struct {
		name    string
		conf    *Conf
		wantErr bool
	}{
		{
			name:    "valid stdout config",
			conf:    &Conf{Output: "stdout", Level: "INFO"},
			wantErr: false,
		},
		{
			name:    "invalid file config - missing path",
			conf:    &Conf{Output: "file", Level: "INFO"},
			wantErr: true,
		},
		{
			name:    "file config with auto-correction",
			conf:    &Conf{Output: "file", Path: "/tmp/logs", Level: "INFO"},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.conf.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && tt.conf.Output == "file" {
				if tt.conf.RotateSize <= 0 || tt.conf.RotateNum <= 0 || tt.conf.KeepHours <= 0 {
					t.Errorf("rotation settings not corrected: %+v", tt.conf)
				}
			}
		})
	}
}

func TestNewLog_File(t *testing.T) {
	tmpDir := t.TempDir()

	conf := &Conf{
		Output:     "file",
		Path:       tmpDir,
		Filename:   "test.log",
		Level:      "INFO",
		KeepHours:  1,
		RotateSize: 1,
		RotateNum:  3,
	}

	logger, err := NewLog(conf)
	if err != nil {
		t.Fatalf("NewLog() error = %v", err)
	}
	logger.Info("test message 1")
	logger.Warn("test message 2")
	_ = logger.Sync()

	logFile := filepath.Join(tmpDir, "test.log")
	content, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if len(content) == 0 {
		t.Error("log file should not be empty")
	}
}

func TestGlobalFunctions_BeforeInit(t *testing.T) {
	// the package starts with a no-op logger, so these must not panic
	Info("info")
	Infow("infow", "k", "v")
	Warnw("warnw", "k", 1)
	Errorw("errorw", "err", "boom")
}

func TestNop(t *testing.T) {
	l := Nop()
	if l.Log == nil {
		t.Fatal("Nop logger should carry a sugared logger")
	}
	l.With("run", "01H").Log.Infow("discarded")

	var zero Logger
	if zero.With("k", "v").Log != nil {
		t.Error("With on a zero Logger should stay zero")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zapcore.Level
	}{
		{"DEBUG", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"WARN", zapcore.WarnLevel},
		{"WARNING", zapcore.WarnLevel},
		{"ERROR", zapcore.ErrorLevel},
		{"FATAL", zapcore.FatalLevel},
		{"INVALID", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if result := parseLogLevel(tt.input); result != tt.expected {
				t.Errorf("parseLogLevel(%s) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}
