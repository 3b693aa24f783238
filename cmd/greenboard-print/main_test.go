package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/book-expert/greenboard-print-service/internal/pdfproc"
)

// TestMergeConfigAndFlags verifies that command-line flags correctly override
// config file settings.
func TestMergeConfigAndFlags(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name            string
		baseConfig      config
		flags           flags
		expectedOptions pdfproc.Options
	}{
		{
			name: "Flags should override all corresponding config values",
			baseConfig: config{
				Paths: configPaths{
					InputDir:  "/config/in",
					OutputDir: "/config/out",
				},
				LogsDir: configLogsDir{GreenboardPrint: ""},
				Settings: configSettings{
					DPI:          200,
					Workers:      4,
					CombinePages: false,
				},
				Processing: configProcessing{},
				Overlay:    configOverlay{},
			},
			flags: flags{
				inputPath:    "/flag/in",
				outputPath:   "/flag/out",
				label:        "calculus-notes",
				dpi:          300,
				workers:      8,
				combinePages: true,
			},
			expectedOptions: pdfproc.Options{
				ProgressBarOutput: nil,
				InputPath:         "/flag/in",
				OutputPath:        "/flag/out",
				Label:             "calculus-notes",
				FontPaths:         nil,
				DPI:               300,
				Workers:           8,
				CombinePages:      true,
			},
		},
		{
			name: "Config values should be used when flags are not provided",
			baseConfig: config{
				Paths: configPaths{
					InputDir:  "/config/in",
					OutputDir: "/config/out",
				},
				LogsDir: configLogsDir{GreenboardPrint: ""},
				Settings: configSettings{
					DPI:          150,
					Workers:      2,
					CombinePages: true,
				},
				Processing: configProcessing{},
				Overlay:    configOverlay{},
			},
			flags: flags{}, // No flags provided.
			expectedOptions: pdfproc.Options{
				ProgressBarOutput: nil,
				InputPath:         "/config/in",
				OutputPath:        "/config/out",
				Label:             "",
				FontPaths:         nil,
				DPI:               150,
				Workers:           2,
				CombinePages:      true,
			},
		},
		{
			name: "Combine-pages flag should enable packing over a config false",
			baseConfig: config{
				Paths:      configPaths{},
				LogsDir:    configLogsDir{GreenboardPrint: ""},
				Settings:   configSettings{CombinePages: false},
				Processing: configProcessing{},
				Overlay:    configOverlay{},
			},
			flags: flags{combinePages: true},
			expectedOptions: pdfproc.Options{
				ProgressBarOutput: nil,
				CombinePages:      true,
			},
		},
		{
			name: "Processing and overlay values from config should be preserved",
			baseConfig: config{
				Paths:    configPaths{},
				LogsDir:  configLogsDir{GreenboardPrint: ""},
				Settings: configSettings{},
				Processing: configProcessing{
					DarkFractionThreshold: 0.6,
					VariationThreshold:    12.5,
					BrightnessThreshold:   25,
					BarMinHeightRatio:     0.5,
					BarMargin:             3,
					NoBarsMaxMargin:       15,
				},
				Overlay: configOverlay{
					FontPaths: []string{"/usr/share/fonts/notes.ttf"},
				},
			},
			flags: flags{},
			expectedOptions: pdfproc.Options{
				ProgressBarOutput:     nil,
				FontPaths:             []string{"/usr/share/fonts/notes.ttf"},
				DarkFractionThreshold: 0.6,
				VariationThreshold:    12.5,
				BrightnessThreshold:   25,
				BarMinHeightRatio:     0.5,
				BarMargin:             3,
				NoBarsMaxMargin:       15,
			},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			options := mergeConfigAndFlags(&testCase.baseConfig, testCase.flags)
			assert.Equal(t, testCase.expectedOptions, options)
		})
	}
}
