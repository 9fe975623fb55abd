// Package constants defines application-wide constants and version information.
package constants

import (
	"runtime"
	"time"
)

// Version holds the application version information
const Version = "1.0-" + runtime.GOOS + "/" + runtime.GOARCH

// Fixed device configuration. These are not runtime-configurable.
const (
	// NumInputs is the number of sensor channels fed to the classifier.
	NumInputs = 4
	// NumOutputs is the number of classifier outputs.
	NumOutputs = 1
	// WorkspaceSize bounds the memory, in bytes, a model may occupy.
	WorkspaceSize = 16384

	// LogFileName is the logical name of the CSV log inside the data directory.
	LogFileName = "logs.csv"
	// LogHeader is the first line of every log file.
	LogHeader = "Water_Temp,Flow_Rate,SO2,H2S,Risk_Score,Alert_Status"

	// DecisionThreshold separates Safe from Eruption. Scores strictly above it are Eruption.
	DecisionThreshold = 0.5

	BootDelay      = 2 * time.Second
	SampleInterval = 2 * time.Second
	DumpCooldown   = 5 * time.Second
)
