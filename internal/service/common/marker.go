package common

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/cryptonewsbr/newsbot-deploy/internal/logger"
)

const (
	// MarkerFilename marks that a deploy is running right now to avoid
	// parallel invocations against the same host from this workstation.
	MarkerFilename = "newsbot-deploy-marker.bin"

	// deployExecutable is the process name checked when a marker looks stale.
	deployExecutable = "newsbot-deploy"

	// markerLifetime is the period after which a stale marker is reclaimed.
	markerLifetime = 30 * time.Minute
)

// ErrDeployAlreadyRunning is returned when another deploy holds the marker.
var ErrDeployAlreadyRunning = errors.New("another deploy is already running")

// AcquireMarker creates the run marker, refusing when a live deploy holds it.
// A stale marker with no matching process is reclaimed.
func AcquireMarker(ctx context.Context) error {
	if isDeployRunningNow(ctx) {
		return ErrDeployAlreadyRunning
	}

	marker, err := os.Create(MarkerFilename)
	if err != nil {
		return err
	}

	return marker.Close()
}

// ReleaseMarker removes the run marker if present.
func ReleaseMarker() {
	if _, err := os.Stat(MarkerFilename); err == nil {
		_ = os.Remove(MarkerFilename)
	}
}

// isDeployRunningNow checks presence of the marker and whether it still
// belongs to a live process.
func isDeployRunningNow(ctx context.Context) bool {
	fileInfo, err := os.Stat(MarkerFilename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false
		}

		logger.Infof(ctx, "Unable to read deploy marker: %v", err)

		return false
	}

	if time.Since(fileInfo.ModTime()) <= markerLifetime {
		// Within the lifetime, trust the marker only if a sibling deploy
		// process actually exists.
		if anotherDeployProcessExists() {
			return true
		}

		logger.Info(ctx, "Deploy marker has no matching process, reclaiming")
	} else {
		logger.Info(ctx, "Deploy marker is too old, reclaiming")
	}

	if err = os.Remove(MarkerFilename); err != nil {
		return true
	}

	return false
}

// anotherDeployProcessExists scans the process table for a second deploy.
func anotherDeployProcessExists() bool {
	processList, err := ps.Processes()
	if err != nil {
		// Unable to verify; assume the marker is honest.
		return true
	}

	thisProcessID := os.Getpid()

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if process.Executable() == deployExecutable {
			return true
		}
	}

	return false
}
