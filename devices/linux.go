// Package devices provides cameracapture.Enumerator implementations.
package devices

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// frontFacingHints mark card names of cameras facing the user.
var frontFacingHints = []string{
	"integrated",
	"built-in",
	"front",
	"user-facing",
	"facetime",
	"webcam",
}

// Linux enumerates V4L2 capture nodes (/dev/videoN) in numeric order.
// Card names come from sysfs; metadata nodes (index != 0) are skipped.
type Linux struct {
	devDir   string
	sysfsDir string

	mu    sync.RWMutex
	names []string
	cards map[string]string
}

// NewLinux scans /dev and /sys/class/video4linux.
func NewLinux() (*Linux, error) {
	return NewLinuxAt("/dev", "/sys/class/video4linux")
}

// NewLinuxAt scans the given directories.
func NewLinuxAt(devDir, sysfsDir string) (*Linux, error) {
	l := &Linux{devDir: devDir, sysfsDir: sysfsDir}
	if err := l.Rescan(); err != nil {
		return nil, err
	}
	return l, nil
}

// Rescan refreshes the device list.
func (l *Linux) Rescan() error {
	matches, err := filepath.Glob(filepath.Join(l.devDir, "video*"))
	if err != nil {
		return fmt.Errorf("failed to scan devices: %w", err)
	}

	var names []string
	cards := make(map[string]string)
	for _, path := range matches {
		node := filepath.Base(path)
		if deviceNumber(node) < 0 {
			continue
		}
		if !l.isCaptureNode(node) {
			slog.Debug("camera-capture: skipping non-capture node", "device", path)
			continue
		}
		names = append(names, path)
		cards[path] = l.readSysfs(node, "name")
	}

	sort.Slice(names, func(i, j int) bool {
		return deviceNumber(filepath.Base(names[i])) < deviceNumber(filepath.Base(names[j]))
	})

	l.mu.Lock()
	l.names = names
	l.cards = cards
	l.mu.Unlock()

	slog.Debug("camera-capture: devices scanned", "devices", names)
	return nil
}

// DeviceNames returns device paths such as /dev/video0.
func (l *Linux) DeviceNames() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.names)
}

// IsFrontFacing guesses from the card name.
func (l *Linux) IsFrontFacing(name string) bool {
	card := strings.ToLower(l.CardName(name))
	for _, hint := range frontFacingHints {
		if strings.Contains(card, hint) {
			return true
		}
	}
	return false
}

// CardName returns the sysfs card name, or "" if unknown.
func (l *Linux) CardName(name string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cards[name]
}

// isCaptureNode treats nodes without a sysfs index as capture nodes.
func (l *Linux) isCaptureNode(node string) bool {
	index := l.readSysfs(node, "index")
	return index == "" || index == "0"
}

func (l *Linux) readSysfs(node, attr string) string {
	data, err := os.ReadFile(filepath.Join(l.sysfsDir, node, attr))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// deviceNumber returns N for "videoN", or -1.
func deviceNumber(node string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(node, "video"))
	if err != nil || !strings.HasPrefix(node, "video") {
		return -1
	}
	return n
}
