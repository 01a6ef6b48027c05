package gstsession

import (
	"strings"

	"github.com/tinyzimmer/go-gst/gst"

	cameracapture "github.com/e7canasta/orion-care-sensor/modules/camera-capture"
)

// disconnectKeywords mark errors after which reopening the same device
// cannot help until it is plugged back or released by another client.
var disconnectKeywords = []string{
	"no such device",
	"no such file",
	"device or resource busy",
	"busy",
	"not found",
	"could not open device",
	"cannot identify device",
	"disconnected",
	"unplugged",
	"resource went away",
	"device has been removed",
}

// ClassifyError maps a GStreamer error to a FailureType.
//
// go-gst's GError does not expose the error domain, so classification
// relies on the message and debug string.
func ClassifyError(gerr *gst.GError) cameracapture.FailureType {
	if gerr == nil {
		return cameracapture.FailureError
	}
	return classifyMessage(gerr.Error(), gerr.DebugString())
}

func classifyMessage(message, debug string) cameracapture.FailureType {
	combined := strings.ToLower(message + " " + debug)
	for _, kw := range disconnectKeywords {
		if strings.Contains(combined, kw) {
			return cameracapture.FailureDisconnected
		}
	}
	return cameracapture.FailureError
}
