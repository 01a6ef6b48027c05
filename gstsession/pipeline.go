package gstsession

import (
	"fmt"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	cameracapture "github.com/e7canasta/orion-care-sensor/modules/camera-capture"
)

// pipelineElements holds the elements a session touches after build.
type pipelineElements struct {
	Pipeline *gst.Pipeline
	AppSink  *app.Sink
	Source   *gst.Element
}

// buildPipeline creates, but does not start:
//
//	<source> → videoconvert → videoscale → videorate → capsfilter → appsink
//
// The capsfilter locks RGB at the requested size and frame rate.
func buildPipeline(source, device string, format cameracapture.Format) (*pipelineElements, error) {
	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}

	src, err := gst.NewElement(source)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", source, err)
	}
	switch source {
	case "v4l2src":
		src.SetProperty("device", device)
		src.SetProperty("do-timestamp", true)
	case "videotestsrc":
		src.SetProperty("is-live", true)
	}

	converter, err := gst.NewElement("videoconvert")
	if err != nil {
		return nil, fmt.Errorf("failed to create videoconvert: %w", err)
	}
	converter.SetProperty("n-threads", 0)

	scaler, err := gst.NewElement("videoscale")
	if err != nil {
		return nil, fmt.Errorf("failed to create videoscale: %w", err)
	}

	videorate, err := gst.NewElement("videorate")
	if err != nil {
		return nil, fmt.Errorf("failed to create videorate: %w", err)
	}
	videorate.SetProperty("drop-only", true)
	videorate.SetProperty("skip-to-first", true)

	capsfilter, err := gst.NewElement("capsfilter")
	if err != nil {
		return nil, fmt.Errorf("failed to create capsfilter: %w", err)
	}
	capsfilter.SetProperty("caps", gst.NewCapsFromString(buildCaps(format)))

	appsink, err := app.NewAppSink()
	if err != nil {
		return nil, fmt.Errorf("failed to create appsink: %w", err)
	}
	appsink.SetProperty("sync", false)
	appsink.SetProperty("max-buffers", 2)
	appsink.SetProperty("drop", true)

	pipeline.AddMany(src, converter, scaler, videorate, capsfilter, appsink.Element)
	if err := gst.ElementLinkMany(src, converter, scaler, videorate, capsfilter, appsink.Element); err != nil {
		return nil, fmt.Errorf("failed to link pipeline elements: %w", err)
	}

	return &pipelineElements{
		Pipeline: pipeline,
		AppSink:  appsink,
		Source:   src,
	}, nil
}

// destroyPipeline sets the pipeline to NULL, releasing the device.
func destroyPipeline(elements *pipelineElements) error {
	if elements == nil || elements.Pipeline == nil {
		return nil
	}
	if err := elements.Pipeline.SetState(gst.StateNull); err != nil {
		return fmt.Errorf("failed to set pipeline to NULL: %w", err)
	}
	return nil
}

// buildCaps returns "video/x-raw,format=RGB,width=W,height=H,framerate=N/1".
func buildCaps(format cameracapture.Format) string {
	return fmt.Sprintf(
		"video/x-raw,format=RGB,width=%d,height=%d,framerate=%d/1",
		format.Width, format.Height, format.FrameRate,
	)
}
