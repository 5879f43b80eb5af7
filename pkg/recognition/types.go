// Package recognition is the client side of the remote sign recognition service.
//
// The service maps a camera frame to a live label and a cumulative recognized
// text. It is treated as an opaque HTTP endpoint:
//
//	POST /video_feed   {"image": "<data URL>"}  -> {"prediction": "...", "captured_text": "..."}
//	POST /clear_text                            -> {"status": "success"}
//	POST /flip_camera  {"flip": true}           -> ignored
package recognition

// Endpoint paths on the recognition service.
const (
	PathVideoFeed  = "/video_feed"
	PathClearText  = "/clear_text"
	PathFlipCamera = "/flip_camera"
)

// StatusSuccess is the only status that confirms a clear.
const StatusSuccess = "success"

// Result is one successful recognition round trip.
type Result struct {
	// Label is the live prediction for the submitted frame, possibly empty.
	Label string `json:"prediction"`

	// Text is the cumulative recognized text.
	Text string `json:"captured_text"`
}

// Status is the response to a command endpoint.
type Status struct {
	Status string `json:"status"`
}

// OK reports whether the service confirmed the command.
func (s Status) OK() bool {
	return s.Status == StatusSuccess
}

// FrameRequest is the /video_feed request body.
type FrameRequest struct {
	Image string `json:"image"`
}

// FlipRequest is the /flip_camera request body.
type FlipRequest struct {
	Flip bool `json:"flip"`
}
