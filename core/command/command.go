package command

import "time"

// Command kinds understood by the classroom edge devices.
const (
	StartSession   = "start_session"
	EndSession     = "end_session"
	CaptureNow     = "capture_now"
	SyncEmbeddings = "sync_embeddings"
	StartStream    = "start_stream"
	StopStream     = "stop_stream"
	ReportStatus   = "report_status"
)

// DeviceKinds are the kinds an operator may dispatch directly through the
// command API; session commands go through the session lifecycle endpoints.
var DeviceKinds = []string{CaptureNow, SyncEmbeddings, StartStream, StopStream, ReportStatus}

func IsDeviceKind(kind string) bool {
	for _, k := range DeviceKinds {
		if k == kind {
			return true
		}
	}
	return false
}

type Params map[string]interface{}

// Envelope is the wire unit published to a classroom's command topic.
// It is transient; the channel gives no durability or delivery guarantee
// beyond local publish acceptance.
type Envelope struct {
	Command    string    `json:"command"`
	Parameters Params    `json:"parameters"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewEnvelope(kind string, params Params) Envelope {
	if params == nil {
		params = Params{}
	}
	return Envelope{
		Command:    kind,
		Parameters: params,
		Timestamp:  time.Now().UTC(),
	}
}

// Topic returns the command topic a classroom's device subscribes to.
func Topic(classroomID string) string {
	return "attendance/" + classroomID + "/cmd"
}

// Channel is a fire-and-forget publish primitive addressed by classroom.
// Publish reports only local acceptance by the transport; it never waits
// for (nor implies) a remote acknowledgment.
type Channel interface {
	Publish(classroomID, kind string, params Params) bool
}
