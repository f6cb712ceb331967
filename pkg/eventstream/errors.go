package eventstream

import "errors"

// ErrUnknownEventType indicates an Event with an empty or unrecognized Type
// field was provided to a publisher.
var ErrUnknownEventType = errors.New("unknown event type")
