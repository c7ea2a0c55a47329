package publisher

// State is a step of a single publish attempt:
// Idle → ResolvingEmbed → (UploadingImage)? → Submitting → Done | Failed.
type State int

const (
	StateIdle State = iota
	StateResolvingEmbed
	StateUploadingImage
	StateSubmitting
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolvingEmbed:
		return "resolving_embed"
	case StateUploadingImage:
		return "uploading_image"
	case StateSubmitting:
		return "submitting"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
