package provider

import "fmt"

// TaskType identifies a kind of generation request. The set is closed:
// every member maps to exactly one routing table entry.
type TaskType string

const (
	TaskTextToImage       TaskType = "t2i"
	TaskImageToVideo      TaskType = "i2v"
	TaskTextToVideo       TaskType = "t2v"
	TaskVideoToVideo      TaskType = "v2v"
	TaskInterior          TaskType = "interior"
	TaskAvatar            TaskType = "avatar"
	TaskUpscale           TaskType = "upscale"
	TaskKeyframes         TaskType = "keyframes"
	TaskEffects           TaskType = "effects"
	TaskMultiModel        TaskType = "multi_model"
	TaskModeration        TaskType = "moderation"
	TaskBackgroundRemoval TaskType = "background_removal"
)

// allTaskTypes is the canonical ordering of the closed set.
var allTaskTypes = []TaskType{
	TaskTextToImage,
	TaskImageToVideo,
	TaskTextToVideo,
	TaskVideoToVideo,
	TaskInterior,
	TaskAvatar,
	TaskUpscale,
	TaskKeyframes,
	TaskEffects,
	TaskMultiModel,
	TaskModeration,
	TaskBackgroundRemoval,
}

// AllTaskTypes returns every member of the closed task type set.
func AllTaskTypes() []TaskType {
	out := make([]TaskType, len(allTaskTypes))
	copy(out, allTaskTypes)
	return out
}

// Valid reports whether t is a member of the closed task type set.
func (t TaskType) Valid() bool {
	for _, known := range allTaskTypes {
		if t == known {
			return true
		}
	}
	return false
}

// String returns the wire value of the task type.
func (t TaskType) String() string {
	return string(t)
}

// ParseTaskType parses a wire value into a TaskType.
func ParseTaskType(s string) (TaskType, error) {
	t := TaskType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown task type %q", s)
	}
	return t, nil
}
