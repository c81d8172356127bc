package scene

import "fmt"

// SceneError is the scene store's error type, matching the small
// {Kind, Message} shape used throughout this repo's packages.
type SceneError struct {
	Kind    string
	Message string
}

func (e SceneError) Error() string {
	return fmt.Sprintf("scene error (%v): %v", e.Kind, e.Message)
}

func ObjectDoesNotExist(id string) error {
	return SceneError{Kind: "ObjectDoesNotExist", Message: fmt.Sprintf("object %q does not exist", id)}
}
