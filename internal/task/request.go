package task

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// decodeObject requires body to be a single JSON object and returns its
// members undecoded. Unknown members are kept and ignored by callers.
func decodeObject(body []byte) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: body must be a JSON object", ErrInvalidInput)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return fields, nil
}

// stringField decodes a present member as a string. JSON null is rejected.
func stringField(fields map[string]json.RawMessage, name string) (*string, error) {
	raw, ok := fields[name]
	if !ok {
		return nil, nil
	}
	if isNull(raw) {
		return nil, fmt.Errorf("%w: %s must be a string", ErrInvalidInput, name)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("%w: %s must be a string", ErrInvalidInput, name)
	}
	return &s, nil
}

func boolField(fields map[string]json.RawMessage, name string) (*bool, error) {
	raw, ok := fields[name]
	if !ok {
		return nil, nil
	}
	if isNull(raw) {
		return nil, fmt.Errorf("%w: %s must be a boolean", ErrInvalidInput, name)
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("%w: %s must be a boolean", ErrInvalidInput, name)
	}
	return &b, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// ParseNewTask validates a create request. title is required and non-empty;
// description defaults to "". Any other member, including done, is ignored.
func ParseNewTask(body []byte) (NewTask, error) {
	fields, err := decodeObject(body)
	if err != nil {
		return NewTask{}, err
	}

	title, err := stringField(fields, "title")
	if err != nil {
		return NewTask{}, err
	}
	if title == nil || *title == "" {
		return NewTask{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	description, err := stringField(fields, "description")
	if err != nil {
		return NewTask{}, err
	}

	in := NewTask{Title: *title}
	if description != nil {
		in.Description = *description
	}
	return in, nil
}

// ParseTaskPatch validates an update request. Every present field is type
// checked before anything is applied.
func ParseTaskPatch(body []byte) (TaskPatch, error) {
	fields, err := decodeObject(body)
	if err != nil {
		return TaskPatch{}, err
	}

	var patch TaskPatch
	if patch.Title, err = stringField(fields, "title"); err != nil {
		return TaskPatch{}, err
	}
	if patch.Title != nil && *patch.Title == "" {
		return TaskPatch{}, fmt.Errorf("%w: title must not be empty", ErrInvalidInput)
	}
	if patch.Description, err = stringField(fields, "description"); err != nil {
		return TaskPatch{}, err
	}
	if patch.Done, err = boolField(fields, "done"); err != nil {
		return TaskPatch{}, err
	}
	return patch, nil
}
